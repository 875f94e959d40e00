package studypool

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Taxonomy is the fixed, read-only set of categories. Lookup is
// case-insensitive; the pipeline never creates categories.
type Taxonomy struct {
	categories []Category
	byName     map[string]int
	fallback   string
}

// NewTaxonomy builds a taxonomy. The fallback category, used when keyword
// scoring ties, must be one of the categories.
func NewTaxonomy(categories []Category, fallback string) (*Taxonomy, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("taxonomy has no categories")
	}

	t := &Taxonomy{
		categories: make([]Category, 0, len(categories)),
		byName:     make(map[string]int, len(categories)),
	}
	for _, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("taxonomy category with empty name")
		}
		key := strings.ToLower(name)
		if _, dup := t.byName[key]; dup {
			return nil, fmt.Errorf("duplicate taxonomy category %q", name)
		}
		c.Name = name
		t.byName[key] = len(t.categories)
		t.categories = append(t.categories, c)
	}

	if fallback == "" {
		fallback = t.categories[0].Name
	}
	fb, ok := t.Lookup(fallback)
	if !ok {
		return nil, fmt.Errorf("fallback category %q is not in the taxonomy", fallback)
	}
	t.fallback = fb.Name
	return t, nil
}

// Lookup finds a category by name
func (t *Taxonomy) Lookup(name string) (Category, bool) {
	i, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Category{}, false
	}
	return t.categories[i], true
}

// Categories returns the categories in configuration order
func (t *Taxonomy) Categories() []Category {
	return append([]Category(nil), t.categories...)
}

// Fallback returns the default category name
func (t *Taxonomy) Fallback() string {
	return t.fallback
}

type taxonomyFile struct {
	Fallback   string     `yaml:"fallback"`
	Categories []Category `yaml:"categories"`
}

// LoadTaxonomy reads a taxonomy from a YAML file of the form
//
//	fallback: Legal & Judicial Terminology
//	categories:
//	  - name: Legal & Judicial Terminology
//	    keywords: [court, judge]
//	    term_pairs: [{from: plaintiff, to: defendant}]
//	    templates: ["Only in criminal matters: %s"]
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy: %w", err)
	}
	var f taxonomyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy %s: %w", path, err)
	}
	return NewTaxonomy(f.Categories, f.Fallback)
}

// DefaultTaxonomy returns the built-in court reporter exam taxonomy.
func DefaultTaxonomy() *Taxonomy {
	t, err := NewTaxonomy(defaultCategories, "Legal & Judicial Terminology")
	if err != nil {
		panic(err)
	}
	return t
}

var defaultCategories = []Category{
	{
		Name:        "Legal & Judicial Terminology",
		Description: "Common legal terms, court procedures, and Latin phrases",
		Keywords: []string{"legal", "law", "judge", "judicial", "plaintiff", "defendant", "statute",
			"verdict", "jury", "attorney", "counsel", "subpoena", "affidavit", "objection", "latin", "habeas"},
		TermPairs: []TermPair{
			{From: "plaintiff", To: "defendant"},
			{From: "prosecution", To: "defense"},
			{From: "civil", To: "criminal"},
			{From: "sustained", To: "overruled"},
			{From: "direct", To: "cross"},
			{From: "affirm", To: "reverse"},
		},
		Templates: []string{
			"%s, but only in criminal proceedings",
			"%s, unless the opposing counsel objects",
		},
	},
	{
		Name:        "Professional Standards & Ethics",
		Description: "Court reporter responsibilities and ethical guidelines",
		Keywords: []string{"ethic", "conflict", "impartial", "confidential", "professional", "integrity",
			"duty", "obligation", "disclose", "bias", "gift", "conduct", "responsib"},
		TermPairs: []TermPair{
			{From: "disclose", To: "conceal"},
			{From: "impartial", To: "biased"},
			{From: "always", To: "never"},
			{From: "must", To: "may"},
			{From: "all parties", To: "the hiring attorney"},
		},
		Templates: []string{
			"%s, but only when the client pays in advance",
			"%s, only after the case is closed",
		},
	},
	{
		Name:        "Grammar & Vocabulary",
		Description: "Legal writing, punctuation, and specialized terminology",
		Keywords: []string{"grammar", "punctuat", "comma", "spelling", "spell", "vocabulary", "hyphen",
			"apostrophe", "capitaliz", "sentence", "plural", "tense", "synonym", "definition", "word"},
		TermPairs: []TermPair{
			{From: "singular", To: "plural"},
			{From: "comma", To: "semicolon"},
			{From: "uppercase", To: "lowercase"},
			{From: "before", To: "after"},
			{From: "period", To: "colon"},
		},
		Templates: []string{
			"%s, except in formal legal writing",
			"%s, but only in spoken testimony",
		},
	},
	{
		Name:        "Transcription Standards",
		Description: "Formatting rules and transcript preparation guidelines",
		Keywords: []string{"transcript", "transcription", "format", "margin", "verbatim", "speaker",
			"parenthetical", "colloquy", "index", "line", "page", "indent", "exhibit"},
		TermPairs: []TermPair{
			{From: "verbatim", To: "summarized"},
			{From: "double-spaced", To: "single-spaced"},
			{From: "left", To: "right"},
			{From: "beginning", To: "end"},
			{From: "new paragraph", To: "same line"},
		},
		Templates: []string{
			"%s, but only on the certified copy",
			"%s, only when the judge requests it",
		},
	},
	{
		Name:        "Court Procedures",
		Description: "Order of proceedings, motions, and courtroom practice",
		Keywords: []string{"court", "procedure", "proceeding", "trial", "hearing", "motion", "recess",
			"bench", "sidebar", "arraignment", "sentencing", "bailiff", "docket"},
		TermPairs: []TermPair{
			{From: "opening", To: "closing"},
			{From: "granted", To: "denied"},
			{From: "on the record", To: "off the record"},
			{From: "judge", To: "clerk"},
		},
		Templates: []string{
			"%s, but only during jury selection",
			"%s, after the verdict is read",
		},
	},
	{
		Name:        "Deposition Protocol",
		Description: "Conduct and record keeping during depositions",
		Keywords: []string{"deposition", "deponent", "witness", "oath", "sworn", "swear", "examination",
			"read and sign", "errata", "notice"},
		TermPairs: []TermPair{
			{From: "deponent", To: "examining attorney"},
			{From: "before", To: "after"},
			{From: "read and sign", To: "waive signature"},
			{From: "sworn", To: "unsworn"},
		},
		Templates: []string{
			"%s, but only if the deponent agrees",
			"%s, once the errata sheet is returned",
		},
	},
	{
		Name:        "Reporting Equipment",
		Description: "Stenotype machines, CAT software, and audio backup",
		Keywords: []string{"steno", "machine", "equipment", "software", "realtime", "audio", "backup",
			"cat ", "writer", "dictionary", "battery", "keyboard"},
		TermPairs: []TermPair{
			{From: "realtime", To: "delayed"},
			{From: "audio", To: "video"},
			{From: "backup", To: "primary"},
			{From: "stenotype", To: "typewriter"},
		},
		Templates: []string{
			"%s, but only with manufacturer approval",
			"%s, when no audio backup is available",
		},
	},
	{
		Name:        "Certification Requirements",
		Description: "Licensing, examinations, and continuing education",
		Keywords: []string{"certif", "license", "licens", "exam", "renewal", "continuing education",
			"board", "requirement", "csr", "credential"},
		TermPairs: []TermPair{
			{From: "annually", To: "every five years"},
			{From: "written", To: "oral"},
			{From: "required", To: "optional"},
			{From: "renew", To: "surrender"},
		},
		Templates: []string{
			"%s, but only for federal court work",
			"%s, unless the board grants a waiver",
		},
	},
}
