package studypool

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrAnswerFormatUnrecognized is returned when no enumeration format yields four options.
	ErrAnswerFormatUnrecognized = errors.New("answer format unrecognized")
	// ErrNoCorrectMarker is returned when four options exist but none is marked correct.
	ErrNoCorrectMarker = errors.New("no correct answer marker")
	// ErrMarkerOutOfRange is returned when the marked option does not exist.
	ErrMarkerOutOfRange = errors.New("correct answer marker out of range")
)

const optionCount = 4

// ParsedAnswers is a correct answer plus its distractors
type ParsedAnswers struct {
	Correct string
	Wrong   []string
	// Format names the enumeration format that matched, empty for partial parses
	Format string
}

// enumerationFormat recognizes one style of option labels. Labels must
// appear in order; option text runs from one label to the next.
type enumerationFormat struct {
	name   string
	marker *regexp.Regexp
	labels string
}

var enumerationFormats = []enumerationFormat{
	{name: "letter-period", marker: regexp.MustCompile(`(?:^|\s)\(?([A-D])\.\s+`), labels: "ABCD"},
	{name: "letter-paren", marker: regexp.MustCompile(`(?:^|\s)\(?([A-D])\)\s+`), labels: "ABCD"},
	{name: "letter-dash", marker: regexp.MustCompile(`(?:^|\s)([A-D])(?:\s+[-–—]\s*|[-–—]\s+)`), labels: "ABCD"},
	{name: "numbered", marker: regexp.MustCompile(`(?:^|\s)\(?([1-4])[.)]\s+`), labels: "1234"},
}

// correctMarker finds the label of the correct option. Group 1 is the label.
type correctMarker struct {
	name string
	re   *regexp.Regexp
}

var correctMarkers = []correctMarker{
	{name: "explicit", re: regexp.MustCompile(`(?i:\b(?:correct\s+answer|correct|answer\s+key|answer|key)\b)\s*(?i:is\s*)?[:=\-]?\s*\(?([A-Za-z]|[0-9])\)?\.?(?:[ \t]*$|[ \t]*\n|[ \t]+[-–—(])`)},
	{name: "phrase", re: regexp.MustCompile(`(?:^|[\s(])\(?([A-Za-z0-9])\)?\s+(?i:is\s+(?:the\s+)?correct)\b`)},
	{name: "weak", re: regexp.MustCompile(`(?:(?i:\boption)\s+\(?([A-Z]|[0-9])\)?(?:\W|$)|(?:^|\s)\(?([A-Z]|[0-9])\)?\s+(?i:is\s+the\s+best)\b)`)},
}

// answerText matches "Answer: <sentence>" where the answer is spelled out
var answerText = regexp.MustCompile(`(?i)^\s*(?:correct\s+answer|answer)\s*[:\-]\s*(.{3,})$`)

// AnswerParser identifies options and the correct option in an answer section
type AnswerParser struct{}

// NewAnswerParser creates an answer parser
func NewAnswerParser() *AnswerParser {
	return &AnswerParser{}
}

// Parse returns the correct answer and exactly three distractors. It never
// guesses: a complete option set without a usable marker is an error.
func (ap *AnswerParser) Parse(section string) (*ParsedAnswers, error) {
	label, start, end := findCorrectMarker(section)

	options, format := enumerate(optionRegions(section, start, end))
	if options == nil {
		return nil, ErrAnswerFormatUnrecognized
	}
	if label == 0 {
		return nil, ErrNoCorrectMarker
	}

	idx := labelIndex(label)
	if idx < 0 || idx >= len(options) {
		return nil, ErrMarkerOutOfRange
	}

	parsed := &ParsedAnswers{Correct: options[idx], Format: format}
	for i, o := range options {
		if i != idx {
			parsed.Wrong = append(parsed.Wrong, o)
		}
	}
	return parsed, nil
}

// ParsePartial recovers a correct answer and whatever distractors exist
// when Parse finds no complete option set. It handles short enumerations
// with a marker, a spelled-out "Answer: ..." line, and free-form answer prose.
func (ap *AnswerParser) ParsePartial(section string) (*ParsedAnswers, bool) {
	section = strings.TrimSpace(section)
	if section == "" {
		return nil, false
	}

	label, start, end := findCorrectMarker(section)
	if label != 0 {
		for _, region := range optionRegions(section, start, end) {
			for _, f := range enumerationFormats {
				opts := f.options(region, 2)
				if opts == nil {
					continue
				}
				idx := labelIndex(label)
				if idx < 0 || idx >= len(opts) {
					return nil, false
				}
				parsed := &ParsedAnswers{Correct: opts[idx]}
				for i, o := range opts {
					if i != idx {
						parsed.Wrong = append(parsed.Wrong, o)
					}
				}
				return parsed, true
			}
		}
	}

	for _, line := range strings.Split(section, "\n") {
		if m := answerText.FindStringSubmatch(line); m != nil && len(words(m[1])) >= 2 {
			return &ParsedAnswers{Correct: strings.TrimSpace(m[1])}, true
		}
	}

	// free-form prose: no option labels at all
	for _, f := range enumerationFormats {
		if f.marker.MatchString(section) {
			return nil, false
		}
	}
	answer := firstSentence(joinLines(section))
	if len(words(answer)) < 2 {
		return nil, false
	}
	return &ParsedAnswers{Correct: answer}, true
}

var sentenceBreak = regexp.MustCompile(`[.!?]\s+[A-Z]`)

// firstSentence cuts text at the first sentence break that leaves at least
// two words
func firstSentence(text string) string {
	for _, loc := range sentenceBreak.FindAllStringIndex(text, -1) {
		if head := text[:loc[0]+1]; len(words(head)) >= 2 {
			return head
		}
	}
	return text
}

// findCorrectMarker tries the marker table in order and returns the
// normalized letter label and the marker span, or 0 and -1.
func findCorrectMarker(section string) (label byte, start, end int) {
	for _, m := range correctMarkers {
		loc := m.re.FindStringSubmatchIndex(section)
		if loc == nil {
			continue
		}
		for g := 2; g+1 < len(loc); g += 2 {
			if loc[g] >= 0 {
				return normalizeLabel(section[loc[g]]), loc[0], loc[1]
			}
		}
	}
	return 0, -1, -1
}

// optionRegions returns the texts to enumerate options from, in order: the
// section cut at the start of the marker's line, cut at the marker itself,
// and with only the marker removed.
func optionRegions(section string, start, end int) []string {
	if start < 0 {
		return []string{section}
	}
	regions := make([]string, 0, 3)
	// a marker match may begin with the newline that ends the options
	lineStart := strings.LastIndex(section[:min(start+1, len(section))], "\n") + 1
	if head := strings.TrimSpace(section[:lineStart]); head != "" {
		regions = append(regions, head)
	}
	if head := strings.TrimSpace(section[:start]); head != "" && lineStart < start {
		regions = append(regions, head)
	}
	return append(regions, section[:start]+" "+section[end:])
}

// enumerate tries the formats in order; first complete option set wins
func enumerate(regions []string) ([]string, string) {
	for _, region := range regions {
		for _, f := range enumerationFormats {
			if opts := f.options(region, optionCount); opts != nil {
				return opts, f.name
			}
		}
	}
	return nil, ""
}

// options extracts the first `want` labeled options in label order. All
// must be non-empty and case-insensitively distinct.
func (f enumerationFormat) options(text string, want int) []string {
	matches := f.marker.FindAllStringSubmatchIndex(text, -1)

	var (
		starts []int // label match start
		ends   []int // label match end
	)
	next := 0
	for _, m := range matches {
		if next == len(f.labels) {
			break
		}
		if text[m[2]] == f.labels[next] {
			starts = append(starts, m[0])
			ends = append(ends, m[1])
			next++
		}
	}
	if len(starts) < want {
		return nil
	}
	if want == optionCount && len(starts) != optionCount {
		return nil
	}

	opts := make([]string, 0, len(starts))
	seen := make(map[string]bool, len(starts))
	for i := range starts {
		stop := len(text)
		if i+1 < len(starts) {
			stop = starts[i+1]
		}
		o := joinLines(text[ends[i]:stop])
		key := strings.ToLower(o)
		if o == "" || seen[key] {
			return nil
		}
		seen[key] = true
		opts = append(opts, o)
	}
	return opts
}

// normalizeLabel maps digits and lowercase letters onto A, B, C...; 0 maps
// below A so it always resolves out of range
func normalizeLabel(c byte) byte {
	switch {
	case c == '0':
		return 'A' - 1
	case c >= '1' && c <= '9':
		return 'A' + (c - '1')
	case c >= 'a' && c <= 'z':
		return c - 'a' + 'A'
	}
	return c
}

func labelIndex(label byte) int {
	return int(label) - 'A'
}
