package studypool

import (
	"regexp"
	"strings"
)

// Candidate is a hypothesized question with the text that should hold its answers
type Candidate struct {
	Question string
	Answers  string
	// Category is the sticky header category in effect, empty when none
	Category string
	// Pattern names the question pattern that matched
	Pattern string
}

// questionPattern extracts the question prefix of a block. The question
// group runs up to and including the first question mark.
type questionPattern struct {
	name string
	re   *regexp.Regexp
}

var questionPatterns = []questionPattern{
	{name: "numbered", re: regexp.MustCompile(`(?s)^\s*\d{1,3}[.)]\s+(.*?\?)`)},
	{name: "q-prefixed", re: regexp.MustCompile(`(?is)^\s*q(?:uestion)?\s*\d{0,3}\s*[:.)]\s*(.*?\?)`)},
	{name: "bulleted", re: regexp.MustCompile(`(?s)^\s*[•\-*]\s+(.*?\?)`)},
	{name: "interrogative", re: regexp.MustCompile(`(?s)^\s*(.*?\?)`)},
}

var (
	blankLine       = regexp.MustCompile(`\n\s*\n`)
	questionStart   = regexp.MustCompile(`(?i)^\s*(?:\d{1,3}[.)]|[A-Za-z][.)]|q(?:uestion)?\s*\d{0,3}\s*[:.)]|[•\-*])\s+\S.*\?`)
	questionPrefix  = regexp.MustCompile(`(?i)^\s*(?:\d{1,3}[.)]|[a-z][.)]|q(?:uestion)?\s*\d{0,3}\s*[:.)]|[•\-*])\s+`)
	categoryHeading = regexp.MustCompile(`(?i)^\s*(.+?)\s+questions\s*:\s*$`)
	leadingLabel    = regexp.MustCompile(`^\s*\(?([A-Za-z])[.)]\s`)
	optionLabel     = regexp.MustCompile(`(?:^|\s)\(?([A-Da-d])[.)]\s`)
)

var questionWords = map[string]bool{
	"what": true, "who": true, "where": true, "when": true, "why": true,
	"how": true, "which": true, "whose": true, "whom": true,
}

var verbMarkers = map[string]bool{
	"is": true, "are": true, "was": true, "were": true, "do": true, "does": true,
	"did": true, "will": true, "can": true, "could": true, "should": true,
	"would": true, "have": true, "has": true, "had": true,
}

// segmentState is threaded through the block loop
type segmentState struct {
	category        string
	awaitingAnswers bool
}

// Segmenter splits cleaned text into question/answer candidates
type Segmenter struct{}

// NewSegmenter creates a segmenter
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Segment splits text on blank lines and extracts candidates block by block.
// A header line ending in "Questions:" sets the category for every following
// block until the next header. A block without a question directly after a
// question that has no answer text becomes that question's answers.
func (s *Segmenter) Segment(text string) []Candidate {
	var (
		state      segmentState
		candidates []Candidate
	)

	for _, block := range blankLine.Split(text, -1) {
		for _, part := range splitAtHeadings(block) {
			if part.heading != "" {
				state.category = part.heading
				state.awaitingAnswers = false
				continue
			}
			candidates = s.segmentBlock(part.text, &state, candidates)
		}
	}
	return candidates
}

func (s *Segmenter) segmentBlock(block string, state *segmentState, candidates []Candidate) []Candidate {
	if strings.TrimSpace(block) == "" {
		return candidates
	}

	if countQuestionStarts(block) >= 2 {
		found := splitMultiQuestion(block, state.category)
		state.awaitingAnswers = len(found) > 0 && found[len(found)-1].Answers == ""
		return append(candidates, found...)
	}

	if c, ok := matchBlock(block); ok {
		c.Category = state.category
		state.awaitingAnswers = c.Answers == ""
		return append(candidates, c)
	}

	if state.awaitingAnswers && len(candidates) > 0 {
		candidates[len(candidates)-1].Answers = strings.TrimSpace(block)
		state.awaitingAnswers = false
		return candidates
	}

	VerboseLog("Block has no question", "block", truncate(block, 60))
	return candidates
}

type blockPart struct {
	heading string
	text    string
}

// splitAtHeadings cuts a block at category header lines
func splitAtHeadings(block string) []blockPart {
	var (
		parts []blockPart
		lines []string
	)
	for _, line := range strings.Split(block, "\n") {
		if m := categoryHeading.FindStringSubmatch(line); m != nil {
			if len(lines) > 0 {
				parts = append(parts, blockPart{text: strings.Join(lines, "\n")})
				lines = nil
			}
			parts = append(parts, blockPart{heading: strings.TrimSpace(m[1])})
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) > 0 {
		parts = append(parts, blockPart{text: strings.Join(lines, "\n")})
	}
	return parts
}

// matchBlock tries each question pattern in priority order
func matchBlock(block string) (Candidate, bool) {
	for _, p := range questionPatterns {
		loc := p.re.FindStringSubmatchIndex(block)
		if loc == nil {
			continue
		}
		question := joinLines(block[loc[2]:loc[3]])
		if p.name == "interrogative" && !IsInterrogative(question) {
			return Candidate{}, false
		}
		return Candidate{
			Question: question,
			Answers:  strings.TrimSpace(block[loc[1]:]),
			Pattern:  p.name,
		}, true
	}
	return Candidate{}, false
}

func countQuestionStarts(block string) int {
	n := 0
	for _, start := range questionStarts(strings.Split(block, "\n")) {
		if start {
			n++
		}
	}
	return n
}

// questionStarts marks the lines that open a new question. A lettered line
// carrying the next A-D label of the current question is one of its options,
// even when the option text ends in a question mark.
func questionStarts(lines []string) []bool {
	var (
		starts     = make([]bool, len(lines))
		inQuestion bool
		next       = byte('A')
	)
	for i, line := range lines {
		if questionStart.MatchString(line) && !(inQuestion && leadsWithLabel(line, next)) {
			starts[i] = true
			inQuestion = true
			next = 'A'
			line = line[strings.Index(line, "?")+1:]
		}
		if inQuestion {
			next = advanceLabels(line, next)
		}
	}
	return starts
}

func leadsWithLabel(line string, label byte) bool {
	if label > 'D' {
		return false
	}
	m := leadingLabel.FindStringSubmatch(line)
	return m != nil && strings.ToUpper(m[1])[0] == label
}

// advanceLabels moves past every option label in line that continues the sequence
func advanceLabels(line string, next byte) byte {
	for _, m := range optionLabel.FindAllStringSubmatch(line, -1) {
		if strings.ToUpper(m[1])[0] == next {
			next++
		}
	}
	return next
}

// splitMultiQuestion scans a block holding several question/answer pairs
// without blank lines between them.
func splitMultiQuestion(block, category string) []Candidate {
	var (
		out     []Candidate
		current *Candidate
		answers []string
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Answers = strings.TrimSpace(strings.Join(answers, "\n"))
		out = append(out, *current)
		current, answers = nil, nil
	}

	lines := strings.Split(block, "\n")
	starts := questionStarts(lines)
	for i, line := range lines {
		if starts[i] {
			flush()
			body := questionPrefix.ReplaceAllString(line, "")
			q := strings.Index(body, "?")
			current = &Candidate{
				Question: strings.TrimSpace(body[:q+1]),
				Category: category,
				Pattern:  "multi",
			}
			if rest := strings.TrimSpace(body[q+1:]); rest != "" {
				answers = append(answers, rest)
			}
			continue
		}
		if current != nil {
			answers = append(answers, line)
		}
	}
	flush()
	return out
}

// IsInterrogative reports whether text holds a question word and a
// finite-verb marker.
func IsInterrogative(text string) bool {
	var hasQuestionWord, hasVerb bool
	for _, w := range words(text) {
		if questionWords[w] {
			hasQuestionWord = true
		}
		if verbMarkers[w] {
			hasVerb = true
		}
	}
	return hasQuestionWord && hasVerb
}

// words lowercases text and splits it into letter/digit tokens
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'' || r > 127)
	})
}

func joinLines(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	s = joinLines(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
