package studypool

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DistractorGenerator produces wrong answers for a question from an external source
type DistractorGenerator interface {
	GenerateDistractors(ctx context.Context, question, correct, category string, count int) ([]string, error)
}

const templateAnswerWords = 8

var firstInteger = regexp.MustCompile(`\d+`)

// genericDistractors fill the slots no other strategy could
var genericDistractors = []string{
	"Only when the presiding judge orders it in writing",
	"None of the other options apply here",
	"It depends entirely on local custom",
	"Only after the matter has been closed",
	"Whatever the hiring party prefers",
}

// Synthesizer tops up a question's wrong answers to exactly three
type Synthesizer struct {
	taxonomy  *Taxonomy
	generator DistractorGenerator
	retry     RetryPolicy
}

// NewSynthesizer creates a synthesizer. generator may be nil, in which case
// only local strategies run.
func NewSynthesizer(taxonomy *Taxonomy, generator DistractorGenerator, retry RetryPolicy) *Synthesizer {
	return &Synthesizer{taxonomy: taxonomy, generator: generator, retry: retry}
}

type distractorSet struct {
	question string
	answers  []string // correct answer first
	wrong    []string
}

func (d *distractorSet) full() bool {
	return len(d.wrong) >= wrongAnswerCount
}

// add keeps candidate only if it passes the distractor rules
func (d *distractorSet) add(candidate, strategy string) bool {
	if d.full() {
		return false
	}
	candidate = strings.TrimSpace(candidate)
	if r := CheckDistractor(d.question, candidate, d.answers); r != nil {
		VerboseLog("Discarded synthesized distractor", "strategy", strategy, "reason", r.Reason, "candidate", candidate)
		return false
	}
	d.answers = append(d.answers, candidate)
	d.wrong = append(d.wrong, candidate)
	return true
}

// Synthesize returns exactly three wrong answers, keeping the existing ones
// and filling the rest by term substitution, numeric perturbation, a
// category template, the external generator and finally generic text.
// A *Rejection is returned when three valid distractors cannot be found.
func (s *Synthesizer) Synthesize(ctx context.Context, question, correct string, existing []string, category string) ([]string, error) {
	set := &distractorSet{question: question, answers: []string{correct}}
	for _, w := range existing {
		set.answers = append(set.answers, w)
		set.wrong = append(set.wrong, w)
	}
	if set.full() {
		return set.wrong[:wrongAnswerCount], nil
	}

	cat, _ := s.taxonomy.Lookup(category)

	for _, pair := range cat.TermPairs {
		if alt, ok := substituteTerm(correct, pair); ok && set.add(alt, "term") {
			break
		}
	}

	for _, alt := range perturbNumber(correct) {
		set.add(alt, "numeric")
	}

	short := truncateWords(correct, templateAnswerWords)
	for _, tmpl := range cat.Templates {
		if set.add(fmt.Sprintf(tmpl, short), "template") {
			break
		}
	}

	if !set.full() && s.generator != nil {
		s.fromGenerator(ctx, set, question, correct, cat.Name)
	}

	for _, g := range genericDistractors {
		set.add(g, "generic")
	}

	if !set.full() {
		return nil, reject(ReasonInsufficientAnswers, question)
	}
	return set.wrong, nil
}

func (s *Synthesizer) fromGenerator(ctx context.Context, set *distractorSet, question, correct, category string) {
	need := wrongAnswerCount - len(set.wrong)

	var got []string
	err := s.retry.Do(ctx, "generate distractors", func(ctx context.Context) error {
		var err error
		got, err = s.generator.GenerateDistractors(ctx, question, correct, category, need)
		return err
	})
	if err != nil {
		logger.Warnw("Distractor generation failed, using local fallback", "error", err)
		return
	}
	for _, g := range got {
		set.add(g, "generator")
	}
}

// substituteTerm swaps the first whole-word occurrence of either side of
// the pair, keeping the capitalization of the first letter.
func substituteTerm(text string, pair TermPair) (string, bool) {
	for _, sw := range [][2]string{{pair.From, pair.To}, {pair.To, pair.From}} {
		if sw[0] == "" || sw[1] == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(sw[0]) + `\b`)
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		repl := sw[1]
		if r, _ := utf8.DecodeRuneInString(text[loc[0]:]); unicode.IsUpper(r) {
			repl = capitalize(repl)
		}
		return text[:loc[0]] + repl + text[loc[1]:], true
	}
	return "", false
}

// perturbNumber rewrites the first integer as n+5, n-5 (when not negative) and n*2
func perturbNumber(text string) []string {
	loc := firstInteger.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	n, err := strconv.Atoi(text[loc[0]:loc[1]])
	if err != nil {
		return nil
	}

	values := []int{n + 5}
	if n-5 >= 0 {
		values = append(values, n-5)
	}
	values = append(values, n*2)

	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, text[:loc[0]]+strconv.Itoa(v)+text[loc[1]:])
	}
	return out
}

// truncateWords keeps the first n words and drops trailing punctuation
func truncateWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.TrimRight(strings.Join(fields, " "), ".,;:!?")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
