package studypool

import (
	"fmt"
	"strings"
)

const (
	minQuestionWords = 5
	maxQuestionWords = 100
	minAnswerWords   = 2
	wrongAnswerCount = 3
)

// RejectReason names the rule a question failed
type RejectReason string

const (
	ReasonNoQuestionMark      RejectReason = "missing_question_mark"
	ReasonQuestionLength      RejectReason = "question_length"
	ReasonNoQuestionWord      RejectReason = "missing_question_word"
	ReasonNoVerb              RejectReason = "missing_verb"
	ReasonWrongAnswerCount    RejectReason = "wrong_answer_count"
	ReasonEmptyAnswer         RejectReason = "empty_answer"
	ReasonShortAnswer         RejectReason = "short_answer"
	ReasonDuplicateAnswer     RejectReason = "duplicate_answer"
	ReasonAnswerInQuestion    RejectReason = "answer_overlaps_question"
	ReasonUnknownCategory     RejectReason = "unknown_category"
	ReasonInsufficientAnswers RejectReason = "insufficient_distractors"
)

// Rejection is returned when a question fails a validation rule. Snippet
// holds the offending text.
type Rejection struct {
	Reason  RejectReason `json:"reason"`
	Snippet string       `json:"snippet"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %q", r.Reason, r.Snippet)
}

func reject(reason RejectReason, snippet string) *Rejection {
	return &Rejection{Reason: reason, Snippet: truncate(snippet, 80)}
}

// QuestionChecker enforces the acceptance rules a question must pass
// before it can enter the pool
type QuestionChecker struct {
	taxonomy *Taxonomy
}

// NewQuestionChecker creates a checker bound to a taxonomy
func NewQuestionChecker(taxonomy *Taxonomy) *QuestionChecker {
	return &QuestionChecker{taxonomy: taxonomy}
}

// CheckQuestion runs every rule and returns accept or the first rejection
func (qc *QuestionChecker) CheckQuestion(q Question) *ValidationResult {
	if r := qc.check(q); r != nil {
		VerboseLog("Question rejected", "reason", r.Reason, "snippet", r.Snippet)
		return &ValidationResult{Action: ActionReject, Rejection: r}
	}
	return &ValidationResult{Action: ActionAccept}
}

func (qc *QuestionChecker) check(q Question) *Rejection {
	if r := CheckQuestionText(q.QuestionText); r != nil {
		return r
	}

	if len(q.WrongAnswers) != wrongAnswerCount {
		return reject(ReasonWrongAnswerCount, fmt.Sprintf("%d wrong answers", len(q.WrongAnswers)))
	}

	if r := CheckAnswer(q.CorrectAnswer, nil); r != nil {
		return r
	}
	accepted := []string{q.CorrectAnswer}
	for _, w := range q.WrongAnswers {
		if r := CheckDistractor(q.QuestionText, w, accepted); r != nil {
			return r
		}
		accepted = append(accepted, w)
	}

	if _, ok := qc.taxonomy.Lookup(q.Category); !ok {
		return reject(ReasonUnknownCategory, q.Category)
	}
	return nil
}

// CheckQuestionText applies the question-level rules
func CheckQuestionText(text string) *Rejection {
	text = strings.TrimSpace(text)
	if !strings.HasSuffix(text, "?") {
		return reject(ReasonNoQuestionMark, text)
	}
	n := len(strings.Fields(text))
	if n < minQuestionWords || n > maxQuestionWords {
		return reject(ReasonQuestionLength, text)
	}

	var hasQuestionWord, hasVerb bool
	for _, w := range words(text) {
		hasQuestionWord = hasQuestionWord || questionWords[w]
		hasVerb = hasVerb || verbMarkers[w]
	}
	if !hasQuestionWord {
		return reject(ReasonNoQuestionWord, text)
	}
	if !hasVerb {
		return reject(ReasonNoVerb, text)
	}
	return nil
}

// CheckAnswer applies the answer-level rules to one answer against the
// answers already accepted for the same question.
func CheckAnswer(answer string, others []string) *Rejection {
	a := strings.TrimSpace(answer)
	if a == "" {
		return reject(ReasonEmptyAnswer, answer)
	}
	if len(strings.Fields(a)) < minAnswerWords {
		return reject(ReasonShortAnswer, a)
	}

	key := strings.ToLower(a)
	for _, o := range others {
		if strings.ToLower(strings.TrimSpace(o)) == key {
			return reject(ReasonDuplicateAnswer, a)
		}
	}
	return nil
}

// CheckDistractor is CheckAnswer plus the rule that a wrong answer and the
// question may not contain one another. Distractor synthesis applies it to
// every candidate so synthesized and parsed answers meet one standard.
func CheckDistractor(question, answer string, others []string) *Rejection {
	if r := CheckAnswer(answer, others); r != nil {
		return r
	}
	a := strings.ToLower(strings.TrimSpace(answer))
	q := strings.ToLower(strings.TrimSpace(question))
	if strings.Contains(q, a) || strings.Contains(a, q) {
		return reject(ReasonAnswerInQuestion, answer)
	}
	return nil
}
