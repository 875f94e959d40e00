package studypool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuestion() Question {
	return NewQuestion(
		"What must a reporter do upon discovering a conflict?",
		"Notify all parties within 3 days.",
		[]string{"Ignore it entirely.", "Resign immediately from work.", "Wait for an inquiry."},
		"Professional Standards & Ethics",
		"doc1.txt",
	)
}

func TestQuestionChecker_CheckQuestion(t *testing.T) {
	qc := NewQuestionChecker(DefaultTaxonomy())

	tests := []struct {
		name   string
		mutate func(q *Question)
		reason RejectReason
	}{
		{
			name:   "valid",
			mutate: func(q *Question) {},
		},
		{
			name:   "missing question mark",
			mutate: func(q *Question) { q.QuestionText = "What must a reporter do upon discovering a conflict" },
			reason: ReasonNoQuestionMark,
		},
		{
			name:   "too short",
			mutate: func(q *Question) { q.QuestionText = "What is this?" },
			reason: ReasonQuestionLength,
		},
		{
			name:   "too long",
			mutate: func(q *Question) { q.QuestionText = "What is " + strings.Repeat("very ", 100) + "long?" },
			reason: ReasonQuestionLength,
		},
		{
			name:   "no question word",
			mutate: func(q *Question) { q.QuestionText = "Is the reporter allowed to accept gifts?" },
			reason: ReasonNoQuestionWord,
		},
		{
			name:   "no verb",
			mutate: func(q *Question) { q.QuestionText = "Which reporter ethics rule applies here?" },
			reason: ReasonNoVerb,
		},
		{
			name:   "two wrong answers",
			mutate: func(q *Question) { q.WrongAnswers = q.WrongAnswers[:2] },
			reason: ReasonWrongAnswerCount,
		},
		{
			name:   "empty correct answer",
			mutate: func(q *Question) { q.CorrectAnswer = "  " },
			reason: ReasonEmptyAnswer,
		},
		{
			name:   "single word answer",
			mutate: func(q *Question) { q.WrongAnswers[1] = "Resign" },
			reason: ReasonShortAnswer,
		},
		{
			name:   "duplicate answers differ only in case",
			mutate: func(q *Question) { q.WrongAnswers[2] = "IGNORE IT ENTIRELY." },
			reason: ReasonDuplicateAnswer,
		},
		{
			name:   "wrong answer repeats question",
			mutate: func(q *Question) { q.WrongAnswers[0] = "discovering a conflict" },
			reason: ReasonAnswerInQuestion,
		},
		{
			name:   "unknown category",
			mutate: func(q *Question) { q.Category = "Astronomy" },
			reason: ReasonUnknownCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuestion()
			q.WrongAnswers = append([]string(nil), q.WrongAnswers...)
			tt.mutate(&q)

			res := qc.CheckQuestion(q)
			require.NotNil(t, res)
			if tt.reason == "" {
				assert.Equal(t, ActionAccept, res.Action)
				assert.Nil(t, res.Rejection)
				return
			}
			assert.Equal(t, ActionReject, res.Action)
			require.NotNil(t, res.Rejection)
			assert.Equal(t, tt.reason, res.Rejection.Reason)
		})
	}
}

func TestQuestionChecker_CorrectAnswerMayQuoteQuestion(t *testing.T) {
	qc := NewQuestionChecker(DefaultTaxonomy())

	q := validQuestion()
	q.CorrectAnswer = "discovering a conflict"
	assert.Equal(t, ActionAccept, qc.CheckQuestion(q).Action)
}

func TestRejection_Error(t *testing.T) {
	r := reject(ReasonShortAnswer, strings.Repeat("x", 200))
	assert.Equal(t, strings.Repeat("x", 80)+"...", r.Snippet)
	assert.True(t, strings.HasPrefix(r.Error(), "short_answer: "))
}
