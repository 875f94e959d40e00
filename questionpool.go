package studypool

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Store persists curated questions. SaveQuestions is all-or-nothing per
// call and inserts each question only if neither its content hash nor its
// (question text, category) pair is already present.
type Store interface {
	SaveQuestions(ctx context.Context, source string, questions []Question) (SaveResult, error)
	CountByCategory(ctx context.Context, category string) (int, error)
	Questions(ctx context.Context, category string) ([]Question, error)
}

// SaveResult reports what a save did
type SaveResult struct {
	Inserted   []Question
	Duplicates []Question
}

// QuestionPool is an in-memory Store keyed by content hash. It backs dry
// runs and tests.
type QuestionPool struct {
	mu        sync.RWMutex
	questions map[string]Question // content hash -> question
	texts     map[string]string   // text key -> content hash
	order     []string            // insertion order of hashes
}

// NewQuestionPool creates an empty pool
func NewQuestionPool() *QuestionPool {
	return &QuestionPool{
		questions: make(map[string]Question),
		texts:     make(map[string]string),
	}
}

// SaveQuestions inserts the questions that are not already present
func (qp *QuestionPool) SaveQuestions(ctx context.Context, source string, questions []Question) (SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return SaveResult{}, err
	}

	qp.mu.Lock()
	defer qp.mu.Unlock()

	var res SaveResult
	for _, q := range questions {
		if q.ContentHash == "" {
			q.ContentHash = ContentHash(q)
		}
		if q.SourceFile == "" {
			q.SourceFile = source
		}
		key := textKey(q.QuestionText, q.Category)
		if _, ok := qp.questions[q.ContentHash]; ok {
			res.Duplicates = append(res.Duplicates, q)
			continue
		}
		if _, ok := qp.texts[key]; ok {
			res.Duplicates = append(res.Duplicates, q)
			continue
		}
		qp.questions[q.ContentHash] = q
		qp.texts[key] = q.ContentHash
		qp.order = append(qp.order, q.ContentHash)
		res.Inserted = append(res.Inserted, q)
	}
	return res, nil
}

// CountByCategory returns the number of questions in a category
func (qp *QuestionPool) CountByCategory(ctx context.Context, category string) (int, error) {
	qp.mu.RLock()
	defer qp.mu.RUnlock()

	n := 0
	for _, q := range qp.questions {
		if strings.EqualFold(q.Category, category) {
			n++
		}
	}
	return n, nil
}

// Questions returns the questions of a category in insertion order; an
// empty category returns all of them.
func (qp *QuestionPool) Questions(ctx context.Context, category string) ([]Question, error) {
	qp.mu.RLock()
	defer qp.mu.RUnlock()

	out := make([]Question, 0, len(qp.order))
	for _, h := range qp.order {
		q := qp.questions[h]
		if category == "" || strings.EqualFold(q.Category, category) {
			out = append(out, q)
		}
	}
	return out, nil
}

// Size returns the number of questions in the pool
func (qp *QuestionPool) Size() int {
	qp.mu.RLock()
	defer qp.mu.RUnlock()
	return len(qp.questions)
}

// CategoryCounts returns question counts per category, sorted by name
func (qp *QuestionPool) CategoryCounts() []CategoryCount {
	qp.mu.RLock()
	defer qp.mu.RUnlock()

	counts := make(map[string]int)
	for _, q := range qp.questions {
		counts[q.Category]++
	}
	return sortedCounts(counts)
}

// CategoryCount is a category name and its persisted question count
type CategoryCount struct {
	Category string
	Count    int
}

func sortedCounts(counts map[string]int) []CategoryCount {
	out := make([]CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, CategoryCount{Category: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
