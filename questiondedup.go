package studypool

import "strings"

// QuestionDedup drops repeats within a batch before they reach the store.
// A question is a duplicate when its content hash or its
// (question text, category) pair was already seen.
type QuestionDedup struct {
	hashes map[string]bool
	texts  map[string]bool
}

// DedupResult represents the result of deduplication
type DedupResult struct {
	IsDuplicate bool   `json:"is_duplicate"`
	Reason      string `json:"reason"`
}

// NewQuestionDedup creates an empty deduplicator
func NewQuestionDedup() *QuestionDedup {
	return &QuestionDedup{
		hashes: make(map[string]bool),
		texts:  make(map[string]bool),
	}
}

// CheckDuplicate records q and reports whether it was seen before
func (qd *QuestionDedup) CheckDuplicate(q Question) DedupResult {
	hash := q.ContentHash
	if hash == "" {
		hash = ContentHash(q)
	}
	key := textKey(q.QuestionText, q.Category)

	switch {
	case qd.hashes[hash]:
		return DedupResult{IsDuplicate: true, Reason: "content hash already seen"}
	case qd.texts[key]:
		return DedupResult{IsDuplicate: true, Reason: "question text already seen in category"}
	}

	qd.hashes[hash] = true
	qd.texts[key] = true
	return DedupResult{}
}

// Filter returns the questions that are not duplicates, in order, plus the dropped ones
func (qd *QuestionDedup) Filter(questions []Question) (kept, dropped []Question) {
	for _, q := range questions {
		if qd.CheckDuplicate(q).IsDuplicate {
			dropped = append(dropped, q)
			continue
		}
		kept = append(kept, q)
	}
	return kept, dropped
}

// textKey is the secondary uniqueness key shared with the stores
func textKey(questionText, category string) string {
	return strings.ToLower(strings.TrimSpace(questionText)) + "\x00" + strings.ToLower(category)
}
