package studypool

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const batchTimestampLayout = "20060102T150405Z"

// BatchMetadata is the header of a batch file
type BatchMetadata struct {
	Timestamp      string `json:"timestamp"`
	TotalQuestions int    `json:"total_questions"`
	SourceFile     string `json:"source_file"`
}

// Batch is the JSON document written for each processed source file
type Batch struct {
	Metadata  BatchMetadata `json:"metadata"`
	Questions []Question    `json:"questions"`
}

// WriteBatch writes the questions of one source as <dir>/<stem>_<timestamp>.json
// and returns the file path.
func WriteBatch(dir, source string, questions []Question, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if questions == nil {
		questions = []Question{}
	}

	ts := now.UTC().Format(batchTimestampLayout)
	batch := Batch{
		Metadata: BatchMetadata{
			Timestamp:      ts,
			TotalQuestions: len(questions),
			SourceFile:     source,
		},
		Questions: questions,
	}

	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal batch: %w", err)
	}

	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.json", stem, ts))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write batch: %w", err)
	}
	return path, nil
}

// ReadBatch loads a batch file and checks that every stored content hash
// matches the question it belongs to.
func ReadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}

	var batch Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse batch %s: %w", path, err)
	}

	if batch.Metadata.TotalQuestions != len(batch.Questions) {
		return nil, fmt.Errorf("batch %s declares %d questions but holds %d",
			path, batch.Metadata.TotalQuestions, len(batch.Questions))
	}
	for i, q := range batch.Questions {
		if got := ContentHash(q); got != q.ContentHash {
			return nil, fmt.Errorf("batch %s question %d: content hash mismatch", path, i)
		}
	}
	return &batch, nil
}
