package studypool

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Question represents a single curated multiple choice question
type Question struct {
	QuestionText  string   `json:"question_text"`
	CorrectAnswer string   `json:"correct_answer"`
	WrongAnswers  []string `json:"wrong_answers"`
	Category      string   `json:"category"`
	SourceFile    string   `json:"source_file"`
	ContentHash   string   `json:"content_hash"`
}

// NewQuestion builds a question and stamps its content hash
func NewQuestion(text, correct string, wrong []string, category, source string) Question {
	q := Question{
		QuestionText:  text,
		CorrectAnswer: correct,
		WrongAnswers:  append([]string(nil), wrong...),
		Category:      category,
		SourceFile:    source,
	}
	q.ContentHash = ContentHash(q)
	return q
}

// ContentHash returns the dedup digest over the normalized question and answers.
// Category and source do not participate.
func ContentHash(q Question) string {
	parts := make([]string, 0, 2+len(q.WrongAnswers))
	parts = append(parts, normalizeForHash(q.QuestionText), normalizeForHash(q.CorrectAnswer))
	for _, w := range q.WrongAnswers {
		parts = append(parts, normalizeForHash(w))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func normalizeForHash(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Answers returns the correct answer followed by the wrong answers
func (q Question) Answers() []string {
	return append([]string{q.CorrectAnswer}, q.WrongAnswers...)
}

// Category is a fixed taxonomy entry
type Category struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Keywords    []string   `yaml:"keywords"`
	TermPairs   []TermPair `yaml:"term_pairs"`
	Templates   []string   `yaml:"templates"`
}

// TermPair is a category-relevant pair of terms that can stand in for each other
// when building a distractor, e.g. plaintiff/defendant.
type TermPair struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// GeneratedQuestion is a raw question returned by the external generator
type GeneratedQuestion struct {
	QuestionText  string   `json:"question_text"`
	CorrectAnswer string   `json:"correct_answer"`
	WrongAnswers  []string `json:"wrong_answers"`
}

// Stage represents where the pool manager is in a run
type Stage string

const (
	StageIdle          Stage = "idle"
	StagePreparing     Stage = "preparing"
	StageExtracting    Stage = "extracting"
	StageSegmenting    Stage = "segmenting"
	StageParsing       Stage = "parsing"
	StageSynthesizing  Stage = "synthesizing"
	StageValidating    Stage = "validating"
	StageDeduplicating Stage = "deduplicating"
	StagePersisting    Stage = "persisting"
	StageBackfilling   Stage = "backfilling"
	StageDone          Stage = "done"
)

// ErrorKind classifies a processing error
type ErrorKind string

const (
	KindFileNotFound             ErrorKind = "FILE_NOT_FOUND"
	KindEmptyFile                ErrorKind = "EMPTY_FILE"
	KindFileTooLarge             ErrorKind = "FILE_TOO_LARGE"
	KindInvalidFileType          ErrorKind = "INVALID_FILE_TYPE"
	KindInvalidStructure         ErrorKind = "INVALID_STRUCTURE"
	KindPageExtractionError      ErrorKind = "PAGE_EXTRACTION_ERROR"
	KindNoTextContent            ErrorKind = "NO_TEXT_CONTENT"
	KindQuestionParsingError     ErrorKind = "QUESTION_PARSING_ERROR"
	KindAnswerFormatUnrecognized ErrorKind = "ANSWER_FORMAT_UNRECOGNIZED"
	KindValidationError          ErrorKind = "VALIDATION_ERROR"
	KindDuplicateQuestion        ErrorKind = "DUPLICATE_QUESTION"
	KindGeneratorUnavailable     ErrorKind = "GENERATOR_UNAVAILABLE"
	KindSaveError                ErrorKind = "SAVE_ERROR"
	KindBackupError              ErrorKind = "BACKUP_ERROR"
)

// ProcessingError is a recorded, non-fatal pipeline failure tagged with provenance
type ProcessingError struct {
	Kind      ErrorKind `json:"error_kind"`
	Message   string    `json:"message"`
	FileName  string    `json:"file_name"`
	Timestamp time.Time `json:"timestamp"`
}

// NewProcessingError creates a processing error stamped with the current UTC time
func NewProcessingError(kind ErrorKind, fileName, format string, args ...interface{}) *ProcessingError {
	return &ProcessingError{
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		FileName:  fileName,
		Timestamp: time.Now().UTC(),
	}
}

func (e *ProcessingError) Error() string {
	return e.String()
}

func (e *ProcessingError) String() string {
	if e.FileName == "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.FileName, e.Message)
}

// ValidationResult represents the result of checking a question
type ValidationResult struct {
	Action    ValidationAction `json:"action"`
	Rejection *Rejection       `json:"rejection,omitempty"`
}

// ValidationAction represents what the validator decided to do
type ValidationAction string

const (
	ActionAccept ValidationAction = "accept"
	ActionReject ValidationAction = "reject"
)
