package studypool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// PoolManager runs the ingestion pipeline over an input directory and
// backfills categories that are below the configured threshold
type PoolManager struct {
	cfg      Config
	taxonomy *Taxonomy
	store    Store

	generator QuestionGenerator
	retry     RetryPolicy
	now       func() time.Time
	runID     string
	dryRun    bool

	extractor  *TextExtractor
	segmenter  *Segmenter
	parser     *AnswerParser
	classifier *Classifier
	synth      *Synthesizer
	checker    *QuestionChecker

	distractors DistractorGenerator
	stage       Stage
}

// PoolManagerOption configures a PoolManager
type PoolManagerOption func(*PoolManager)

// WithGenerator sets the external question generator. If it can also write
// distractors it is used for synthesis unless WithDistractorGenerator is given.
func WithGenerator(g QuestionGenerator) PoolManagerOption {
	return func(m *PoolManager) {
		m.generator = g
		if d, ok := g.(DistractorGenerator); ok && m.distractors == nil {
			m.distractors = d
		}
	}
}

// WithDistractorGenerator sets the generator used as the last synthesis strategy
func WithDistractorGenerator(d DistractorGenerator) PoolManagerOption {
	return func(m *PoolManager) {
		m.distractors = d
	}
}

// WithRetryPolicy overrides the retry policy built from configuration
func WithRetryPolicy(p RetryPolicy) PoolManagerOption {
	return func(m *PoolManager) {
		m.retry = p
	}
}

// WithClock sets the time source used for backups and batch files
func WithClock(now func() time.Time) PoolManagerOption {
	return func(m *PoolManager) {
		m.now = now
	}
}

// WithRunID sets the run identifier, by default a random UUID
func WithRunID(id string) PoolManagerOption {
	return func(m *PoolManager) {
		m.runID = id
	}
}

// WithDryRun skips backups and batch files
func WithDryRun(dryRun bool) PoolManagerOption {
	return func(m *PoolManager) {
		m.dryRun = dryRun
	}
}

// NewPoolManager creates a pool manager
func NewPoolManager(cfg Config, taxonomy *Taxonomy, store Store, opts ...PoolManagerOption) *PoolManager {
	m := &PoolManager{
		cfg:      cfg,
		taxonomy: taxonomy,
		store:    store,
		retry:    NewRetryPolicy(cfg.Retry),
		now:      time.Now,
		stage:    StageIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.runID == "" {
		m.runID = uuid.NewString()
	}

	m.extractor = NewTextExtractor()
	m.segmenter = NewSegmenter()
	m.parser = NewAnswerParser()
	m.classifier = NewClassifier(taxonomy)
	m.synth = NewSynthesizer(taxonomy, m.distractors, m.retry)
	m.checker = NewQuestionChecker(taxonomy)
	return m
}

// RunReport summarizes a run
type RunReport struct {
	RunID      string
	Added      int
	Documents  []DocumentReport
	Backfill   []BackfillReport
	Errors     []*ProcessingError
	Notices    []*ProcessingError // informational, e.g. DUPLICATE_QUESTION
	StartedAt  time.Time
	FinishedAt time.Time
}

// ErrorStrings returns the errors as flat human-readable strings
func (r *RunReport) ErrorStrings() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.String())
	}
	return out
}

func (r *RunReport) addError(e *ProcessingError) {
	logger.Warnw("Processing error", "kind", e.Kind, "file", e.FileName, "message", e.Message)
	r.Errors = append(r.Errors, e)
}

func (r *RunReport) addNotice(e *ProcessingError) {
	VerboseLog("Processing notice", "kind", e.Kind, "file", e.FileName, "message", e.Message)
	r.Notices = append(r.Notices, e)
}

// DocumentReport summarizes one input document
type DocumentReport struct {
	File         string
	Pages        int
	SkippedPages int
	Candidates   int
	Rejected     int
	Duplicates   int
	Added        int
	BackupFile   string
	BatchFile    string
}

// BackfillReport summarizes backfill of one category
type BackfillReport struct {
	Category string
	Before   int
	After    int
	Added    int
	// Requests holds the count asked of the generator in each round
	Requests []int
}

// Stage returns the current stage
func (m *PoolManager) Stage() Stage {
	return m.stage
}

func (m *PoolManager) setStage(s Stage, keysAndValues ...interface{}) {
	m.stage = s
	VerboseLog("Stage transition", append([]interface{}{"stage", s}, keysAndValues...)...)
}

// ProcessStudyMaterials runs the pipeline and returns the number of questions
// added and the errors as strings. The error is non-nil only when the
// environment cannot be prepared.
func (m *PoolManager) ProcessStudyMaterials(ctx context.Context) (int, []string, error) {
	report, err := m.Run(ctx)
	if err != nil {
		return 0, nil, err
	}
	return report.Added, report.ErrorStrings(), nil
}

// Run processes every document in the input directory, one at a time, then
// backfills. Document failures are recorded in the report and never stop
// the batch.
func (m *PoolManager) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{RunID: m.runID, StartedAt: m.now().UTC()}

	m.setStage(StagePreparing)
	if err := m.prepare(); err != nil {
		m.setStage(StageIdle)
		return nil, err
	}

	files, err := m.listDocuments()
	if err != nil {
		m.setStage(StageIdle)
		return nil, err
	}
	logger.Infow("Starting run", "run_id", m.runID, "input_dir", m.cfg.Pipeline.InputDir, "documents", len(files))

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		doc := m.processDocument(ctx, path, report)
		report.Added += doc.Added
		report.Documents = append(report.Documents, doc)
	}

	if m.cfg.Backfill.Threshold > 0 && ctx.Err() == nil {
		for _, cat := range m.taxonomy.Categories() {
			m.backfillCategory(ctx, cat, report)
		}
	}

	m.setStage(StageDone)
	report.FinishedAt = m.now().UTC()
	logger.Infow("Run complete",
		"run_id", m.runID,
		"added", report.Added,
		"errors", len(report.Errors),
		"notices", len(report.Notices),
	)
	return report, nil
}

// Backfill tops up the named categories, or all of them when none are named
func (m *PoolManager) Backfill(ctx context.Context, categories ...string) (*RunReport, error) {
	var cats []Category
	if len(categories) == 0 {
		cats = m.taxonomy.Categories()
	}
	for _, name := range categories {
		cat, ok := m.taxonomy.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown category: %s", name)
		}
		cats = append(cats, cat)
	}

	report := &RunReport{RunID: m.runID, StartedAt: m.now().UTC()}
	if !m.dryRun {
		if err := os.MkdirAll(m.cfg.Pipeline.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	for _, cat := range cats {
		if ctx.Err() != nil {
			break
		}
		m.backfillCategory(ctx, cat, report)
	}
	m.setStage(StageDone)
	report.FinishedAt = m.now().UTC()
	return report, nil
}

func (m *PoolManager) backupDir() string {
	return filepath.Join(m.cfg.Pipeline.InputDir, m.cfg.Pipeline.BackupDirName)
}

// prepare creates the input, backup and output directories
func (m *PoolManager) prepare() error {
	dirs := []string{m.cfg.Pipeline.InputDir}
	if !m.dryRun {
		dirs = append(dirs, m.backupDir(), m.cfg.Pipeline.OutputDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// listDocuments returns the regular, non-hidden files of the input directory in name order
func (m *PoolManager) listDocuments() ([]string, error) {
	entries, err := os.ReadDir(m.cfg.Pipeline.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !e.Type().IsRegular() {
			continue
		}
		files = append(files, filepath.Join(m.cfg.Pipeline.InputDir, e.Name()))
	}
	return files, nil
}

func (m *PoolManager) processDocument(ctx context.Context, path string, report *RunReport) DocumentReport {
	name := filepath.Base(path)
	doc := DocumentReport{File: name}
	logger.Infow("Processing document", "file", name)

	mimeType, err := CheckFile(path, m.cfg.Pipeline.MaxFileSize)
	if err != nil {
		report.addError(asProcessingError(err, KindInvalidFileType, name))
		return doc
	}

	if !m.dryRun {
		backup, err := BackupFile(path, m.backupDir(), m.now())
		if err != nil {
			report.addError(NewProcessingError(KindBackupError, name, "%v", err))
			return doc
		}
		doc.BackupFile = backup
	}

	m.setStage(StageExtracting, "file", name)
	document, err := OpenDocument(path, mimeType)
	if err != nil {
		report.addError(asProcessingError(err, KindInvalidStructure, name))
		return doc
	}
	defer document.Close()

	extraction, err := m.extractor.Extract(document)
	doc.Pages = extraction.TotalPages
	doc.SkippedPages = extraction.SkippedPages
	for _, pageErr := range extraction.PageErrors {
		report.addError(NewProcessingError(KindPageExtractionError, name, "%v", pageErr))
	}
	if err != nil {
		report.addError(NewProcessingError(KindNoTextContent, name, "%v", err))
		return doc
	}

	m.setStage(StageSegmenting, "file", name)
	candidates := m.segmenter.Segment(extraction.Text)
	doc.Candidates = len(candidates)
	if len(candidates) == 0 {
		report.addError(NewProcessingError(KindQuestionParsingError, name, "no question candidates found"))
		return doc
	}

	var accepted []Question
	for _, c := range candidates {
		q, perr := m.buildQuestion(ctx, c, name)
		if perr != nil {
			doc.Rejected++
			report.addError(perr)
			continue
		}
		accepted = append(accepted, q)
	}

	m.setStage(StageDeduplicating, "file", name)
	kept, dropped := NewQuestionDedup().Filter(accepted)
	for _, q := range dropped {
		doc.Duplicates++
		report.addNotice(NewProcessingError(KindDuplicateQuestion, name, "repeated in document: %s", truncate(q.QuestionText, 80)))
	}
	if len(kept) == 0 {
		return doc
	}

	m.setStage(StagePersisting, "file", name)
	res, err := m.store.SaveQuestions(ctx, name, kept)
	if err != nil {
		report.addError(NewProcessingError(KindSaveError, name, "%v", err))
		return doc
	}
	for _, q := range res.Duplicates {
		doc.Duplicates++
		report.addNotice(NewProcessingError(KindDuplicateQuestion, name, "already in pool: %s", truncate(q.QuestionText, 80)))
	}
	doc.Added = len(res.Inserted)

	if !m.dryRun && len(res.Inserted) > 0 {
		batch, err := WriteBatch(m.cfg.Pipeline.OutputDir, name, res.Inserted, m.now())
		if err != nil {
			report.addError(NewProcessingError(KindSaveError, name, "%v", err))
		}
		doc.BatchFile = batch
	}

	logger.Infow("Processed document",
		"file", name,
		"candidates", doc.Candidates,
		"rejected", doc.Rejected,
		"duplicates", doc.Duplicates,
		"added", doc.Added,
	)
	return doc
}

// buildQuestion turns a candidate into a validated question
func (m *PoolManager) buildQuestion(ctx context.Context, c Candidate, source string) (Question, *ProcessingError) {
	m.setStage(StageParsing, "file", source)
	parsed, err := m.parser.Parse(c.Answers)
	if errors.Is(err, ErrAnswerFormatUnrecognized) {
		if p, ok := m.parser.ParsePartial(c.Answers); ok {
			parsed, err = p, nil
		}
	}
	switch {
	case errors.Is(err, ErrMarkerOutOfRange):
		return Question{}, NewProcessingError(KindQuestionParsingError, source, "%v: %s", err, truncate(c.Question, 80))
	case err != nil:
		return Question{}, NewProcessingError(KindAnswerFormatUnrecognized, source, "%v: %s", err, truncate(c.Question, 80))
	}

	category := m.classifier.Classify(c.Question, c.Category)

	wrong := parsed.Wrong
	if len(wrong) < wrongAnswerCount {
		m.setStage(StageSynthesizing, "file", source)
		wrong, err = m.synth.Synthesize(ctx, c.Question, parsed.Correct, parsed.Wrong, category)
		if err != nil {
			return Question{}, validationError(err, source)
		}
	}

	m.setStage(StageValidating, "file", source)
	q := NewQuestion(c.Question, parsed.Correct, wrong, category, source)
	if res := m.checker.CheckQuestion(q); res.Action == ActionReject {
		return Question{}, validationError(res.Rejection, source)
	}
	return q, nil
}

// backfillCategory requests questions in batches until the category reaches
// the threshold or MaxRounds consecutive rounds add nothing.
func (m *PoolManager) backfillCategory(ctx context.Context, cat Category, report *RunReport) {
	threshold := m.cfg.Backfill.Threshold
	source := generatedSource(cat.Name)

	count, err := m.store.CountByCategory(ctx, cat.Name)
	if err != nil {
		report.addError(NewProcessingError(KindSaveError, source, "failed to count category: %v", err))
		return
	}
	if count >= threshold {
		return
	}

	m.setStage(StageBackfilling, "category", cat.Name)
	br := BackfillReport{Category: cat.Name, Before: count, After: count}
	defer func() {
		report.Added += br.Added
		report.Backfill = append(report.Backfill, br)
	}()

	if m.generator == nil {
		report.addError(NewProcessingError(KindGeneratorUnavailable, source,
			"category %s has %d of %d questions and no generator is configured", cat.Name, count, threshold))
		return
	}

	logger.Infow("Backfilling category", "category", cat.Name, "count", count, "threshold", threshold)

	dedup := NewQuestionDedup()
	stalled := 0
	for count < threshold && stalled < m.cfg.Backfill.MaxRounds && ctx.Err() == nil {
		need := min(m.cfg.Backfill.BatchSize, threshold-count)
		br.Requests = append(br.Requests, need)

		var generated []GeneratedQuestion
		err := m.retry.Do(ctx, "generate questions", func(ctx context.Context) error {
			var err error
			generated, err = m.generator.GenerateQuestions(ctx, cat.Name, need)
			return err
		})
		if err != nil {
			report.addError(NewProcessingError(KindGeneratorUnavailable, source, "%v", err))
			return
		}
		if len(generated) > need {
			generated = generated[:need]
		}

		var valid []Question
		for _, g := range generated {
			q := NewQuestion(strings.TrimSpace(g.QuestionText), strings.TrimSpace(g.CorrectAnswer), trimAll(g.WrongAnswers), cat.Name, source)
			if res := m.checker.CheckQuestion(q); res.Action == ActionReject {
				report.addError(validationError(res.Rejection, source))
				continue
			}
			if dedup.CheckDuplicate(q).IsDuplicate {
				report.addNotice(NewProcessingError(KindDuplicateQuestion, source, "repeated by generator: %s", truncate(q.QuestionText, 80)))
				continue
			}
			valid = append(valid, q)
		}

		if len(valid) > 0 {
			res, err := m.store.SaveQuestions(ctx, source, valid)
			if err != nil {
				report.addError(NewProcessingError(KindSaveError, source, "%v", err))
				return
			}
			for _, q := range res.Duplicates {
				report.addNotice(NewProcessingError(KindDuplicateQuestion, source, "already in pool: %s", truncate(q.QuestionText, 80)))
			}
			br.Added += len(res.Inserted)

			if !m.dryRun && len(res.Inserted) > 0 {
				if _, err := WriteBatch(m.cfg.Pipeline.OutputDir, source, res.Inserted, m.now()); err != nil {
					report.addError(NewProcessingError(KindSaveError, source, "%v", err))
				}
			}
		}

		next, err := m.store.CountByCategory(ctx, cat.Name)
		if err != nil {
			report.addError(NewProcessingError(KindSaveError, source, "failed to count category: %v", err))
			return
		}
		if next > count {
			stalled = 0
		} else {
			stalled++
		}
		count = next
		br.After = count
	}

	if count < threshold {
		logger.Warnw("Backfill stopped below threshold", "category", cat.Name, "count", count, "threshold", threshold)
	}
}

func validationError(err error, source string) *ProcessingError {
	var r *Rejection
	if errors.As(err, &r) {
		return NewProcessingError(KindValidationError, source, "%s: %q", r.Reason, r.Snippet)
	}
	return NewProcessingError(KindValidationError, source, "%v", err)
}

// asProcessingError keeps typed errors and wraps anything else as kind
func asProcessingError(err error, kind ErrorKind, fileName string) *ProcessingError {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe
	}
	return NewProcessingError(kind, fileName, "%v", err)
}

// generatedSource is the provenance label of backfilled questions
func generatedSource(category string) string {
	slug := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '_'
	}, category)
	return "generated_" + slug
}

func trimAll(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
