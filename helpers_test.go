package studypool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const letteredDoc = `Professional Standards & Ethics Questions:

1. What must a reporter do upon discovering a conflict of interest?
A. Notify all parties within 3 days.
B. Ignore the conflict entirely.
C. Resign from the profession immediately.
D. Wait for a formal inquiry.
Correct: A

2. Who should receive a copy of the certified transcript?
A. All parties who order it
B. Only the presiding judge
C. Only the court clerk
D. The jury foreman alone
Answer: A
`

const numberedDoc = `Q1: Which format is required for a certified transcript page?
1. Double-spaced numbered lines
2. Single-spaced unnumbered lines
3. Handwritten pages in ink
4. Any format the attorney prefers
Answer: 1

Q2: How many days does a deponent have to read and sign?
1) Thirty days after notice
2) Ten days after notice
3) Sixty days after notice
4) Ninety days after notice
Correct answer: 2
`

const corruptPDF = "%PDF-1.4\n%%EOF\n"

// buildPDF assembles an uncompressed PDF with one page per entry, each page
// drawing its lines top to bottom in a WinAnsi Helvetica font. Lines must not
// contain parentheses or backslashes.
func buildPDF(pages ...[]string) string {
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"", // page tree, filled once the kids are known
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var kids []string
	for _, lines := range pages {
		var content strings.Builder
		content.WriteString("BT /F1 12 Tf 72 720 Td 14 TL\n")
		for _, line := range lines {
			if line != "" {
				fmt.Fprintf(&content, "(%s) Tj ", line)
			}
			content.WriteString("T*\n")
		}
		content.WriteString("ET")

		pageID := len(objs) + 1
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", pageID+1),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
		)
		kids = append(kids, fmt.Sprintf("%d 0 R", pageID))
	}
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.String()
}

// sidebarPDFPage holds one complete lettered question
var sidebarPDFPage = []string{
	"Court Procedures Questions:",
	"",
	"1. What is the purpose of a sidebar conference during a trial?",
	"A. To discuss matters outside the jury's hearing",
	"B. To let the jury deliberate early",
	"C. To swear in a new witness",
	"D. To read the verdict aloud",
	"Correct: A",
}

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// testConfig returns a config rooted in a temp dir with backfill disabled
func testConfig(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Pipeline.InputDir = filepath.Join(root, "input")
	cfg.Pipeline.OutputDir = filepath.Join(root, "output")
	cfg.Backfill.Threshold = 0
	cfg.Retry = RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	require.NoError(t, os.MkdirAll(cfg.Pipeline.InputDir, 0o755))
	return cfg
}

// fakeGenerator returns unique valid questions and records every request
type fakeGenerator struct {
	mu       sync.Mutex
	requests []int
	topics   []string
	next     int

	// extra is added to every response beyond the requested count
	extra int
	// repeat makes every response the same single question
	repeat bool
	// errs are returned, in order, before any success
	errs []error

	distractors    []string
	distractorErr  error
	distractorCall int
}

func (f *fakeGenerator) GenerateQuestions(ctx context.Context, topic string, count int) ([]GeneratedQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, count)
	f.topics = append(f.topics, topic)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}

	if f.repeat {
		return []GeneratedQuestion{generatedQuestion(0, topic)}, nil
	}

	out := make([]GeneratedQuestion, 0, count+f.extra)
	for i := 0; i < count+f.extra; i++ {
		f.next++
		out = append(out, generatedQuestion(f.next, topic))
	}
	return out, nil
}

func (f *fakeGenerator) GenerateDistractors(ctx context.Context, question, correct, category string, count int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.distractorCall++
	if f.distractorErr != nil {
		return nil, f.distractorErr
	}
	return f.distractors, nil
}

func generatedQuestion(n int, topic string) GeneratedQuestion {
	return GeneratedQuestion{
		QuestionText:  fmt.Sprintf("What is rule number %d of %s?", n, topic),
		CorrectAnswer: fmt.Sprintf("Rule %d requires a written record", n),
		WrongAnswers: []string{
			fmt.Sprintf("Rule %d requires nothing at all", n),
			fmt.Sprintf("Rule %d was repealed long ago", n),
			fmt.Sprintf("Rule %d applies only on weekends", n),
		},
	}
}

// statusError carries an HTTP status like the generator client errors do
type statusError struct {
	code int
}

func (e *statusError) Error() string       { return fmt.Sprintf("status %d", e.code) }
func (e *statusError) HTTPStatusCode() int { return e.code }

func seedQuestions(t *testing.T, store Store, category string, n int) {
	t.Helper()
	qs := make([]Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, NewQuestion(
			fmt.Sprintf("What is seeded question number %d?", i),
			fmt.Sprintf("Seeded answer %d", i),
			[]string{fmt.Sprintf("Wrong answer %d a", i), fmt.Sprintf("Wrong answer %d b", i), fmt.Sprintf("Wrong answer %d c", i)},
			category, "seed.txt",
		))
	}
	res, err := store.SaveQuestions(context.Background(), "seed.txt", qs)
	require.NoError(t, err)
	require.Len(t, res.Inserted, n)
}
