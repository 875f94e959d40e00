package studypool

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ErrNoTextContent is returned when no page of a document yields usable text.
var ErrNoTextContent = errors.New("no text content found in document")

// Extraction is the cleaned text of a document plus per-page bookkeeping
type Extraction struct {
	Text           string
	TotalPages     int
	ExtractedPages int
	SkippedPages   int
	PageErrors     []error
}

// TextExtractor turns documents into cleaned, normalized text
type TextExtractor struct {
	pageSeparator string
}

// NewTextExtractor creates a text extractor
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{pageSeparator: "\n\n"}
}

// Extract reads every page independently. A failing page is recorded in
// PageErrors and skipped. When no page has text after cleaning, the
// returned error is ErrNoTextContent and the extraction is still returned.
func (te *TextExtractor) Extract(doc Document) (*Extraction, error) {
	result := &Extraction{TotalPages: doc.NumPages()}

	var sb strings.Builder
	for i := 1; i <= result.TotalPages; i++ {
		raw, err := doc.PageText(i)
		if err != nil {
			result.PageErrors = append(result.PageErrors, fmt.Errorf("error extracting page %d: %w", i, err))
			result.SkippedPages++
			continue
		}

		text := CleanText(raw)
		if text == "" {
			VerboseLog("Empty text content in page", "page", i)
			result.SkippedPages++
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString(te.pageSeparator)
		}
		sb.WriteString(text)
		result.ExtractedPages++
	}

	result.Text = sb.String()
	if result.Text == "" {
		return result, ErrNoTextContent
	}
	return result, nil
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	sentenceJoin    = regexp.MustCompile(`([.?!])([A-Z])`)
	extraBlankLines = regexp.MustCompile(`\n{3,}`)
)

// CleanText normalizes extracted text: NFKC, printable runes only (newlines
// and tabs kept), single spaces, one mark per punctuation run, a space after
// sentence-ending punctuation followed by a capital, and at most one blank
// line in a row.
func CleanText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || unicode.IsPrint(r) {
			return r
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		return -1
	}, s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")

	s = squashPunctuation(s)
	s = sentenceJoin.ReplaceAllString(s, "$1 $2")
	s = extraBlankLines.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// squashPunctuation collapses runs of the same punctuation mark ("???" -> "?")
func squashPunctuation(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	var prev rune
	for _, r := range s {
		if r == prev && strings.ContainsRune("?!.,;:", r) {
			continue
		}
		sb.WriteRune(r)
		prev = r
	}
	return sb.String()
}
