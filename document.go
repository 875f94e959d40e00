package studypool

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

const (
	mimePDF  = "application/pdf"
	mimeText = "text/plain"
)

// Document is a source document made of independently readable pages
type Document interface {
	NumPages() int
	// PageText returns the raw text of page i (1-based)
	PageText(i int) (string, error)
	Close() error
}

// CheckFile validates that path is an acceptable input document and returns
// its sniffed MIME type. Failures are returned as *ProcessingError.
func CheckFile(path string, maxSize int64) (string, error) {
	name := filepath.Base(path)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", NewProcessingError(KindFileNotFound, name, "file not found: %s", path)
		}
		return "", NewProcessingError(KindFileNotFound, name, "failed to stat file: %v", err)
	}
	if info.IsDir() {
		return "", NewProcessingError(KindInvalidFileType, name, "path is a directory")
	}
	if info.Size() == 0 {
		return "", NewProcessingError(KindEmptyFile, name, "file is empty")
	}
	if info.Size() > maxSize {
		return "", NewProcessingError(KindFileTooLarge, name, "file exceeds size limit of %.1fMB", float64(maxSize)/1024/1024)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", NewProcessingError(KindInvalidFileType, name, "failed to detect file type: %v", err)
	}
	switch {
	case mtype.Is(mimePDF):
		return mimePDF, nil
	case isTextFamily(mtype):
		return mimeText, nil
	}
	return "", NewProcessingError(KindInvalidFileType, name, "invalid file type: %s", mtype.String())
}

func isTextFamily(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(mimeText) {
			return true
		}
	}
	return false
}

// OpenDocument opens a validated file as a Document. A PDF that cannot be
// parsed or has no pages is reported as INVALID_STRUCTURE.
func OpenDocument(path, mimeType string) (Document, error) {
	name := filepath.Base(path)

	switch mimeType {
	case mimePDF:
		doc, err := openPDF(path)
		if err != nil {
			return nil, NewProcessingError(KindInvalidStructure, name, "failed to open PDF: %v", err)
		}
		if doc.NumPages() == 0 {
			doc.Close()
			return nil, NewProcessingError(KindInvalidStructure, name, "PDF file has no pages")
		}
		return doc, nil
	case mimeText:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewProcessingError(KindInvalidStructure, name, "failed to read file: %v", err)
		}
		doc := newTextDocument(string(data))
		if doc.NumPages() == 0 {
			return nil, NewProcessingError(KindInvalidStructure, name, "text file has no pages")
		}
		return doc, nil
	}
	return nil, NewProcessingError(KindInvalidFileType, name, "unsupported document type: %s", mimeType)
}

type pdfDocument struct {
	file   *os.File
	reader *pdf.Reader
}

func openPDF(path string) (doc *pdfDocument, err error) {
	// the pdf package panics on some malformed trailers
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	return &pdfDocument{file: f, reader: r}, nil
}

func (d *pdfDocument) NumPages() (n int) {
	defer func() {
		if r := recover(); r != nil {
			n = 0
		}
	}()
	return d.reader.NumPage()
}

func (d *pdfDocument) PageText(i int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("page %d: %v", i, r)
		}
	}()

	p := d.reader.Page(i)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

func (d *pdfDocument) Close() error {
	return d.file.Close()
}

// textDocument treats form feeds as page breaks
type textDocument struct {
	pages []string
}

func newTextDocument(content string) *textDocument {
	content = strings.TrimRight(content, "\f")
	if content == "" {
		return &textDocument{}
	}
	return &textDocument{pages: strings.Split(content, "\f")}
}

func (d *textDocument) NumPages() int { return len(d.pages) }

func (d *textDocument) PageText(i int) (string, error) {
	if i < 1 || i > len(d.pages) {
		return "", fmt.Errorf("page %d out of range", i)
	}
	return d.pages[i-1], nil
}

func (d *textDocument) Close() error { return nil }

// BackupFile copies path into backupDir as <stem>_<UTC timestamp><ext> and
// returns the backup path.
func BackupFile(path, backupDir string, now time.Time) (string, error) {
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	dst := filepath.Join(backupDir, fmt.Sprintf("%s_%s%s", stem, now.UTC().Format("20060102T150405Z"), ext))

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to copy backup: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close backup: %w", err)
	}
	return dst, nil
}
