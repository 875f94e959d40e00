package studypool

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processingKind(t *testing.T, err error) ErrorKind {
	t.Helper()
	var pe *ProcessingError
	require.True(t, errors.As(err, &pe), "expected *ProcessingError, got %v", err)
	return pe.Kind
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("text", func(t *testing.T) {
		mtype, err := CheckFile(writeFile(t, dir, "doc1.txt", letteredDoc), 1<<20)
		require.NoError(t, err)
		assert.Equal(t, mimeText, mtype)
	})

	t.Run("pdf", func(t *testing.T) {
		mtype, err := CheckFile(writeFile(t, dir, "doc2.pdf", corruptPDF), 1<<20)
		require.NoError(t, err)
		assert.Equal(t, mimePDF, mtype)
	})

	tests := []struct {
		name    string
		path    func() string
		maxSize int64
		kind    ErrorKind
	}{
		{
			name:    "missing",
			path:    func() string { return filepath.Join(dir, "nope.txt") },
			maxSize: 1 << 20,
			kind:    KindFileNotFound,
		},
		{
			name:    "empty",
			path:    func() string { return writeFile(t, dir, "empty.txt", "") },
			maxSize: 1 << 20,
			kind:    KindEmptyFile,
		},
		{
			name:    "too large",
			path:    func() string { return writeFile(t, dir, "big.txt", letteredDoc) },
			maxSize: 10,
			kind:    KindFileTooLarge,
		},
		{
			name:    "binary",
			path:    func() string { return writeFile(t, dir, "blob.txt", "\x07\x07\x07\x07binary data") },
			maxSize: 1 << 20,
			kind:    KindInvalidFileType,
		},
		{
			name: "directory",
			path: func() string {
				p := filepath.Join(dir, "sub")
				require.NoError(t, os.MkdirAll(p, 0o755))
				return p
			},
			maxSize: 1 << 20,
			kind:    KindInvalidFileType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CheckFile(tt.path(), tt.maxSize)
			require.Error(t, err)
			assert.Equal(t, tt.kind, processingKind(t, err))
		})
	}
}

func TestOpenDocument_CorruptPDF(t *testing.T) {
	path := writeFile(t, t.TempDir(), "doc2.pdf", corruptPDF)

	doc, err := OpenDocument(path, mimePDF)
	assert.Nil(t, doc)
	require.Error(t, err)
	assert.Equal(t, KindInvalidStructure, processingKind(t, err))
	assert.Contains(t, err.Error(), "doc2.pdf")
}

func TestOpenDocument_PDFPages(t *testing.T) {
	path := writeFile(t, t.TempDir(), "guide.pdf", buildPDF(
		[]string{"What is the role of a court reporter here?", "To make the record"},
		[]string{"Second page text"},
	))

	mtype, err := CheckFile(path, 1<<20)
	require.NoError(t, err)
	require.Equal(t, mimePDF, mtype)

	doc, err := OpenDocument(path, mtype)
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 2, doc.NumPages())
	text, err := doc.PageText(1)
	require.NoError(t, err)
	assert.Equal(t, "What is the role of a court reporter here?\nTo make the record\n", text)

	text, err = doc.PageText(2)
	require.NoError(t, err)
	assert.Equal(t, "Second page text\n", text)

	// past the last page the reader returns nothing
	text, err = doc.PageText(3)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestOpenDocument_ZeroPagePDF(t *testing.T) {
	path := writeFile(t, t.TempDir(), "zero.pdf", buildPDF())

	doc, err := OpenDocument(path, mimePDF)
	assert.Nil(t, doc)
	require.Error(t, err)
	assert.Equal(t, KindInvalidStructure, processingKind(t, err))
	assert.Equal(t, "[INVALID_STRUCTURE] zero.pdf: PDF file has no pages", err.Error())
}

func TestOpenDocument_TextPages(t *testing.T) {
	path := writeFile(t, t.TempDir(), "paged.txt", "page one\fpage two\f")

	doc, err := OpenDocument(path, mimeText)
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 2, doc.NumPages())
	text, err := doc.PageText(2)
	require.NoError(t, err)
	assert.Equal(t, "page two", text)

	_, err = doc.PageText(3)
	assert.Error(t, err)
}

func TestOpenDocument_UnsupportedType(t *testing.T) {
	_, err := OpenDocument("x.png", "image/png")
	assert.Equal(t, KindInvalidFileType, processingKind(t, err))
}

func TestBackupFile(t *testing.T) {
	root := t.TempDir()
	src := writeFile(t, root, "doc1.txt", letteredDoc)

	dst, err := BackupFile(src, filepath.Join(root, "backup"), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "backup", "doc1_20240315T103000Z.txt"), dst)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, letteredDoc, string(data))

	// the original is untouched
	data, err = os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, letteredDoc, string(data))
}
