package studypool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerParser_Formats(t *testing.T) {
	tests := []struct {
		name    string
		section string
		correct string
		wrong   []string
		format  string
	}{
		{
			name:    "inline letter period",
			section: "A. Notify all parties within 3 days. B. Ignore it. C. Resign immediately. D. Wait for inquiry. Correct: A",
			correct: "Notify all parties within 3 days.",
			wrong:   []string{"Ignore it.", "Resign immediately.", "Wait for inquiry."},
			format:  "letter-period",
		},
		{
			name:    "letter paren on lines",
			section: "(A) Plaintiff's counsel\n(B) Defense counsel\n(C) The judge\n(D) The bailiff\nAnswer: C",
			correct: "The judge",
			wrong:   []string{"Plaintiff's counsel", "Defense counsel", "The bailiff"},
			format:  "letter-paren",
		},
		{
			name:    "letter dash",
			section: "A - Verbatim record\nB - Summary notes\nC - Audio only\nD - Minutes\nKey: B",
			correct: "Summary notes",
			wrong:   []string{"Verbatim record", "Audio only", "Minutes"},
			format:  "letter-dash",
		},
		{
			name:    "numbered with digit marker",
			section: "1. Double-spaced lines\n2. Single-spaced lines\n3. Handwritten pages\n4. Any format\nAnswer: 4",
			correct: "Any format",
			wrong:   []string{"Double-spaced lines", "Single-spaced lines", "Handwritten pages"},
			format:  "numbered",
		},
		{
			name:    "phrase marker",
			section: "A. One option\nB. Two option\nC. Three option\nD. Four option\n(B) is correct.",
			correct: "Two option",
			wrong:   []string{"One option", "Three option", "Four option"},
			format:  "letter-period",
		},
		{
			name:    "weak marker",
			section: "A. First choice\nB. Second choice\nC. Third choice\nD. Fourth choice\nThe best pick is option D.",
			correct: "Fourth choice",
			wrong:   []string{"First choice", "Second choice", "Third choice"},
			format:  "letter-period",
		},
		{
			name:    "lowercase marker",
			section: "A. Alpha one\nB. Beta two\nC. Gamma three\nD. Delta four\nCorrect: b",
			correct: "Beta two",
			wrong:   []string{"Alpha one", "Gamma three", "Delta four"},
			format:  "letter-period",
		},
		{
			name:    "lowercase answer line",
			section: "A. Alpha one\nB. Beta two\nC. Gamma three\nD. Delta four\nAnswer: a",
			correct: "Alpha one",
			wrong:   []string{"Beta two", "Gamma three", "Delta four"},
			format:  "letter-period",
		},
		{
			name:    "marker before options",
			section: "Correct answer: D\nA. Alpha one\nB. Beta two\nC. Gamma three\nD. Delta four",
			correct: "Delta four",
			wrong:   []string{"Alpha one", "Beta two", "Gamma three"},
			format:  "letter-period",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewAnswerParser().Parse(tt.section)
			require.NoError(t, err)
			assert.Equal(t, tt.correct, got.Correct)
			assert.Equal(t, tt.wrong, got.Wrong)
			assert.Equal(t, tt.format, got.Format)
		})
	}
}

func TestAnswerParser_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		section string
		want    error
	}{
		{
			name:    "no marker never guesses",
			section: "A. One two\nB. Three four\nC. Five six\nD. Seven eight",
			want:    ErrNoCorrectMarker,
		},
		{
			name:    "marker out of range",
			section: "A. One two\nB. Three four\nC. Five six\nD. Seven eight\nCorrect: E",
			want:    ErrMarkerOutOfRange,
		},
		{
			name:    "plural keyword is not a marker",
			section: "A. One two\nB. Three four\nC. Five six\nD. Seven eight\nSee the answer keys",
			want:    ErrNoCorrectMarker,
		},
		{
			name:    "three options",
			section: "A. One two\nB. Three four\nC. Five six\nCorrect: A",
			want:    ErrAnswerFormatUnrecognized,
		},
		{
			name:    "duplicate options",
			section: "A. Same text\nB. same text\nC. Other text\nD. More text\nCorrect: A",
			want:    ErrAnswerFormatUnrecognized,
		},
		{
			name:    "empty option",
			section: "A. One two\nB.  \nC. Five six\nD. Seven eight\nCorrect: A",
			want:    ErrAnswerFormatUnrecognized,
		},
		{
			name:    "prose",
			section: "The reporter must notify everyone.",
			want:    ErrAnswerFormatUnrecognized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewAnswerParser().Parse(tt.section)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAnswerParser_ParsePartial(t *testing.T) {
	ap := NewAnswerParser()

	t.Run("answer line", func(t *testing.T) {
		got, ok := ap.ParsePartial("Answer: To discuss matters outside the jury's hearing.")
		require.True(t, ok)
		assert.Equal(t, "To discuss matters outside the jury's hearing.", got.Correct)
		assert.Empty(t, got.Wrong)
	})

	t.Run("short enumeration with marker", func(t *testing.T) {
		got, ok := ap.ParsePartial("A. Read and sign\nB. Waive signature\nCorrect: B")
		require.True(t, ok)
		assert.Equal(t, "Waive signature", got.Correct)
		assert.Equal(t, []string{"Read and sign"}, got.Wrong)
	})

	t.Run("free prose", func(t *testing.T) {
		got, ok := ap.ParsePartial("The reporter must notify everyone.")
		require.True(t, ok)
		assert.Equal(t, "The reporter must notify everyone.", got.Correct)
	})

	t.Run("free prose keeps the first sentence", func(t *testing.T) {
		got, ok := ap.ParsePartial("Mr. Smith must sign the certificate.\nIt is then filed with the court. Copies go to counsel.")
		require.True(t, ok)
		assert.Equal(t, "Mr. Smith must sign the certificate.", got.Correct)
	})

	t.Run("labels without marker", func(t *testing.T) {
		_, ok := ap.ParsePartial("A. Read and sign\nB. Waive signature")
		assert.False(t, ok)
	})

	t.Run("single word", func(t *testing.T) {
		_, ok := ap.ParsePartial("Yes")
		assert.False(t, ok)
	})

	t.Run("empty", func(t *testing.T) {
		_, ok := ap.ParsePartial("  ")
		assert.False(t, ok)
	})
}
