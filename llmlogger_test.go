package studypool

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	ll, err := NewLLMLogger(dir, "run-42")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-42.log"), ll.Path())

	ll.LogLLMRequest("QuestionMaker", "Generate 2 questions")
	ll.LogLLMError("QuestionMaker", errors.New("status 503"))
	require.NoError(t, ll.Close())
	require.NoError(t, ll.Close())

	// writes after close are dropped
	ll.Logf("late entry\n")

	data, err := os.ReadFile(ll.Path())
	require.NoError(t, err)
	log := string(data)
	assert.Contains(t, log, "Run ID: run-42")
	assert.Contains(t, log, "Generate 2 questions")
	assert.Contains(t, log, "=== ERROR (QuestionMaker) ===")
	assert.Contains(t, log, "status 503")
	assert.NotContains(t, log, "late entry")
}
