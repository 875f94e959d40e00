package studypool

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LLMLogger records every generator exchange of one run to <dir>/<runID>.log
type LLMLogger struct {
	file  *os.File
	path  string
	mu    sync.Mutex
	runID string
}

// NewLLMLogger creates the traffic log for a run
func NewLLMLogger(dir, runID string) (*LLMLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s.log", runID))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	ll := &LLMLogger{
		file:  file,
		path:  filename,
		runID: runID,
	}

	ll.Logf("=== Generator Log ===\n")
	ll.Logf("Run ID: %s\n", runID)
	ll.Logf("Started: %s\n", time.Now().UTC().Format(time.RFC3339))
	ll.Logf("=====================\n\n")

	return ll, nil
}

// Path returns the log file path
func (ll *LLMLogger) Path() string {
	return ll.path
}

// Logf writes a formatted log entry with timestamp
func (ll *LLMLogger) Logf(format string, args ...interface{}) {
	ll.mu.Lock()
	defer ll.mu.Unlock()
	ll.logf(format, args...)
}

func (ll *LLMLogger) logf(format string, args ...interface{}) {
	if ll.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(ll.file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
	ll.file.Sync()
}

// LogLLMRequest logs a generator request
func (ll *LLMLogger) LogLLMRequest(module, prompt string) {
	ll.Logf("=== REQUEST (%s) ===\n", module)
	ll.Logf("Prompt:\n%s\n", prompt)
	ll.Logf("=====================\n\n")
}

// LogLLMResponse logs a generator response
func (ll *LLMLogger) LogLLMResponse(module, response string) {
	ll.Logf("=== RESPONSE (%s) ===\n", module)
	ll.Logf("Response:\n%s\n", response)
	ll.Logf("======================\n\n")
}

// LogLLMError logs a failed generator call
func (ll *LLMLogger) LogLLMError(module string, err error) {
	ll.Logf("=== ERROR (%s) ===\n%v\n\n", module, err)
}

// Close closes the log file
func (ll *LLMLogger) Close() error {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	if ll.file == nil {
		return nil
	}
	ll.logf("=== Run Complete ===\n")
	ll.logf("Completed: %s\n", time.Now().UTC().Format(time.RFC3339))
	err := ll.file.Close()
	ll.file = nil
	return err
}
