package studypool

import (
	"strings"

	"go.uber.org/zap"
)

// Global logger and verbose flag
var (
	logger      = zap.NewNop().Sugar()
	verboseMode bool
)

// NewLogger builds a zap logger. Mode "prod" produces JSON output, anything
// else the human-readable development format.
func NewLogger(mode, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zap.ParseAtomicLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Level = lvl

	return cfg.Build()
}

// SetLogger replaces the package logger
func SetLogger(l *zap.Logger) {
	if l == nil {
		logger = zap.NewNop().Sugar()
		return
	}
	logger = l.Sugar()
}

// SetVerbose sets the global verbose mode
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// VerboseLog logs only when verbose mode is enabled
func VerboseLog(msg string, keysAndValues ...interface{}) {
	if verboseMode {
		logger.Infow(msg, keysAndValues...)
	}
}
