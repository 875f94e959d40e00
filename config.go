package studypool

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration of a pipeline run.
type Config struct {
	Pipeline     PipelineConfig  `yaml:"pipeline"`
	Backfill     BackfillConfig  `yaml:"backfill"`
	Retry        RetryConfig     `yaml:"retry"`
	Generator    GeneratorConfig `yaml:"generator"`
	Database     DatabaseConfig  `yaml:"database"`
	Log          LogConfig       `yaml:"log"`
	TaxonomyPath string          `yaml:"taxonomy_path" env:"STUDYPOOL_TAXONOMY_PATH"`
}

// PipelineConfig holds document ingestion settings.
type PipelineConfig struct {
	InputDir      string `yaml:"input_dir"       env:"STUDYPOOL_INPUT_DIR"       env-default:"study_materials"`
	OutputDir     string `yaml:"output_dir"      env:"STUDYPOOL_OUTPUT_DIR"      env-default:"processed_questions"`
	BackupDirName string `yaml:"backup_dir_name" env:"STUDYPOOL_BACKUP_DIR_NAME" env-default:"backup"`
	MaxFileSize   int64  `yaml:"max_file_size"   env:"STUDYPOOL_MAX_FILE_SIZE"   env-default:"20971520"`
}

// BackfillConfig controls topping up under-populated categories.
type BackfillConfig struct {
	Threshold int `yaml:"threshold"  env:"STUDYPOOL_BACKFILL_THRESHOLD"  env-default:"50"`
	BatchSize int `yaml:"batch_size" env:"STUDYPOOL_BACKFILL_BATCH_SIZE" env-default:"20"`
	MaxRounds int `yaml:"max_rounds" env:"STUDYPOOL_BACKFILL_MAX_ROUNDS" env-default:"10"`
}

// RetryConfig holds the generator retry policy.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"    env:"STUDYPOOL_RETRY_MAX_ATTEMPTS"    env-default:"3"`
	BaseDelay      time.Duration `yaml:"base_delay"      env:"STUDYPOOL_RETRY_BASE_DELAY"      env-default:"2s"`
	MaxDelay       time.Duration `yaml:"max_delay"       env:"STUDYPOOL_RETRY_MAX_DELAY"       env-default:"30s"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout" env:"STUDYPOOL_RETRY_ATTEMPT_TIMEOUT" env-default:"30s"`
}

// GeneratorConfig holds the OpenAI-compatible generator settings.
// An empty APIKey disables the generator.
type GeneratorConfig struct {
	APIKey  string `yaml:"api_key"  env:"OPENAI_API_KEY"`
	BaseURL string `yaml:"base_url" env:"STUDYPOOL_GENERATOR_BASE_URL"`
	Model   string `yaml:"model"    env:"STUDYPOOL_GENERATOR_MODEL" env-default:"gpt-4o"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"STUDYPOOL_DB_PATH" env-default:"./studypool.db"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Mode            string `yaml:"mode"              env:"STUDYPOOL_LOG_MODE"  env-default:"dev"`
	Level           string `yaml:"level"             env:"STUDYPOOL_LOG_LEVEL" env-default:"info"`
	Verbose         bool   `yaml:"verbose"           env:"STUDYPOOL_VERBOSE"`
	GeneratorLogDir string `yaml:"generator_log_dir" env:"STUDYPOOL_GENERATOR_LOG_DIR"`
}

// LoadConfig reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults. An empty path loads ENV + defaults only.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate performs business-rule validation on the loaded configuration.
func (c *Config) Validate() error {
	if c.Pipeline.InputDir == "" {
		return fmt.Errorf("pipeline.input_dir must be set")
	}
	if c.Pipeline.OutputDir == "" {
		return fmt.Errorf("pipeline.output_dir must be set")
	}
	if c.Pipeline.BackupDirName == "" {
		return fmt.Errorf("pipeline.backup_dir_name must be set")
	}
	if c.Pipeline.MaxFileSize <= 0 {
		return fmt.Errorf("pipeline.max_file_size must be > 0 (got %d)", c.Pipeline.MaxFileSize)
	}
	if c.Backfill.Threshold < 0 {
		return fmt.Errorf("backfill.threshold must be >= 0 (got %d)", c.Backfill.Threshold)
	}
	if c.Backfill.BatchSize <= 0 {
		return fmt.Errorf("backfill.batch_size must be > 0 (got %d)", c.Backfill.BatchSize)
	}
	if c.Backfill.MaxRounds <= 0 {
		return fmt.Errorf("backfill.max_rounds must be > 0 (got %d)", c.Backfill.MaxRounds)
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0 (got %d)", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("retry delays must be >= 0")
	}
	return nil
}

// DefaultConfig returns the configuration produced by the env-default tags
// alone, without reading the environment.
func DefaultConfig() Config {
	return Config{
		Pipeline: PipelineConfig{
			InputDir:      "study_materials",
			OutputDir:     "processed_questions",
			BackupDirName: "backup",
			MaxFileSize:   20 * 1024 * 1024,
		},
		Backfill: BackfillConfig{Threshold: 50, BatchSize: 20, MaxRounds: 10},
		Retry: RetryConfig{
			MaxAttempts:    3,
			BaseDelay:      2 * time.Second,
			MaxDelay:       30 * time.Second,
			AttemptTimeout: 30 * time.Second,
		},
		Generator: GeneratorConfig{Model: "gpt-4o"},
		Database:  DatabaseConfig{Path: "./studypool.db"},
		Log:       LogConfig{Mode: "dev", Level: "info"},
	}
}
