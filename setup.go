package studypool

// TaxonomyFromConfig loads the configured taxonomy file, or the built-in
// taxonomy when none is configured
func TaxonomyFromConfig(cfg *Config) (*Taxonomy, error) {
	if cfg.TaxonomyPath == "" {
		return DefaultTaxonomy(), nil
	}
	return LoadTaxonomy(cfg.TaxonomyPath)
}

// GeneratorFromConfig returns the external generator, or nil when no API key
// is configured. When a generator log directory is set, traffic is logged to
// <dir>/<runID>.log and the logger is returned for closing.
func GeneratorFromConfig(cfg *Config, runID string) (*QuestionMaker, *LLMLogger, error) {
	if cfg.Generator.APIKey == "" {
		return nil, nil, nil
	}
	maker := NewQuestionMaker(cfg.Generator)
	if cfg.Log.GeneratorLogDir == "" {
		return maker, nil, nil
	}
	ll, err := NewLLMLogger(cfg.Log.GeneratorLogDir, runID)
	if err != nil {
		return nil, nil, err
	}
	maker.SetLogger(ll)
	return maker, ll, nil
}
