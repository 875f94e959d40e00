package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"

	"studypool"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file (optional; env vars override)")
		category   = flag.String("category", "", "Backfill only this category (default: all)")
		threshold  = flag.Int("threshold", 0, "Minimum questions per category (overrides config)")
		verbose    = flag.Bool("verbose", false, "Enable verbose debugging output")
	)

	flag.Parse()

	cfg, err := studypool.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *threshold > 0 {
		cfg.Backfill.Threshold = *threshold
	}

	zl, err := studypool.NewLogger(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()
	studypool.SetLogger(zl)
	studypool.SetVerbose(*verbose || cfg.Log.Verbose)

	if cfg.Backfill.Threshold == 0 {
		log.Fatal("Backfill threshold is 0; nothing to do.")
	}

	taxonomy, err := studypool.TaxonomyFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to load taxonomy: %v", err)
	}

	runID := uuid.NewString()
	generator, genLog, err := studypool.GeneratorFromConfig(cfg, runID)
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}
	if generator == nil {
		log.Fatal("OpenAI API key is required. Set OPENAI_API_KEY or generator.api_key.")
	}
	if genLog != nil {
		defer genLog.Close()
	}

	db, err := studypool.OpenDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.CloseDB()

	ctx := context.Background()
	if err := db.EnsureCategories(ctx, taxonomy); err != nil {
		log.Fatalf("Failed to seed categories: %v", err)
	}

	manager := studypool.NewPoolManager(*cfg, taxonomy, db,
		studypool.WithRunID(runID),
		studypool.WithGenerator(generator),
	)

	var categories []string
	if *category != "" {
		categories = append(categories, *category)
	}

	report, err := manager.Backfill(ctx, categories...)
	if err != nil {
		log.Fatalf("Failed to backfill: %v", err)
	}

	for _, b := range report.Backfill {
		fmt.Printf("%-40s %d -> %d (+%d in %d requests)\n", b.Category, b.Before, b.After, b.Added, len(b.Requests))
	}
	for _, e := range report.ErrorStrings() {
		fmt.Printf("  %s\n", e)
	}

	counts, err := db.CategoryCounts(ctx)
	if err != nil {
		log.Fatalf("Failed to count questions: %v", err)
	}
	fmt.Println("Pool:")
	for _, c := range counts {
		fmt.Printf("  %-40s %d\n", c.Category, c.Count)
	}
}
