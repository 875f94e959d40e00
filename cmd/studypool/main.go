package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"studypool"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file (optional; env vars override)")
		dbPath     = flag.String("db", "", "SQLite database path (overrides config)")
		inputDir   = flag.String("input", "", "Input directory of study materials (overrides config)")
		dryRun     = flag.Bool("dry-run", false, "Process into an in-memory pool without backups, batch files or database writes")
		verbose    = flag.Bool("verbose", false, "Enable verbose debugging output")
	)

	flag.Parse()

	cfg, err := studypool.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *inputDir != "" {
		cfg.Pipeline.InputDir = *inputDir
	}

	zl, err := studypool.NewLogger(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()
	studypool.SetLogger(zl)
	studypool.SetVerbose(*verbose || cfg.Log.Verbose)

	taxonomy, err := studypool.TaxonomyFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to load taxonomy: %v", err)
	}

	ctx := context.Background()
	runID := uuid.NewString()

	var store studypool.Store
	if *dryRun {
		store = studypool.NewQuestionPool()
	} else {
		db, err := studypool.OpenDB(cfg.Database.Path)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.CloseDB()

		if err := db.EnsureCategories(ctx, taxonomy); err != nil {
			log.Fatalf("Failed to seed categories: %v", err)
		}
		store = db
	}

	opts := []studypool.PoolManagerOption{
		studypool.WithRunID(runID),
		studypool.WithDryRun(*dryRun),
	}

	generator, genLog, err := studypool.GeneratorFromConfig(cfg, runID)
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}
	if generator != nil {
		opts = append(opts, studypool.WithGenerator(generator))
	} else {
		log.Printf("OPENAI_API_KEY not set; backfill and generated distractors are disabled")
	}
	if genLog != nil {
		defer genLog.Close()
	}

	manager := studypool.NewPoolManager(*cfg, taxonomy, store, opts...)

	added, errs, err := manager.ProcessStudyMaterials(ctx)
	if err != nil {
		log.Fatalf("Failed to process study materials: %v", err)
	}

	fmt.Printf("Added %d questions\n", added)
	if len(errs) > 0 {
		fmt.Printf("%d errors:\n", len(errs))
		for _, e := range errs {
			fmt.Printf("  %s\n", e)
		}
	}

	if *dryRun {
		pool := store.(*studypool.QuestionPool)
		for _, c := range pool.CategoryCounts() {
			fmt.Printf("  %-40s %d\n", c.Category, c.Count)
		}
	}

	if len(errs) > 0 {
		os.Exit(1)
	}
}
