package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"property_valuation/pkg/core/config"
	"property_valuation/pkg/core/forecast"
	"property_valuation/pkg/core/logging"
	"property_valuation/pkg/core/pipeline"
	"property_valuation/pkg/core/store"
	"property_valuation/pkg/models"

	"gopkg.in/yaml.v2"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults apply when empty)")
	propertyPath := flag.String("property", "", "Path to property YAML")
	forecastsPath := flag.String("forecasts", "", "Path to forecasts YAML (stored forecasts are used when empty)")
	numScenarios := flag.Int("n", 0, "Number of scenarios (0 = config)")
	seed := flag.Int64("seed", 0, "Random seed (0 = config, then time based)")
	workers := flag.Int("workers", 0, "Concurrent scenario evaluations (0 = config)")
	noCorr := flag.Bool("no-corr", false, "Sample parameters independently")
	sqlitePath := flag.String("sqlite", "", "Persist to this SQLite database")
	baseCase := flag.Bool("base-case", false, "Value the point forecasts only")
	flag.Parse()

	if *propertyPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -property is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Simulation.Workers = *workers
	}
	if *sqlitePath != "" {
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.SQLitePath = *sqlitePath
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	logger.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	rows, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open store")
	}
	defer rows.Close()
	repo := pipeline.NewRepository(rows)

	// 2. Forecasts
	var provider forecast.Provider = repo.Forecasts()
	if *forecastsPath != "" {
		static, err := forecast.LoadFile(*forecastsPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load forecasts")
		}
		if err := repo.SaveForecasts(ctx, static.All()); err != nil {
			logger.WithError(err).Fatal("Failed to store forecasts")
		}
		provider = static
	}
	provider = forecast.NewCachedProvider(provider, 10*time.Minute)

	// 3. Property
	property, err := loadProperty(*propertyPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load property")
	}

	orch := pipeline.NewPipelineOrchestrator(cfg, provider, logger)
	orch.SetRepository(repo)

	// 4. Run
	var out interface{}
	if *baseCase {
		ev, err := orch.EvaluateBaseCase(ctx, property)
		if err != nil {
			logger.WithError(err).Fatal("Base case valuation failed")
		}
		out = ev.Metrics
	} else {
		opts := pipeline.AnalyzeOptions{NumScenarios: *numScenarios, Seed: *seed}
		if *noCorr {
			off := false
			opts.UseCorrelations = &off
		}
		res, err := orch.Analyze(ctx, property, opts)
		if err != nil {
			logger.WithError(err).Fatal("Analysis failed")
		}
		out = res.Batch.Summary
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.WithError(err).Fatal("Failed to write output")
	}
}

func loadProperty(path string) (*models.Property, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read property %s: %w", path, err)
	}
	var p models.Property
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse property %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
