package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"property_valuation/pkg/api/valuation"
	"property_valuation/pkg/core/config"
	"property_valuation/pkg/core/forecast"
	"property_valuation/pkg/core/logging"
	"property_valuation/pkg/core/pipeline"
	"property_valuation/pkg/core/store"

	"github.com/gorilla/mux"
)

func main() {
	configPath := flag.String("config", os.Getenv("DCF_CONFIG"), "Path to YAML config")
	forecastsPath := flag.String("forecasts", "", "Forecasts YAML to seed the store with")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New("info", "json").WithError(err).Fatal("Failed to load config")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	rows, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open store")
	}
	defer rows.Close()
	repo := pipeline.NewRepository(rows)

	if *forecastsPath != "" {
		static, err := forecast.LoadFile(*forecastsPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load forecasts")
		}
		if err := repo.SaveForecasts(ctx, static.All()); err != nil {
			logger.WithError(err).Fatal("Failed to store forecasts")
		}
		logger.WithField("count", len(static.All())).Info("Seeded forecasts")
	}
	provider := forecast.NewCachedProvider(repo.Forecasts(), 5*time.Minute)

	router := mux.NewRouter()
	valuation.NewHandler(cfg, provider, repo, logger).RegisterRoutes(router)

	server := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", *addr).Info("API server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown failed")
	}
}
