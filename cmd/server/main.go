// Package main provides the HTTP API for the study partner matcher.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studybuddy-matcher/internal/app"
	"studybuddy-matcher/internal/config"
	"studybuddy-matcher/internal/handlers"
	"studybuddy-matcher/internal/metrics"
	"studybuddy-matcher/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := utils.InitLogger(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer utils.Sync()
	logger := utils.GetLogger()

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *Server
	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Warn("Could not connect to database, running in scoring-only mode", utils.Error(err))
		server = NewServer(Deps{Health: handlers.NewHealthHandler()})
	} else {
		defer a.Close()
		if err := a.DB.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate database", utils.Error(err))
		}
		server = NewServer(Deps{
			Health:        handlers.NewHealthHandler(a.HealthChecks()...),
			Partners:      a.Matcher,
			Profiles:      a.Profiles,
			Matches:       a.Matches,
			Importer:      handlers.NewProfileImporter(a.Profiles, a.CacheInvalidator()),
			Cache:         a.CacheInvalidator(),
			NotifyEnabled: a.Notifier != nil,
		})
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%s", cfg.Port),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Server shutdown failed", utils.Error(err))
		}
	}()

	logger.Info("StudyBuddy matcher API listening",
		utils.String("addr", httpServer.Addr),
		utils.String("stage", cfg.Stage))

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed", utils.Error(err))
	}
}
