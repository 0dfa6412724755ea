// Package app assembles the service graph shared by the server and the Lambda functions.
package app

import (
	"context"
	"fmt"

	"studybuddy-matcher/internal/config"
	"studybuddy-matcher/internal/handlers"
	"studybuddy-matcher/internal/metrics"
	"studybuddy-matcher/internal/services/cache"
	"studybuddy-matcher/internal/services/database"
	"studybuddy-matcher/internal/services/matcher"
	"studybuddy-matcher/internal/services/ses"
	"studybuddy-matcher/internal/utils"
)

// App holds the connected dependencies. Cache and Notifier are nil when not configured.
type App struct {
	Config   *config.Config
	DB       *database.DB
	Profiles *database.ProfileRepository
	Matches  *database.MatchRepository
	Cache    *cache.PartnerCache
	Notifier *ses.Service
	Matcher  *matcher.Service
}

// New connects to PostgreSQL and, when configured, Redis and SES.
// Redis and SES failures are logged and leave the feature disabled.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := utils.GetLogger()
	metrics.Init()

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{
		Config:   cfg,
		DB:       db,
		Profiles: database.NewProfileRepository(db),
		Matches:  database.NewMatchRepository(db),
	}

	opts := []matcher.Option{matcher.WithMatchStore(a.Matches)}

	if cfg.CacheEnabled() {
		pc, err := cache.New(ctx, cfg)
		if err != nil {
			logger.Warn("Partner cache disabled", utils.String("addr", cfg.RedisAddr), utils.Error(err))
		} else {
			a.Cache = pc
			opts = append(opts, matcher.WithCache(pc))
		}
	}

	if cfg.SESSenderEmail != "" {
		notifier, err := ses.NewService(ctx, cfg)
		if err != nil {
			logger.Warn("Notifications disabled", utils.Error(err))
		} else {
			a.Notifier = notifier
			opts = append(opts, matcher.WithNotifier(notifier))
		}
	}

	a.Matcher = matcher.NewService(matcher.NewEngine(cfg.MatchWorkers), a.Profiles, opts...)
	return a, nil
}

// CacheInvalidator returns the cache as an invalidator, or nil when caching is off.
func (a *App) CacheInvalidator() handlers.CacheInvalidator {
	if a.Cache == nil {
		return nil
	}
	return a.Cache
}

// HealthChecks lists the probes for every connected dependency.
func (a *App) HealthChecks() []handlers.HealthCheck {
	checks := []handlers.HealthCheck{{Name: "database", Check: a.DB.HealthCheck}}
	if a.Cache != nil {
		checks = append(checks, handlers.HealthCheck{Name: "cache", Check: a.Cache.Ping})
	}
	return checks
}

// Close releases every connection.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			utils.GetLogger().Warn("Failed to close cache", utils.Error(err))
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
