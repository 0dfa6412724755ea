// Health Check Lambda entry point
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"studybuddy-matcher/internal/app"
	"studybuddy-matcher/internal/config"
	"studybuddy-matcher/internal/handlers"
	"studybuddy-matcher/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()

	ctx := context.Background()

	// A failed connection is reported as degraded rather than crashing the function.
	var handler *handlers.HealthHandler
	a, err := app.New(ctx, cfg)
	if err != nil {
		utils.Logger.Warn("Running health check without database", utils.Error(err))
		connErr := err
		handler = handlers.NewHealthHandler(handlers.HealthCheck{
			Name:  "database",
			Check: func(context.Context) error { return connErr },
		})
	} else {
		defer a.Close()
		handler = handlers.NewHealthHandler(a.HealthChecks()...)
	}

	lambda.Start(handler.Handle)
}
