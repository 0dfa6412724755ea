// Notify Partners Lambda entry point
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

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		panic("Failed to create handler: " + err.Error())
	}
	defer a.Close()

	if a.Notifier == nil {
		panic("SES_SENDER_EMAIL must be set for partner notifications")
	}

	handler := handlers.NewNotifyHandler(a.Matcher)

	lambda.Start(handler.Handle)
}
