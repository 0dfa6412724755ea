// Profile Import Lambda entry point, triggered by CSV uploads to S3
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"studybuddy-matcher/internal/app"
	"studybuddy-matcher/internal/config"
	"studybuddy-matcher/internal/handlers"
	s3service "studybuddy-matcher/internal/services/s3"
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

	a, err := app.New(ctx, cfg)
	if err != nil {
		panic("Failed to create handler: " + err.Error())
	}
	defer a.Close()

	objects, err := s3service.NewService(ctx, cfg)
	if err != nil {
		panic("Failed to create S3 service: " + err.Error())
	}

	importer := handlers.NewProfileImporter(a.Profiles, a.CacheInvalidator())
	handler := handlers.NewProfileImportHandler(objects, importer)

	lambda.Start(handler.Handle)
}
