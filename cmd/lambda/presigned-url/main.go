// Presigned URL Lambda entry point
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

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

	svc, err := s3service.NewService(context.Background(), cfg)
	if err != nil {
		panic("Failed to create S3 service: " + err.Error())
	}

	handler := handlers.NewPresignedURLHandler(svc)

	lambda.Start(handler.Handle)
}
