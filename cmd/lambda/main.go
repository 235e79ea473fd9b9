// Command lambda serves the same HTTP handler behind a Lambda Function URL
// (payload format 2.0).
package main

import (
	"context"

	"sortashort_server/config"
	"sortashort_server/logging"
	"sortashort_server/routes"
	"sortashort_server/services"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	// Clients are built once per container and reused across invocations
	svcs, err := services.Initialize(context.Background(), cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize services")
	}

	adapter := httpadapter.NewV2(routes.NewHandler(svcs, cfg))
	lambda.Start(adapter.ProxyWithContext)
}
