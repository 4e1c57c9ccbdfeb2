package main

import (
	"context"

	"scenario-writing-lab/internal/app"
	"scenario-writing-lab/internal/config"
	"scenario-writing-lab/internal/lambdaproxy"
	"scenario-writing-lab/internal/logging"

	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)

	application := app.New(context.Background(), cfg, logger)
	defer application.Close()

	lambda.Start(lambdaproxy.New(application.Engine).HandleRequest)
}
