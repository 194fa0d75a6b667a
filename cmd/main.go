package main

import (
	"context"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"weather-agent/handler"
	"weather-agent/internal/config"
	"weather-agent/internal/integrations/paramstore"
	"weather-agent/internal/integrations/weather"
	"weather-agent/internal/repository"
	"weather-agent/internal/trigger"
	"weather-agent/internal/usecase"
)

func main() {
	ctx := context.Background()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	// ---- Configuration (read only here) ----
	stateTable := mustEnv(logger, "STATE_TABLE")
	paramPrefix := mustEnv(logger, "PARAM_PREFIX")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Fatal("failed to load AWS config", zap.Error(err))
	}

	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		logger.Fatal("failed to create SSM client", zap.Error(err))
	}

	cfg, err := config.ApplyEnv(config.Default(), os.LookupEnv)
	if err != nil {
		logger.Fatal("invalid environment configuration", zap.Error(err))
	}
	cfg, err = config.ApplyParams(ctx, cfg, ssmClient, paramPrefix)
	if err != nil {
		logger.Fatal("failed to load parameters", zap.Error(err))
	}

	// ---- Clients ----
	stateClient, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), stateTable)
	if err != nil {
		logger.Fatal("failed to create state client", zap.Error(err))
	}

	weatherClient, err := weather.NewClient(
		weather.WithGeocodeBaseURL(cfg.GeocodeBaseURL),
		weather.WithWeatherBaseURL(cfg.WeatherBaseURL),
		weather.WithUserAgent(cfg.UserAgent),
		weather.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	)
	if err != nil {
		logger.Fatal("failed to create weather client", zap.Error(err))
	}

	// ---- Handler ----
	filter, err := trigger.New(cfg.Keyword)
	if err != nil {
		logger.Fatal("failed to create trigger filter", zap.Error(err))
	}
	pipeline, err := usecase.NewPipeline(weatherClient, logger)
	if err != nil {
		logger.Fatal("failed to create pipeline", zap.Error(err))
	}
	svc, err := usecase.NewService(stateClient, filter, pipeline, logger, cfg.MaxTurns)
	if err != nil {
		logger.Fatal("failed to create session service", zap.Error(err))
	}

	h, err := handler.NewHandler(svc, logger)
	if err != nil {
		logger.Fatal("failed to create handler", zap.Error(err))
	}

	logger.Info("weather agent starting",
		zap.String("keyword", cfg.Keyword),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_turns", cfg.MaxTurns),
	)
	lambda.Start(h.Handle)
}

func mustEnv(logger *zap.Logger, key string) string {
	v := os.Getenv(key)
	if v == "" {
		logger.Fatal("required environment variable is not set", zap.String("key", key))
	}
	return v
}
