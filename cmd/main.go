package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RishiKendai/aegis-tiling/internal/api"
	"github.com/RishiKendai/aegis-tiling/internal/compute"
	"github.com/RishiKendai/aegis-tiling/internal/config"
	"github.com/RishiKendai/aegis-tiling/internal/configs/env"
	"github.com/RishiKendai/aegis-tiling/internal/infra/mongo"
	redisInfra "github.com/RishiKendai/aegis-tiling/internal/infra/redis"
	"github.com/RishiKendai/aegis-tiling/internal/logger"
	"github.com/RishiKendai/aegis-tiling/internal/metrics"
	"github.com/RishiKendai/aegis-tiling/internal/plagiarism"
	"github.com/RishiKendai/aegis-tiling/internal/preprocess"
	"github.com/RishiKendai/aegis-tiling/internal/repository"
	"github.com/RishiKendai/aegis-tiling/internal/stream"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := env.LoadEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file, continuing with system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	logger.Init(cfg.LogLevel, cfg.LogPretty)
	if cfg.LogLevel != "debug" && cfg.LogLevel != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.Info().
		Int("minimumTokenMatch", cfg.MinimumTokenMatch).
		Msg("Starting comparison server")

	metrics.InitPrometheus()
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer := api.StartServer("metrics", metricsMux, cfg.MetricsPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create MongoDB client")
	}
	defer mongoClient.Close(context.Background())

	redisClient, err := redisInfra.NewClient(ctx, cfg.RedisHost, cfg.RedisPassword, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis client")
	}
	defer redisClient.Close()

	mongoRepo := repository.NewMongoRepository(mongoClient)
	if err := mongoRepo.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure MongoDB indexes")
	}
	submissionsRepo := repository.NewSubmissionsRepository(mongoRepo)
	resultsRepo := repository.NewResultsRepository(mongoRepo)

	// Tokenizer front end feeding the stream consumer
	astraClient := preprocess.NewAstraClient(cfg.AstraBaseURL, cfg.AstraAPIKey)
	preprocessSvc := preprocess.NewService(astraClient, submissionsRepo)

	retryHandler := stream.NewRetryHandler(redisClient.Client, cfg.RedisDeadLetterKey)

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	consumerName := fmt.Sprintf("consumer-%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
	consumer := stream.NewConsumer(
		redisClient.Client,
		cfg.RedisStreamKey,
		cfg.RedisConsumerGroup,
		consumerName,
		preprocessSvc,
		retryHandler,
		stream.ConsumerOptions{Retention: cfg.StreamRetentionDuration},
	)

	workerPool := plagiarism.NewWorkerPool(ctx, cfg.Workers)
	defer workerPool.Close()

	computeSvc := compute.NewService(submissionsRepo, resultsRepo, redisClient, workerPool, compute.Options{
		MinimumTokenMatch:   cfg.MinimumTokenMatch,
		DebugParser:         cfg.DebugParser,
		MaxSubmissionTokens: cfg.MaxSubmissionTokens,
	})

	handler := api.NewHandler(submissionsRepo, resultsRepo, computeSvc, redisClient, cfg.MaxConcurrentCompute, cfg.ComputationTimeout)
	router := api.SetupRoutes(api.RouteConfig{
		JWTSecret:    cfg.JWTSecret,
		JWTIssuer:    cfg.JWTIssuer,
		RateLimitRPS: cfg.RateLimitRPS,
	}, handler)

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()
	go func() {
		if err := consumer.Start(consumerCtx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Redis consumer error")
		}
	}()
	log.Info().Str("consumer_name", consumerName).Msg("Redis consumer started")

	srv := api.StartServer("api", router, cfg.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gracefully...")
	consumerCancel()

	if err := api.ShutdownServer(srv, 30*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down API server")
	}
	if err := api.ShutdownServer(metricsServer, 5*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down metrics server")
	}

	log.Info().Msg("Shutdown complete")
}
