package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"marketplace-integration-layer/internal/application"
	"marketplace-integration-layer/internal/config"
	apiinfra "marketplace-integration-layer/internal/infrastructure/api"
	"marketplace-integration-layer/internal/infrastructure/collaborator"
	"marketplace-integration-layer/internal/infrastructure/encryption"
	"marketplace-integration-layer/internal/infrastructure/marketplace"
	"marketplace-integration-layer/internal/infrastructure/replay"
	"marketplace-integration-layer/internal/infrastructure/repository"
	"marketplace-integration-layer/internal/infrastructure/signature"
	"marketplace-integration-layer/internal/ports"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger = logger.Level(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	encryptionService, err := encryption.NewService(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	// Identity store: MongoDB when configured, in-memory otherwise
	var identityRepo ports.IdentityRepository
	if cfg.MongoURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())

		mongoRepo := repository.NewMongoIdentityRepository(client.Database(cfg.MongoDatabase))
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to create identity indexes")
		}
		identityRepo = mongoRepo
		logger.Info().Str("database", cfg.MongoDatabase).Msg("Using MongoDB identity store")
	} else {
		identityRepo = repository.NewMemoryIdentityRepository()
		logger.Warn().Msg("MONGODB_URI not set, identities are kept in memory")
	}

	// Replay guard: Redis when configured, in-memory otherwise
	var replayGuard ports.ReplayGuard
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		replayGuard = replay.NewRedisGuard(redisClient, "marketplace:replay")
	} else {
		replayGuard = replay.NewMemoryGuard()
		logger.Warn().Msg("REDIS_URL not set, replay protection is process-local")
	}

	gateway := marketplace.NewGateway(marketplace.Config{
		BaseURL:       cfg.MarketplaceAPIURL,
		Timeout:       cfg.MarketplaceTimeout,
		RatePerSecond: cfg.MarketplaceRatePerSec,
	}, logger)

	credentialsService := application.NewCredentialsService(identityRepo, encryptionService, logger)

	integrationService := application.NewIntegrationService(
		identityRepo,
		credentialsService,
		gateway,
		collaborator.NewSnapshotClient(cfg.SnapshotServiceURL, cfg.CollaboratorTimeout, logger),
		collaborator.NewBillingClient(cfg.BillingServiceURL, cfg.CollaboratorTimeout, logger),
		replayGuard,
		signature.Verifier{},
		application.IntegrationConfig{
			AppURL:            cfg.AppURL,
			ActivationScripts: cfg.ActivationScripts,
			MaxSkew:           cfg.SignatureMaxSkew,
			ReplayTTL:         cfg.ReplayTTL,
		},
		logger,
	)

	router := apiinfra.NewRouter(apiinfra.RouterConfig{
		Service:        integrationService,
		ProviderSecret: cfg.ProviderSecret,
		Replay:         replayGuard,
		ReplayTTL:      cfg.ReplayTTL,
		MaxSkew:        cfg.SignatureMaxSkew,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		SwaggerFile:    "./docs/swagger.json",
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	logger.Info().Str("port", cfg.Port).Msg("Starting API server")
	logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
	logger.Info().Msg("Server stopped")
}
