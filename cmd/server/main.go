package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devfolio/backend/internal/api"
	"github.com/devfolio/backend/internal/auth"
	"github.com/devfolio/backend/internal/blog"
	"github.com/devfolio/backend/internal/cache"
	"github.com/devfolio/backend/internal/config"
	"github.com/devfolio/backend/internal/db"
	apperrors "github.com/devfolio/backend/internal/errors"
	"github.com/devfolio/backend/internal/health"
	"github.com/devfolio/backend/internal/logger"
	"github.com/devfolio/backend/internal/metrics"
	"github.com/devfolio/backend/internal/middleware"
	"github.com/devfolio/backend/internal/projects"
	"github.com/devfolio/backend/internal/sanitize"
	"github.com/devfolio/backend/internal/storage"
	"github.com/devfolio/backend/internal/users"
)

const version = "1.0.0"

// Rate limits match the public-facing defaults: credential endpoints are
// throttled far harder than the rest of the API.
const (
	authRateLimit    = 5
	generalRateLimit = 100
	rateLimitWindow  = 15 * time.Minute
)

func main() {
	cfg := config.Load()

	log := logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel), "server")
	logger.SetDefault(log)

	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		log.Error(ctx, "invalid configuration", err)
		os.Exit(1)
	}

	database, err := db.New(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	if err != nil {
		log.Error(ctx, "failed to connect to database", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Error(ctx, "failed to run migrations", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Cache and rate limiting degrade gracefully without redis.
		log.Warn(ctx, "redis unreachable, continuing without it", map[string]interface{}{
			"addr":  cfg.RedisAddr,
			"error": err.Error(),
		})
	}
	defer redisClient.Close()

	store, err := storage.New(&storage.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		log.Error(ctx, "failed to create storage client", err)
		os.Exit(1)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		log.Warn(ctx, "failed to ensure storage bucket", map[string]interface{}{
			"bucket": cfg.MinioBucket,
			"error":  err.Error(),
		})
	}

	userRepo := db.NewUserRepository(database)
	postRepo := db.NewPostRepository(database)
	projectRepo := db.NewProjectRepository(database)

	tokens := auth.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret)
	authService := auth.NewService(userRepo, auth.NewHasher(), tokens)

	pageCache := cache.New(redisClient, log)

	m := metrics.New()

	checker := health.NewChecker(&health.CheckerConfig{
		DB:           database.DB,
		Redis:        redisClient,
		StorageCheck: store.Ping,
		Version:      version,
	})

	authLimiter := middleware.NewRateLimiter(redisClient, "ratelimit:auth", authRateLimit, rateLimitWindow, log)
	generalLimiter := middleware.NewRateLimiter(redisClient, "ratelimit:general", generalRateLimit, rateLimitWindow, log)

	router := api.NewRouter(&api.RouterConfig{
		Tokens:          tokens,
		AuthHandlers:    auth.NewHandlers(authService),
		BlogHandlers:    blog.NewHandlers(postRepo, pageCache),
		ProjectHandlers: projects.NewHandlers(projectRepo),
		UserHandlers:    users.NewHandlers(userRepo),
		UploadHandlers:  api.NewUploadHandlers(store, storage.PresignExpiry),
		HealthHandler:   health.NewHandler(checker),
		MetricsHandler:  m.Handler(),
		AuthLimiter:     authLimiter,
	})

	handler := middleware.Chain(router,
		middleware.Recoverer(log),
		apperrors.RequestIDMiddleware,
		middleware.SecurityHeaders,
		middleware.CORS(cfg.AllowedOrigins),
		generalLimiter.Middleware,
		sanitize.Middleware(sanitize.New()),
		middleware.Gzip,
		middleware.Logging(log),
		metrics.Middleware(m),
	)

	log.Info(ctx, "starting server", map[string]interface{}{
		"addr":    cfg.ServerAddr,
		"version": version,
	})
	if err := http.ListenAndServe(cfg.ServerAddr, handler); err != nil {
		log.Error(ctx, "server failed", err)
		os.Exit(1)
	}
}
