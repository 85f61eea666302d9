package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/appforge/data-platform/internal/api"
	"github.com/appforge/data-platform/internal/audit"
	"github.com/appforge/data-platform/internal/core/service"
	"github.com/appforge/data-platform/internal/infrastructure/config"
	mongodb "github.com/appforge/data-platform/internal/infrastructure/db/mongo"
	redisdb "github.com/appforge/data-platform/internal/infrastructure/db/redis"
	"github.com/appforge/data-platform/internal/ratelimit"
	"github.com/appforge/data-platform/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	identityRepo := mongodb.NewIdentityRepository(db)
	collectionRepo := mongodb.NewCollectionRepository(db)
	itemRepo := mongodb.NewItemRepository(db)
	tenantRepo := mongodb.NewTenantRepository(db)
	auditRepo := mongodb.NewAuditRepository(db)

	for _, ensure := range []func(context.Context) error{
		identityRepo.EnsureIndexes,
		collectionRepo.EnsureIndexes,
		itemRepo.EnsureIndexes,
		auditRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Fatal().Err(err).Msg("index creation failed")
		}
	}

	// --- Rate limiter ---
	var rdb *goredis.Client
	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case "redis":
		rdb, err = redisdb.Connect(ctx, redisdb.Config{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedisLimiter(rdb, "rl")
	default:
		mem := ratelimit.NewMemoryLimiter()
		mem.StartEviction(ctx)
		limiter = mem
	}

	// --- Audit trail ---
	auditSink := audit.NewDispatcher(cfg.Audit.Workers, auditRepo, log)
	auditSink.Start(ctx)

	// --- Services ---
	collectionService := service.NewCollectionService(collectionRepo, log)
	authService := service.NewAuthService(identityRepo, tenantRepo, auditSink, cfg.JWTSecret, log)
	itemService := service.NewItemService(itemRepo, collectionService, auditSink, log)

	e := api.NewRouter(api.Deps{
		Mongo:       db,
		Redis:       rdb,
		Auth:        authService,
		Collections: collectionService,
		Items:       itemService,
		Limiter:     limiter,
		Logger:      log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
