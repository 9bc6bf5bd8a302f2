package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-queue-service/internal/api"
	"github.com/hackgods/hospital-queue-service/internal/billing"
	"github.com/hackgods/hospital-queue-service/internal/blobstore"
	"github.com/hackgods/hospital-queue-service/internal/config"
	"github.com/hackgods/hospital-queue-service/internal/db"
	"github.com/hackgods/hospital-queue-service/internal/notification"
	"github.com/hackgods/hospital-queue-service/internal/queue"
	redisclient "github.com/hackgods/hospital-queue-service/internal/redis"
	"github.com/hackgods/hospital-queue-service/internal/stream"
	"github.com/hackgods/hospital-queue-service/internal/user"
)

const version = "1.0.0"

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "api-server").Logger()
	log.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configuration loaded")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	// Wiring
	feed := stream.NewRedisFeed(rdb, log)
	locker := redisclient.NewRedisQueueLocker(rdb, cfg.LockTTL)

	queueRepo := queue.NewPgRepository(pgPool)
	notifRepo := notification.NewPgRepository(pgPool)
	userRepo := user.NewPgRepository(pgPool)
	billingRepo := billing.NewPgRepository(pgPool)

	notifSvc := notification.NewService(notifRepo, feed, stream.InboxPublisher{Feed: feed}, log)
	queueSvc := queue.NewService(queueRepo, notifSvc, locker, stream.AppointmentPublisher{Feed: feed}, log)
	projector := stream.NewProjector(queueRepo, feed, log)

	var blobs blobstore.Store
	if cfg.S3Bucket != "" {
		blobs = blobstore.NewS3Store(blobstore.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
	} else {
		log.Warn().Msg("S3_BUCKET not set, storing PDF artifacts in memory")
		blobs = blobstore.NewMemory()
	}
	billingSvc := billing.NewService(billingRepo, blobs, log)

	router := api.NewRouter(api.RouterConfig{
		Queue:         queueSvc,
		Projector:     projector,
		Notifications: notifSvc,
		Billing:       billingSvc,
		Users:         userRepo,
		Auth:          api.AuthConfig{Secret: cfg.JWTSecret, TokenTTL: cfg.TokenTTL},
		RateLimiter:   api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		PgPool:        pgPool,
		Redis:         rdb,
		Log:           log,
		Env:           cfg.Env,
		Version:       version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()

	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
