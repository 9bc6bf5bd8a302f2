package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-queue-service/internal/config"
	"github.com/hackgods/hospital-queue-service/internal/db"
	"github.com/hackgods/hospital-queue-service/internal/notification"
	"github.com/hackgods/hospital-queue-service/internal/queue"
	redisclient "github.com/hackgods/hospital-queue-service/internal/redis"
	"github.com/hackgods/hospital-queue-service/internal/stream"
)

// The queue worker closes out abandoned partitions: waiting appointments
// whose date has passed are cancelled so yesterday's queues do not linger
// forever.
func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "queue-worker").Logger()
	log.Info().Msg("queue-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().Str("env", cfg.Env).Dur("interval", cfg.SweepInterval).Msg("running queue worker")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

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

	feed := stream.NewRedisFeed(rdb, log)
	locker := redisclient.NewRedisQueueLocker(rdb, cfg.LockTTL)

	queueRepo := queue.NewPgRepository(pgPool)
	notifRepo := notification.NewPgRepository(pgPool)
	notifSvc := notification.NewService(notifRepo, feed, stream.InboxPublisher{Feed: feed}, log)
	svc := queue.NewService(queueRepo, notifSvc, locker, stream.AppointmentPublisher{Feed: feed}, log)

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping queue worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *queue.Service, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	today := time.Now().Format("2006-01-02")

	start := time.Now()
	swept, err := svc.SweepStale(runCtx, today)
	if err != nil {
		log.Error().Err(err).Msg("sweep run error")
		return
	}
	log.Info().Int("swept", swept).Dur("took", time.Since(start)).Msg("sweep run complete")
}
