package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/faelmarcondeli/backorder-confirmation/internal/config"
	"github.com/faelmarcondeli/backorder-confirmation/internal/jobs"
	kafkax "github.com/faelmarcondeli/backorder-confirmation/internal/kafka"
	"github.com/faelmarcondeli/backorder-confirmation/internal/notify"
	"github.com/faelmarcondeli/backorder-confirmation/internal/orders"
	"github.com/faelmarcondeli/backorder-confirmation/internal/postgres"
	"github.com/faelmarcondeli/backorder-confirmation/internal/redisx"
	"github.com/faelmarcondeli/backorder-confirmation/internal/tiny"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	repo := &orders.Repo{DB: db}

	// Deferred Tiny sync: asynq server + workflow
	queue := jobs.NewQueue(cfg.RedisAddr)
	defer queue.Close()

	wf := &tiny.Workflow{
		API: tiny.NewClient(tiny.Config{
			BaseURL:    cfg.TinyBaseURL,
			Token:      cfg.TinyToken,
			MarkerID:   cfg.TinyMarkerID,
			MarkerDesc: cfg.TinyMarkerDesc,
		}),
		Cache:      &tiny.RedisIDCache{RDB: rdb},
		Orders:     repo,
		CacheTTL:   cfg.TinySyncDelay,
		StatusWalk: cfg.TinyStatusWalk,
	}
	stopJobs := jobs.StartServer(cfg.RedisAddr, cfg.WorkerConcurrency, jobs.NewMux(wf))

	// Status-change dispatcher
	disp := &notify.Dispatcher{
		Store: repo,
		Dedup: &redisx.Dedup{RDB: rdb},
		Email: &notify.EncomendaEmail{
			SiteName: cfg.SiteName,
			Enabled:  cfg.EmailEnabled,
			Mailer:   &notify.SMTPMailer{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom},
		},
		Jobs:            queue,
		SyncDelay:       cfg.TinySyncDelay,
		SampleCoupon:    cfg.SampleCoupon,
		SampleSkipsSync: cfg.SampleCouponSkipsSync,
		TinyConfigured:  cfg.TinyToken != "",
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroup, orders.TopicOrderStatusChanged, cfg.WorkerConcurrency)
	go func() {
		log.Info().
			Str("group", cfg.WorkerGroup).
			Str("topic", orders.TopicOrderStatusChanged).
			Int("workers", cfg.WorkerConcurrency).
			Msg("consumer started")
		if err := cons.Start(ctx, disp.HandleOrderEvent); err != nil {
			log.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down worker...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	stopJobs()
}
