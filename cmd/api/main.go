package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/faelmarcondeli/backorder-confirmation/internal/cart"
	"github.com/faelmarcondeli/backorder-confirmation/internal/config"
	"github.com/faelmarcondeli/backorder-confirmation/internal/httpx"
	kafkax "github.com/faelmarcondeli/backorder-confirmation/internal/kafka"
	"github.com/faelmarcondeli/backorder-confirmation/internal/nonce"
	"github.com/faelmarcondeli/backorder-confirmation/internal/orders"
	"github.com/faelmarcondeli/backorder-confirmation/internal/postgres"
	"github.com/faelmarcondeli/backorder-confirmation/internal/redisx"
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
	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers: one per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024)
	pStatus.Start(ctx)

	// Repos & handlers
	repo := &orders.Repo{DB: db}
	catalog := &orders.Catalog{DB: db}
	router := httpx.NewRouter()

	(&httpx.BackorderHandler{
		Catalog: catalog,
		Nonces:  nonce.NewIssuer(cfg.NonceSecret, cfg.NonceTTL),
	}).Register(router)
	(&httpx.CartHandler{
		Catalog:      catalog,
		Carts:        &cart.Store{RDB: rdb},
		Orders:       repo,
		Producer:     pCreated,
		Service:      cfg.ServiceName,
		SampleCoupon: cfg.SampleCoupon,
	}).Register(router)
	(&httpx.OrdersHandler{
		Repo:     repo,
		Producer: pStatus,
		Service:  cfg.ServiceName,
	}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pCreated.Close() // close inbox -> flush & close writer
	pStatus.Close()
	cancel() // stop producer loops
	pCreated.WaitClosed()
	pStatus.WaitClosed()
}
