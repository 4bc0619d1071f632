package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/studiobooks/internal/config"
	"github.com/MrJamesThe3rd/studiobooks/internal/database"
	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/studiobooks/internal/ledger/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/payment"
	"github.com/MrJamesThe3rd/studiobooks/internal/payment/mercadopago"
	paymentStore "github.com/MrJamesThe3rd/studiobooks/internal/payment/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/session"
	sessionStore "github.com/MrJamesThe3rd/studiobooks/internal/session/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/sessioncache"
	"github.com/MrJamesThe3rd/studiobooks/internal/sessioncache/redisbus"
	"github.com/MrJamesThe3rd/studiobooks/internal/tasks"
)

const concurrency = 4

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	ledgerRepo := ledgerStore.New(db)
	provider := mercadopago.New(mercadopago.Config{
		BaseURL:       cfg.MercadoPago.BaseURL,
		AccessToken:   cfg.MercadoPago.AccessToken,
		NotifyURL:     cfg.MercadoPago.NotifyURL,
		Timeout:       cfg.MercadoPago.Timeout,
		RatePerSecond: cfg.MercadoPago.RatePerSecond,
	})

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	cachePublisher := sessioncache.NewPublisher(func(ownerID uuid.UUID) sessioncache.Bus {
		return redisbus.New(rdb, ownerID)
	}, session.NewService(sessionStore.New(db)))

	processor := tasks.NewProcessor(
		payment.NewService(paymentStore.New(db), provider, payment.WithNotifier(cachePublisher)),
		ledger.NewService(ledgerRepo, ledgerRepo),
	)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	scheduler, err := tasks.NewScheduler(redisOpt, cfg.Sweep.Cron)
	if err != nil {
		return err
	}

	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer scheduler.Shutdown()

	mux := asynq.NewServeMux()
	processor.Register(mux)

	srv := tasks.NewServer(redisOpt, concurrency)
	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("starting task server: %w", err)
	}

	slog.Info("worker started", "concurrency", concurrency, "sweep_cron", cfg.Sweep.Cron)

	<-ctx.Done()

	slog.Info("shutting down worker")
	srv.Shutdown()

	return nil
}
