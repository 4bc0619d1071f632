package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/studiobooks/internal/config"
	"github.com/MrJamesThe3rd/studiobooks/internal/database"
	"github.com/MrJamesThe3rd/studiobooks/internal/export"
	booksHttp "github.com/MrJamesThe3rd/studiobooks/internal/http"
	exportHandler "github.com/MrJamesThe3rd/studiobooks/internal/http/export"
	"github.com/MrJamesThe3rd/studiobooks/internal/http/importcsv"
	ledgerHandler "github.com/MrJamesThe3rd/studiobooks/internal/http/ledger"
	matchingHandler "github.com/MrJamesThe3rd/studiobooks/internal/http/matching"
	paymentHandler "github.com/MrJamesThe3rd/studiobooks/internal/http/payment"
	sessionHandler "github.com/MrJamesThe3rd/studiobooks/internal/http/session"
	"github.com/MrJamesThe3rd/studiobooks/internal/http/webhook"
	"github.com/MrJamesThe3rd/studiobooks/internal/importer"
	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/studiobooks/internal/ledger/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/matching"
	matchingStore "github.com/MrJamesThe3rd/studiobooks/internal/matching/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/payment"
	"github.com/MrJamesThe3rd/studiobooks/internal/payment/mercadopago"
	paymentStore "github.com/MrJamesThe3rd/studiobooks/internal/payment/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/receivable"
	receivableStore "github.com/MrJamesThe3rd/studiobooks/internal/receivable/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/session"
	sessionStore "github.com/MrJamesThe3rd/studiobooks/internal/session/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/sessioncache"
	"github.com/MrJamesThe3rd/studiobooks/internal/sessioncache/redisbus"
	"github.com/MrJamesThe3rd/studiobooks/internal/tasks"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
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

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	queue := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer queue.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	provider := mercadopago.New(mercadopago.Config{
		BaseURL:       cfg.MercadoPago.BaseURL,
		AccessToken:   cfg.MercadoPago.AccessToken,
		NotifyURL:     cfg.MercadoPago.NotifyURL,
		Timeout:       cfg.MercadoPago.Timeout,
		RatePerSecond: cfg.MercadoPago.RatePerSecond,
	})

	ledgerRepo := ledgerStore.New(db)

	var (
		ledgerService  = ledger.NewService(ledgerRepo, ledgerRepo)
		sessionService = session.NewService(sessionStore.New(db))
		planService    = receivable.NewService(receivableStore.New(db))
		cachePublisher = sessioncache.NewPublisher(func(ownerID uuid.UUID) sessioncache.Bus {
			return redisbus.New(rdb, ownerID)
		}, sessionService)
		paymentService = payment.NewService(paymentStore.New(db), provider, payment.WithNotifier(cachePublisher))
		matchService   = matching.NewService(matchingStore.New(db))
		retryQueue     = tasks.NewRetryQueue(queue, cfg.Webhook.MaxRetries, cfg.Webhook.RetryDelay)
	)

	router := booksHttp.New(
		booksHttp.Options{
			AllowedOrigins: cfg.App.AllowedOrigins,
			Timeout:        cfg.Server.Timeout,
		},
		ledgerHandler.NewHandler(ledgerService),
		sessionHandler.NewHandler(sessionService, planService),
		paymentHandler.NewHandler(paymentService),
		webhook.NewHandler(paymentService, retryQueue),
		importcsv.NewHandler(importer.NewParser(), ledgerService, matchService),
		matchingHandler.NewHandler(matchService),
		exportHandler.NewHandler(export.NewService(ledgerService)),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "port", srv.Addr, "app", cfg.App.Name)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	return nil
}
