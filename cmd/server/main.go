package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"hemobank/internal/audit"
	"hemobank/internal/donation"
	donationhandler "hemobank/internal/donation/handler"
	"hemobank/internal/donor"
	"hemobank/internal/eligibility"
	"hemobank/internal/inventory"
	inventoryhandler "hemobank/internal/inventory/handler"
	"hemobank/internal/notify"
	"hemobank/internal/platform/config"
	"hemobank/internal/platform/httpserver"
	"hemobank/internal/platform/logger"
	"hemobank/internal/platform/metrics"
	"hemobank/internal/platform/middleware"
	"hemobank/internal/platform/postgres"
	"hemobank/internal/platform/redis"
	httptransport "hemobank/internal/transport/http"
	"hemobank/pkg/platform/tx"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal service packages.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv("HEMOBANK")
	if err != nil {
		return err
	}

	pool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()

	var cache inventory.SummaryCache = inventory.NoopSummaryCache{}
	if redisClient != nil {
		cache = inventory.NewRedisSummaryCache(redisClient.Client, cfg.Redis.SummaryTTL)
	}

	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.Email.ResendAPIKey != "" {
		notifier = notify.NewResendNotifier(cfg.Email.ResendAPIKey, cfg.Email.FromAddress, log)
	}

	donationStore := donation.NewPostgres(pool)
	inventoryStore := inventory.NewPostgres(pool)
	auditStore := audit.NewPostgres(pool)
	donorStore := donor.NewPostgres(pool)

	eligibilitySvc := eligibility.NewService(donorStore, donationStore)
	inventorySvc := inventory.NewService(inventoryStore, cache, m, log)
	donationSvc := donation.NewService(
		donationStore,
		eligibilitySvc,
		inventorySvc,
		audit.NewPublisher(auditStore),
		notifier,
		tx.NewPgxRunner(pool),
		m,
		log,
	)

	health := []httptransport.HealthChecker{poolHealth{pool}}
	if redisClient != nil {
		health = append(health, redisClient)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Donations:      donationhandler.New(donationSvc, log),
		Inventory:      inventoryhandler.New(inventorySvc, log),
		Validator:      middleware.NewHMACValidator(cfg.Auth.JWTSigningKey),
		Metrics:        m,
		Logger:         log,
		RequestTimeout: cfg.Server.RequestTimeout,
		Health:         health,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting hemobank server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type poolHealth struct {
	pool *pgxpool.Pool
}

func (p poolHealth) Health(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
