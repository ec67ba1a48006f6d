package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"condo/internal/api"
	"condo/internal/billing/sweep"
	"condo/internal/platform/config"
	"condo/internal/platform/httpserver"
	"condo/internal/platform/logger"
	"condo/internal/platform/postgres"
	platformredis "condo/internal/platform/redis"
	"condo/pkg/platform/audit/relay"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "condo: %v\n", err)
		os.Exit(1)
	}
}

// run wires infrastructure and serves HTTP until a termination signal
// arrives. The overdue fee sweep and the audit relay run alongside.
func run() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var (
		backend api.Backend
		opts    = []api.Option{api.WithRegistry(reg)}
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.ApplySchema(ctx, db); err != nil {
			return err
		}
		backend = api.PostgresBackend(db, cfg.TxTimeout)
		opts = append(opts, api.WithHealthCheck("postgres", pingDB(db)))
		log.Info("using postgres storage")
	} else {
		backend = api.MemoryBackend(cfg.TxTimeout)
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	switch {
	case err != nil:
		log.Warn("redis unavailable, using in-process revocation and rate limits", "error", err)
	case redisClient != nil:
		defer redisClient.Close()
		opts = append(opts, api.WithRedis(redisClient.Client), api.WithHealthCheck("redis", redisClient.Health))
		log.Info("using redis for revocation and rate limits")
	}

	app, err := api.New(ctx, backend, api.Config{
		JWTSigningKey:      cfg.Auth.JWTSigningKey,
		Issuer:             cfg.Auth.Issuer,
		AccessTokenTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL:    cfg.Auth.RefreshTokenTTL,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RateLimitExempt:    cfg.RateLimitExempt,
	}, log, opts...)
	if err != nil {
		return err
	}

	srv := httpserver.New(cfg.Addr, app.Handler,
		httpserver.WithShutdownTimeout(cfg.ShutdownTimeout),
		httpserver.WithLogger(log),
	)
	g, gctx := errgroup.WithContext(ctx)
	log.Info("starting condo", "addr", cfg.Addr, "environment", cfg.Environment)
	g.Go(func() error { return srv.Run(gctx) })

	if cfg.OverdueSchedule != "off" {
		sched, err := sweep.New(app.Billing, cfg.OverdueSchedule, log)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error { return sched.Run(gctx) })
		log.Info("overdue fee sweep scheduled", "schedule", cfg.OverdueSchedule)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := relay.NewKafkaProducer(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		defer producer.Close()
		r := relay.New(backend.Audit, backend.Tx, producer, log,
			relay.WithInterval(cfg.Kafka.RelayInterval),
			relay.WithMetrics(relay.NewMetrics(reg)),
		)
		g.Go(func() error { return r.Run(gctx) })
		log.Info("audit relay started", "topic", cfg.Kafka.AuditTopic)
	}

	return g.Wait()
}

func pingDB(db *sql.DB) api.HealthCheck {
	return func(ctx context.Context) error { return db.PingContext(ctx) }
}
