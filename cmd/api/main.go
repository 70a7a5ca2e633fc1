package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	_ "grubdash/docs"
	"grubdash/pkg/api"
	"grubdash/pkg/config"
	dishmem "grubdash/pkg/dish/memory"
	dishpg "grubdash/pkg/dish/postgres"
	"grubdash/pkg/events"
	"grubdash/pkg/logger"
	"grubdash/pkg/metrics"
	"grubdash/pkg/nextid"
	ordermem "grubdash/pkg/order/memory"
	orderpg "grubdash/pkg/order/postgres"
	"grubdash/pkg/otel"
	"grubdash/pkg/seed"
	"grubdash/pkg/sqldb"
)

const service = "grubdash"

// @title GrubDash API
// @version 1.0
// @description Dishes and delivery orders for the GrubDash storefront
// @host localhost:5000
// @BasePath /
func main() {
	cfg, err := config.Load(os.Getenv("GRUBDASH_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log level: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, level, service, otel.GetTraceID)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(context.Background(), "api stopped with error", "error", err)
		log.Sync()
		os.Exit(1)
	}
	log.Info(context.Background(), "api stopped")
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	tp, shutdownTracing, err := otel.InitTracing(log, otel.Config{
		ServiceName: service,
		Host:        cfg.Tracing.Host,
		Probability: cfg.Tracing.Probability,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Warn(ctx, "shutdown tracing", "error", err)
		}
	}()

	a, err := setup(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close(log)

	a.deps.Tracer = tp.Tracer(service)
	a.deps.Metrics = metrics.New(prometheus.DefaultRegisterer)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.NewRouter(api.NewHandler(a.deps), prometheus.DefaultGatherer),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	return serve(ctx, srv, cfg.HTTP, log)
}

// app holds the backends chosen by the config and how to release them.
type app struct {
	deps    api.Deps
	closers []func() error
}

func (a *app) close(log *logger.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn(context.Background(), "release resource", "error", err)
		}
	}
}

func setup(ctx context.Context, cfg config.Config, log *logger.Logger) (_ *app, err error) {
	a := &app{deps: api.Deps{Logger: log, Checks: map[string]api.Check{}}}
	defer func() {
		if err != nil {
			a.close(log)
		}
	}()

	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		db, err := sqldb.Open(ctx, cfg.Storage.DBDriver, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := usePostgres(ctx, a, db); err != nil {
			return nil, err
		}
		log.Info(ctx, "using postgres storage", "driver", cfg.Storage.DBDriver)
	default:
		a.deps.Dishes = dishmem.New()
		a.deps.Orders = ordermem.New()
		log.Info(ctx, "using in-memory storage")
	}

	switch cfg.IDs.Generator {
	case config.GeneratorRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.IDs.RedisAddr})
		a.closers = append(a.closers, client.Close)
		a.deps.IDs = nextid.NewRedis(client, cfg.IDs.RedisKey)
		a.deps.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		log.Info(ctx, "using redis id generator", "addr", cfg.IDs.RedisAddr, "key", cfg.IDs.RedisKey)
	default:
		a.deps.IDs = nextid.Random{}
	}

	if cfg.Events.AMQPURL != "" {
		pub, err := events.DialRabbitMQ(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		a.deps.Events = pub
		log.Info(ctx, "publishing order events", "exchange", cfg.Events.Exchange)
	} else {
		a.deps.Events = events.Noop{}
	}

	if cfg.Seed.Enabled {
		res, err := seed.Load(ctx, a.deps.Dishes, a.deps.Orders)
		if err != nil {
			return nil, fmt.Errorf("seed data: %w", err)
		}
		log.Info(ctx, "seeded data", "dishes", res.Dishes, "orders", res.Orders)
	}

	return a, nil
}

func usePostgres(ctx context.Context, a *app, db *sql.DB) error {
	dishes := dishpg.New(db)
	if err := dishes.EnsureSchema(ctx); err != nil {
		return err
	}
	orders := orderpg.New(db)
	if err := orders.EnsureSchema(ctx); err != nil {
		return err
	}
	a.deps.Dishes = dishes
	a.deps.Orders = orders
	a.deps.Checks["postgres"] = db.PingContext
	return nil
}

// serve runs srv until ctx is cancelled, then drains it within cfg.ShutdownTimeout.
func serve(ctx context.Context, srv *http.Server, cfg config.HTTP, log *logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", srv.Addr, "tls", cfg.TLSCert != "")
		var err error
		if cfg.TLSCert != "" {
			err = srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	log.Info(shutdownCtx, "shutting down", "timeout", cfg.ShutdownTimeout.String())
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
