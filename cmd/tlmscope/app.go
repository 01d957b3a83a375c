package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"tlmscope/internal/config"
	"tlmscope/internal/fetch"
	"tlmscope/internal/ground"
	"tlmscope/internal/logging"
	"tlmscope/internal/observability"
	"tlmscope/internal/query"
	"tlmscope/internal/warehouse"
)

// app holds the wired pipeline shared by every subcommand.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	metrics  *observability.Collector
	builder  *query.Builder
	ground   *ground.Reader
	orch     *fetch.Orchestrator
	closers  []func() error
	shutdown func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath, schemaPath)
	if err != nil {
		return nil, err
	}
	log := logging.NewWithConfig(cfg.Log, os.Stderr)
	a := &app{cfg: cfg, log: log}

	a.shutdown, err = observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return nil, err
	}
	a.metrics, err = observability.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}

	dialect, err := query.DialectByName(cfg.Warehouse.Dialect)
	if err != nil {
		return nil, err
	}
	epoch, err := cfg.Epoch()
	if err != nil {
		return nil, err
	}
	a.builder = &query.Builder{Dialect: dialect, Epoch: epoch, MaxDays: cfg.Limits.MaxDays}

	wh, err := a.openWarehouse(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.ground = &ground.Reader{Root: cfg.GroundDir, Log: log}

	var cache *fetch.SessionCache
	if cfg.Cache.Enabled {
		cache, err = fetch.NewSessionCache(cfg.Cache.TTL)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.closers = append(a.closers, cache.Close)
	}

	a.orch = &fetch.Orchestrator{
		Orbit:     &fetch.OrbitReader{Builder: a.builder, Warehouse: wh, Log: log},
		Ground:    a.ground,
		Timeout:   cfg.Limits.Timeout,
		MaxLength: cfg.Limits.MaxTlmLength,
		MaxDays:   cfg.Limits.MaxDays,
		Cache:     cache,
		Metrics:   a.metrics,
		Log:       log,
	}
	return a, nil
}

// openWarehouse returns a nil Warehouse when BigQuery has no key so that
// ground requests still work and orbit requests fail with a message.
func (a *app) openWarehouse(ctx context.Context) (warehouse.Warehouse, error) {
	switch a.cfg.Warehouse.Backend {
	case "bigquery":
		bq, err := warehouse.NewBigQuery(ctx, a.cfg.Warehouse.CredentialsFile)
		if errors.Is(err, warehouse.ErrNoCredentials) {
			a.log.Warn("orbit telemetry disabled", "error", err)
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, bq.Close)
		return bq, nil
	case "postgres":
		db, err := warehouse.OpenPostgres(a.cfg.Warehouse.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return db, nil
	default:
		return nil, fmt.Errorf("unknown warehouse backend %q", a.cfg.Warehouse.Backend)
	}
}

// Close releases clients in reverse order and flushes spans.
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
	observability.ShutdownWithTimeout(ctx, a.shutdown, a.log)
}
