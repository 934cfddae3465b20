package main

import (
	"context"
	"fmt"

	"pitchfeed/internal/config"
	"pitchfeed/internal/db"
	"pitchfeed/internal/db/memory"
	"pitchfeed/internal/db/postgres"
	"pitchfeed/internal/metrics"
	"pitchfeed/internal/oracle"
	"pitchfeed/internal/services"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// app is everything a command needs, built from one Config.
type app struct {
	cfg      config.Config
	metrics  *metrics.Registry
	store    db.Store
	oracle   oracle.Oracle
	guard    *oracle.Guard
	services *services.Services
	closers  []func() error
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.New()}

	if err := a.openStore(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openOracle(ctx); err != nil {
		a.Close()
		return nil, err
	}

	svc, err := services.New(a.store, a.oracle, services.Options{
		Karma:            cfg.Karma,
		MaxThesisLength:  cfg.MaxThesisLength,
		MaxCommentLength: cfg.MaxCommentLength,
		RenderCacheTTL:   cfg.RenderCacheTTL,
		Metrics:          a.metrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.services = svc
	a.closers = append(a.closers, func() error { svc.Close(); return nil })
	return a, nil
}

func (a *app) openStore() error {
	switch a.cfg.Storage {
	case "postgres":
		conn, err := postgres.Open(a.cfg.DatabaseURL)
		if err != nil {
			return err
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		a.closers = append(a.closers, sqlDB.Close)
		a.store = postgres.New(conn)
	default:
		a.store = memory.New()
	}
	log.Info().Str("storage", a.cfg.Storage).Msg("store ready")
	return nil
}

func (a *app) openOracle(ctx context.Context) error {
	var upstream oracle.Oracle
	switch a.cfg.Oracle {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return fmt.Errorf("failed to connect to redis at %s: %w", a.cfg.RedisAddr, err)
		}
		a.closers = append(a.closers, rdb.Close)
		upstream = oracle.NewRedis(rdb, a.cfg.RedisMaxAge)
	case "alphavantage":
		upstream = oracle.NewAlphaVantage(a.cfg.AlphaVantageBaseURL, a.cfg.AlphaVantageKey, a.cfg.OracleRPS, nil)
	default:
		upstream = oracle.NewStatic(services.DemoAssets...)
	}

	a.guard = oracle.NewGuard(upstream, oracle.GuardConfig{
		Name:    a.cfg.Oracle,
		Timeout: a.cfg.OracleTimeout,
	}, a.metrics)
	a.oracle = a.guard
	log.Info().Str("oracle", a.cfg.Oracle).Dur("timeout", a.cfg.OracleTimeout).Msg("price oracle ready")
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("error during shutdown")
		}
	}
	a.closers = nil
}
