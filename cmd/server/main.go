package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pitchfeed/internal/config"
	"pitchfeed/internal/middleware"
	"pitchfeed/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	root := &cobra.Command{
		Use:          "pitchfeed",
		Short:        "Social feed of investment pitches",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), replayCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	setupLogging(cfg, os.Stderr)
	return cfg, nil
}

// setupLogging writes human-readable lines when the config asks for console
// output and one JSON object per line otherwise.
func setupLogging(cfg config.Config, w io.Writer) {
	zerolog.SetGlobalLevel(cfg.Level())
	if cfg.ConsoleLog() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
		return
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// checkReplayStorage refuses stores that start empty on every run, where a
// replay has no ledger to read.
func checkReplayStorage(cfg config.Config) error {
	if cfg.Storage != "postgres" {
		return fmt.Errorf("replay needs persistent storage, STORAGE is %q", cfg.Storage)
	}
	return nil
}

func serveCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed-demo") {
				cfg.SeedDemo = seed
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if cfg.SeedDemo {
				if err := a.services.SeedDemo(ctx); err != nil {
					log.Warn().Err(err).Msg("demo seed skipped")
				}
			}

			if cfg.Level() > zerolog.DebugLevel {
				gin.SetMode(gin.ReleaseMode)
			}
			r := gin.New()
			r.Use(gin.Recovery(), middleware.RequestLogger(a.metrics))
			router.RegisterRoutes(r, a.services, cfg.Feed, a.metrics, func() gin.H {
				return gin.H{"storage": cfg.Storage, "oracle": cfg.Oracle, "breaker": a.guard.State()}
			})

			srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("port", cfg.Port).Msg("PitchFeed server starting")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				log.Info().Msg("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed-demo", false, "create demo users and pitches on startup")
	return cmd
}

func replayCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild every counter from the event ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := checkReplayStorage(cfg); err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			run := a.services.Karma.Replay
			if dryRun {
				run = a.services.Karma.Audit
			}
			report, err := run(cmd.Context())
			if err != nil {
				return err
			}
			for _, d := range report.Drifted {
				log.Warn().
					Str("user", d.UserID).
					Str("class", string(d.Class)).
					Interface("stored", d.Stored).
					Interface("ledger", d.Ledger).
					Int("stored_karma", d.StoredKarma).
					Int("ledger_karma", d.LedgerKarma).
					Msg("user counter drift")
			}
			for _, d := range report.Counters {
				log.Warn().
					Str("kind", d.Kind).
					Str("id", d.ID).
					Int("stored", d.Stored).
					Int("ledger", d.Ledger).
					Msg("engagement counter drift")
			}
			log.Info().Int("events", report.Events).Int("users", report.Users).Int("drifted", report.DriftCount()).Bool("dry_run", dryRun).Msg("replay finished")
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only report drift, do not rewrite counters")
	return cmd
}
