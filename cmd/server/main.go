package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/confdemo/internal/adapters/asterisk"
	router "github.com/dkeye/confdemo/internal/adapters/http"
	wsignal "github.com/dkeye/confdemo/internal/adapters/signal"
	"github.com/dkeye/confdemo/internal/app"
	"github.com/dkeye/confdemo/internal/app/orch"
	"github.com/dkeye/confdemo/internal/config"
	"github.com/dkeye/confdemo/internal/core"
	"github.com/dkeye/confdemo/internal/domain"
	"github.com/dkeye/confdemo/internal/logging"
	"github.com/dkeye/confdemo/internal/metrics"
)

func main() {
	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "confdemo",
		Short:         "Conference orchestrator for Asterisk ARI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cmd)
		},
	}

	f := cmd.Flags()
	f.String("config", "", "path to a config file (default config/config.$CONFIG_ENV.yaml)")
	f.String("mode", "", "gin mode: debug, release or test")
	f.Int("port", 0, "admin HTTP port")
	f.String("ari.url", "", "ARI REST url")
	f.String("ari.websocket_url", "", "ARI events websocket url")
	f.String("ari.username", "", "ARI user")
	f.String("ari.password", "", "ARI password")
	f.String("ari.application", "", "Stasis application name")
	f.Bool("trigger.exclude_self", false, "never whisper into the presser's own leg when others are present")
	f.String("log.level", "", "log level")
	f.String("log.file", "", "also write logs to this rotated file")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return err
	}

	closer := logging.Setup(cfg.Log)
	defer closer.Close()

	provider, err := asterisk.Connect(ctx, cfg.ARI)
	if err != nil {
		if errors.Is(err, core.ErrConnection) {
			log.Error().Err(err).Msg("cannot reach the call-control platform")
		}
		return err
	}
	defer provider.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	conference := app.NewConferenceRegistry(
		provider.Bridges(),
		domain.ConferenceName(cfg.Conference.Name),
		cfg.Conference.BridgeType,
		m,
	)
	sessions := app.NewRegistry()
	hub := app.NewHub(app.SimplePolicy{})

	o := &orch.Orchestrator{
		Provider:        provider,
		Conference:      conference,
		Registry:        sessions,
		Targets:         app.RandomPolicy{ExcludeSelf: cfg.Trigger.ExcludeSelf},
		Hub:             hub,
		Metrics:         m,
		Media:           orch.Media{Beep: cfg.Media.Beep, Prank: cfg.Media.Prank},
		TriggerDigit:    cfg.Trigger.Digit,
		PlaybackTimeout: cfg.Listener.PlaybackTimeout,
	}

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Conference: conference,
		Registry:   sessions,
		Hub:        hub,
		Limiter:    wsignal.NewRateLimiter(cfg.Observer.RateLimit, cfg.Observer.RateInterval),
		Feed: wsignal.FeedOptions{
			PingInterval: cfg.Observer.PingInterval,
			ReadLimit:    cfg.Observer.ReadLimit,
		},
		Gatherer:   reg,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("admin server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	runErr := o.Run(ctx)
	if runErr != nil && ctx.Err() == nil {
		log.Error().Err(runErr).Msg("event stream stopped")
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	o.Wait()
	log.Info().Msg("Server exited gracefully")

	if ctx.Err() != nil {
		return nil
	}
	return runErr
}
