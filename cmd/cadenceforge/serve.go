package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mosaicworks/cadenceforge/config"
	"github.com/mosaicworks/cadenceforge/events"
	"github.com/mosaicworks/cadenceforge/metrics"
	"github.com/mosaicworks/cadenceforge/pipeline"
	"github.com/mosaicworks/cadenceforge/quality"
)

func newServeCmd(configPath, logLevel *string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Aggregate session events into a metrics endpoint",
		Long: `Serve subscribes to session events on NATS and exposes the
aggregated view across all generate runs: Prometheus metrics on
/metrics and a statistical digest on /summary. With an explicit
--config file, configuration changes are hot-reloaded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath, *logLevel, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Override the configured metrics listen address")

	return cmd
}

func runServe(ctx context.Context, configPath, logLevel, listen string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format, logLevel)

	if listen == "" {
		listen = cfg.Metrics.Listen
	}
	if cfg.NATS.URL == "" {
		return fmt.Errorf("nats.url must be configured to aggregate session events")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher, err := events.Connect(cfg.NATS.URL)
	if err != nil {
		return err
	}
	defer publisher.Close()

	recorder := metrics.NewRecorder()
	hist := metrics.NewHistory(0)

	sub, err := publisher.SubscribeFinished(func(subject string, event events.SessionFinishedEvent) {
		result := resultFromEvent(event)
		recorder.ObserveSession(result, string(event.Category))
		hist.Add(result)
		logger.Debug("Session event observed", "subject", subject, "session_id", event.SessionID)
	})
	if err != nil {
		return fmt.Errorf("subscribe to session events: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	// Hot-reload only applies to an explicit config file; the layered
	// loader has no single path to watch.
	if configPath != "" {
		watcher, err := config.NewWatcher(config.WatcherConfig{Path: configPath, Logger: logger})
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = watcher.Stop() }()

		go func() {
			for updated := range watcher.Updates() {
				reloaded := setupLogger(updated.Logging.Level, updated.Logging.Format, logLevel)
				reloaded.Info("Configuration reloaded", "path", configPath)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	mux.HandleFunc("/summary", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(hist.Summarize())
	})

	server := &http.Server{Addr: listen, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("Session collector listening", "addr", listen, "nats", cfg.NATS.URL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// resultFromEvent reconstructs the fields the collectors read from a
// wire event.
func resultFromEvent(event events.SessionFinishedEvent) *pipeline.RetryResult {
	started := event.FinishedAt.Add(-time.Duration(event.DurationSeconds * float64(time.Second)))
	return &pipeline.RetryResult{
		SessionID:              event.SessionID,
		Success:                event.Success,
		FallbackUsed:           event.FallbackUsed,
		TotalAttempts:          event.TotalAttempts,
		FinalQualityScore:      quality.Score{Overall: event.FinalQualityScore},
		RecoveryStrategiesUsed: event.RecoveryStrategies,
		Metrics: pipeline.Metrics{
			AttemptCount:      event.TotalAttempts,
			FinalQualityScore: event.FinalQualityScore,
			StartTime:         started,
			EndTime:           event.FinishedAt,
		},
	}
}
