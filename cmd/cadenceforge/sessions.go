package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/mosaicworks/cadenceforge/events"
	"github.com/mosaicworks/cadenceforge/metrics"
	"github.com/mosaicworks/cadenceforge/storage"
)

func newSessionsCmd(configPath, logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect persisted generation sessions",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored sessions, newest first",
			RunE: func(cmd *cobra.Command, args []string) error {
				store, cleanup, err := openSessionStore(cmd, *configPath, *logLevel)
				if err != nil {
					return err
				}
				defer cleanup()

				records, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Println("no sessions stored")
					return nil
				}
				for _, r := range records {
					status := "failed"
					switch {
					case r.Result.Success && r.Result.FallbackUsed:
						status = "fallback"
					case r.Result.Success:
						status = "success"
					}
					fmt.Printf("%s  %-8s  %-14s  score=%.1f  attempts=%d  %s\n",
						r.StoredAt.Format("2006-01-02 15:04:05"),
						status,
						r.Category,
						r.Result.FinalQualityScore.Overall,
						r.Result.TotalAttempts,
						r.SessionID)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "summary",
			Short: "Print a statistical digest of stored sessions",
			RunE: func(cmd *cobra.Command, args []string) error {
				store, cleanup, err := openSessionStore(cmd, *configPath, *logLevel)
				if err != nil {
					return err
				}
				defer cleanup()

				records, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				values := make([]storage.SessionRecord, 0, len(records))
				for _, r := range records {
					values = append(values, *r)
				}
				summary := summarizeRecords(values)
				if summary.Sessions == 0 {
					fmt.Println("no sessions stored")
					return nil
				}
				printSummary(summary)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <session-id>",
			Short: "Print one session record as JSON",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, cleanup, err := openSessionStore(cmd, *configPath, *logLevel)
				if err != nil {
					return err
				}
				defer cleanup()

				record, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(record)
			},
		},
	)

	return cmd
}

// summarizeRecords folds stored sessions into the rolling-window digest.
func summarizeRecords(records []storage.SessionRecord) metrics.Summary {
	hist := metrics.NewHistory(len(records))
	for _, r := range records {
		hist.Add(r.Result)
	}
	return hist.Summarize()
}

func printSummary(s metrics.Summary) {
	fmt.Printf("sessions:       %d\n", s.Sessions)
	fmt.Printf("success rate:   %.0f%%\n", s.SuccessRate*100)
	fmt.Printf("fallback rate:  %.0f%%\n", s.FallbackRate*100)
	fmt.Printf("mean score:     %.1f\n", s.MeanScore)
	fmt.Printf("median score:   %.1f\n", s.MedianScore)
	fmt.Printf("score std dev:  %.1f\n", s.ScoreStdDev)
	fmt.Printf("p95 score:      %.1f\n", s.P95Score)
	fmt.Printf("mean attempts:  %.1f\n", s.MeanAttempts)
	fmt.Printf("score range:    %.1f - %.1f\n", s.WorstScore, s.BestScore)
}

func openSessionStore(cmd *cobra.Command, configPath, logLevel string) (*storage.SessionStore, func(), error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	setupLogger(cfg.Logging.Level, cfg.Logging.Format, logLevel)

	if cfg.NATS.URL == "" {
		return nil, nil, fmt.Errorf("nats.url must be configured for session storage")
	}

	publisher, err := events.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, nil, err
	}

	js, err := jetstream.New(publisher.Conn())
	if err != nil {
		publisher.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	store, err := storage.NewSessionStore(cmd.Context(), js)
	if err != nil {
		publisher.Close()
		return nil, nil, err
	}

	return store, publisher.Close, nil
}
