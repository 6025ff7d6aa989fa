package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/mosaicworks/cadenceforge/config"
	"github.com/mosaicworks/cadenceforge/contract"
	"github.com/mosaicworks/cadenceforge/events"
	"github.com/mosaicworks/cadenceforge/llm"
	"github.com/mosaicworks/cadenceforge/metrics"
	"github.com/mosaicworks/cadenceforge/pipeline"
	"github.com/mosaicworks/cadenceforge/storage"
)

func newGenerateCmd(configPath, logLevel *string) *cobra.Command {
	var (
		output     string
		maxRetries int
		threshold  float64
		strict     bool
		showReport bool
	)

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate a Cadence contract from a natural language prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			return runGenerate(cmd.Context(), generateOptions{
				configPath: *configPath,
				logLevel:   *logLevel,
				prompt:     prompt,
				output:     output,
				maxRetries: maxRetries,
				threshold:  threshold,
				strict:     strict,
				showReport: showReport,
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the contract to a file instead of stdout")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "Override the configured retry budget")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Override the configured quality threshold")
	cmd.Flags().BoolVar(&strict, "strict", false, "Skip the basic enhancement level")
	cmd.Flags().BoolVar(&showReport, "report", false, "Print the session report after the contract")

	return cmd
}

type generateOptions struct {
	configPath string
	logLevel   string
	prompt     string
	output     string
	maxRetries int
	threshold  float64
	strict     bool
	showReport bool
}

func runGenerate(ctx context.Context, opts generateOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format, opts.logLevel)

	if opts.maxRetries > 0 {
		cfg.Pipeline.MaxRetries = opts.maxRetries
	}
	if opts.threshold > 0 {
		cfg.Pipeline.QualityThreshold = opts.threshold
	}
	if opts.strict {
		cfg.Pipeline.StrictMode = true
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := llm.NewClient(cfg.Model.Endpoints,
		llm.WithRetryConfig(cfg.Model.Retry),
		llm.WithLogger(logger),
	)

	var publisher *events.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = events.Connect(cfg.NATS.URL)
		if err != nil {
			logger.Warn("NATS unavailable, continuing without events", "error", err)
			publisher = nil
		}
		defer publisher.Close()
	}

	recorder := metrics.NewRecorder()
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", recorder.Handler())
			logger.Info("Metrics listening", "addr", cfg.Metrics.Listen)
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	orchOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithQualityThreshold(cfg.Pipeline.QualityThreshold),
		pipeline.WithTimeoutPerAttempt(cfg.Pipeline.TimeoutPerAttempt),
	}
	if cfg.Pipeline.DisableCorrection {
		orchOpts = append(orchOpts, pipeline.WithCorrector(nil))
	}
	if cfg.Pipeline.DisableFallback {
		orchOpts = append(orchOpts, pipeline.WithFallback(nil))
	}
	orchestrator := pipeline.NewOrchestrator(orchOpts...)

	ct := contract.Classify(opts.prompt)
	logger.Info("Classified prompt",
		"category", ct.Category,
		"complexity", ct.Complexity,
		"features", ct.Features)

	req := pipeline.GenerationRequest{
		SessionID:  uuid.New().String(),
		Prompt:     opts.prompt,
		MaxRetries: cfg.Pipeline.MaxRetries,
		StrictMode: cfg.Pipeline.StrictMode,
	}
	genCtx := pipeline.GenerationContext{
		UserPrompt:   opts.prompt,
		ContractType: ct,
	}

	if pubErr := publisher.SessionStarted(req.SessionID, opts.prompt, ct.Category, cfg.Pipeline.MaxRetries); pubErr != nil {
		logger.Warn("Failed to publish session start event", "error", pubErr)
	}

	result := orchestrator.ExecuteWithRetry(ctx, req, genCtx, client.Generate)

	recorder.ObserveSession(result, string(ct.Category))
	if pubErr := publisher.SessionFinished(result, ct.Category); pubErr != nil {
		logger.Warn("Failed to publish session event", "error", pubErr)
	}
	persistSession(ctx, logger, publisher, opts.prompt, ct, result)

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(result.FinalCode), 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		logger.Info("Contract written", "path", opts.output)
	} else {
		fmt.Println(result.FinalCode)
	}

	if opts.showReport {
		printSessionReport(result)
	}

	if !result.Success {
		return fmt.Errorf("generation did not reach the quality bar (best score %.1f)",
			result.FinalQualityScore.Overall)
	}
	return nil
}

// persistSession stores the session record when NATS is available.
// Persistence is best-effort; the generated contract was already
// delivered.
func persistSession(ctx context.Context, logger *slog.Logger, publisher *events.Publisher, prompt string, ct contract.Type, result *pipeline.RetryResult) {
	conn := publisher.Conn()
	if conn == nil {
		return
	}

	js, err := jetstream.New(conn)
	if err != nil {
		logger.Warn("JetStream unavailable, session not persisted", "error", err)
		return
	}
	store, err := storage.NewSessionStore(ctx, js)
	if err != nil {
		logger.Warn("Session store unavailable", "error", err)
		return
	}
	if err := store.Save(ctx, prompt, ct.Category, result); err != nil {
		logger.Warn("Failed to persist session", "error", err)
		return
	}
	logger.Debug("Session persisted", "session_id", result.SessionID)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}
	return config.NewLoader(nil).Load()
}

func printSessionReport(result *pipeline.RetryResult) {
	fmt.Fprintf(os.Stderr, "\n--- session %s ---\n", result.SessionID)
	fmt.Fprintf(os.Stderr, "success:        %v\n", result.Success)
	fmt.Fprintf(os.Stderr, "attempts:       %d\n", result.TotalAttempts)
	fmt.Fprintf(os.Stderr, "fallback used:  %v\n", result.FallbackUsed)
	fmt.Fprintf(os.Stderr, "overall score:  %.1f\n", result.FinalQualityScore.Overall)
	fmt.Fprintf(os.Stderr, "  syntax:         %.1f\n", result.FinalQualityScore.Syntax)
	fmt.Fprintf(os.Stderr, "  logic:          %.1f\n", result.FinalQualityScore.Logic)
	fmt.Fprintf(os.Stderr, "  completeness:   %.1f\n", result.FinalQualityScore.Completeness)
	fmt.Fprintf(os.Stderr, "  best practices: %.1f\n", result.FinalQualityScore.BestPractices)
	fmt.Fprintf(os.Stderr, "  readiness:      %.1f\n", result.FinalQualityScore.ProductionReadiness)
	if len(result.RecoveryStrategiesUsed) > 0 {
		fmt.Fprintf(os.Stderr, "recoveries:     %s\n", strings.Join(result.RecoveryStrategiesUsed, ", "))
	}
	for _, attempt := range result.RetryHistory {
		fmt.Fprintf(os.Stderr, "attempt %d: level=%s temp=%.2f score=%.1f success=%v\n",
			attempt.AttemptNumber,
			attempt.EnhancementLevel,
			attempt.Temperature,
			attempt.QualityScore.Overall,
			attempt.Success)
	}
}
