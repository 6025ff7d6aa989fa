package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mosaicworks/cadenceforge/contract"
	"github.com/mosaicworks/cadenceforge/correction"
	"github.com/mosaicworks/cadenceforge/fallbackgen"
	"github.com/mosaicworks/cadenceforge/prompts"
	"github.com/mosaicworks/cadenceforge/quality"
	"github.com/mosaicworks/cadenceforge/validation"
)

// Default orchestration knobs.
const (
	DefaultQualityThreshold  = 80.0
	DefaultTimeoutPerAttempt = 60 * time.Second
	DefaultMaxRetries        = 3
)

// Orchestrator drives generation sessions. It is stateless across
// sessions: all per-session state lives in local accumulators, so a
// single Orchestrator may serve concurrent sessions.
type Orchestrator struct {
	logger            *slog.Logger
	corrector         Corrector
	fallback          FallbackFunc
	strategies        []Strategy
	weights           quality.Weights
	qualityThreshold  float64
	timeoutPerAttempt time.Duration
	autoCorrect       bool
	fallbackEnabled   bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithQualityThreshold sets the default acceptance bar, used when the
// session's requirements do not specify one.
func WithQualityThreshold(threshold float64) Option {
	return func(o *Orchestrator) { o.qualityThreshold = threshold }
}

// WithTimeoutPerAttempt sets the deadline for each external generation
// call.
func WithTimeoutPerAttempt(timeout time.Duration) Option {
	return func(o *Orchestrator) { o.timeoutPerAttempt = timeout }
}

// WithCorrector sets the auto-correction engine. Nil disables correction.
func WithCorrector(c Corrector) Option {
	return func(o *Orchestrator) {
		o.corrector = c
		o.autoCorrect = c != nil
	}
}

// WithFallback sets the fallback generator. Nil disables fallback.
func WithFallback(f FallbackFunc) Option {
	return func(o *Orchestrator) {
		o.fallback = f
		o.fallbackEnabled = f != nil
	}
}

// WithStrategies replaces the recovery strategies.
func WithStrategies(strategies []Strategy) Option {
	return func(o *Orchestrator) { o.strategies = strategies }
}

// WithWeights sets the quality score weights.
func WithWeights(w quality.Weights) Option {
	return func(o *Orchestrator) { o.weights = w }
}

// NewOrchestrator creates an orchestrator with correction, fallback, and
// the default recovery strategies enabled.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:            slog.Default(),
		corrector:         correction.NewEngine(),
		fallback:          DefaultFallback,
		strategies:        DefaultStrategies(),
		weights:           quality.DefaultWeights(),
		qualityThreshold:  DefaultQualityThreshold,
		timeoutPerAttempt: DefaultTimeoutPerAttempt,
		autoCorrect:       true,
		fallbackEnabled:   true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DefaultFallback adapts the template generator to the FallbackFunc
// contract.
func DefaultFallback(prompt string, ct contract.Type) (string, error) {
	return fallbackgen.Generate(prompt, ct), nil
}

// attemptOutcome carries one attempt's conclusion through the loop fold.
type attemptOutcome struct {
	attempt  RetryAttempt
	accepted bool
}

// ExecuteWithRetry runs one full generation session to a terminal
// RetryResult. It never returns an error: generation failures, timeouts,
// and quality shortfalls are all captured as data on the result.
func (o *Orchestrator) ExecuteWithRetry(ctx context.Context, req GenerationRequest, genCtx GenerationContext, generate GenerateFunc) *RetryResult {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	start := time.Now()
	threshold := o.thresholdFor(genCtx.Requirements)
	maxAttempts := o.maxAttemptsFor(req, genCtx.Requirements)

	logger := o.logger.With("session_id", sessionID)
	logger.Info("Generation session started",
		"category", genCtx.ContractType.Category,
		"max_attempts", maxAttempts,
		"quality_threshold", threshold,
		"strict_mode", req.StrictMode)

	validator := &validation.Validator{ProhibitedPatterns: genCtx.Requirements.ProhibitedPatterns}

	// Session state is an explicit fold accumulator, never shared fields:
	// sessions stay independent and testable in isolation.
	var history []RetryAttempt
	var patterns []FailurePattern
	recoveriesUsed := make([]string, 0)

	for attemptNum := 1; attemptNum <= maxAttempts; attemptNum++ {
		outcome := o.runAttempt(ctx, attemptNum, req, genCtx, validator, patterns, threshold, generate, logger)
		history = append(history, outcome.attempt)
		genCtx.PreviousAttempts = history

		if outcome.accepted {
			logger.Info("Attempt accepted",
				"attempt", attemptNum,
				"score", outcome.attempt.QualityScore.Overall)
			return o.finalize(sessionID, start, history, patterns, recoveriesUsed, outcome.attempt, false)
		}

		if len(outcome.attempt.FailureReasons) > 0 && outcome.attempt.FailureReasons[0] == FailureGenerationError {
			patterns = mergePatterns(patterns, []FailurePattern{
				generationErrorPattern(causeOf(outcome.attempt)),
			})
		} else {
			patterns = mergePatterns(patterns, extractPatterns(outcome.attempt.ValidationResults))
		}

		// Recovery strategies run between attempts only, highest
		// priority first, short-circuiting on the first success. After
		// the final attempt the session goes straight to fallback.
		if attemptNum < maxAttempts {
			if recovered, name, ok := o.tryRecovery(ctx, req, genCtx, validator, patterns, attemptNum, threshold, generate, logger); ok {
				recoveriesUsed = append(recoveriesUsed, name)
				history = append(history, recovered)
				return o.finalize(sessionID, start, history, patterns, recoveriesUsed, recovered, false)
			}
		}
	}

	// Retries exhausted: the fallback is the floor, not another quality
	// gate. Its output is always accepted when it can be produced.
	if o.fallbackEnabled {
		if fb, ok := o.runFallback(ctx, req, genCtx, validator, len(history)+1, logger); ok {
			history = append(history, fb)
			return o.finalize(sessionID, start, history, patterns, recoveriesUsed, fb, true)
		}
	}

	// Fallback unavailable or failed: surface the best attempt so far,
	// ties broken by earliest attempt.
	best := bestAttempt(history)
	logger.Warn("Session failed",
		"attempts", len(history),
		"best_score", best.QualityScore.Overall)
	result := o.finalize(sessionID, start, history, patterns, recoveriesUsed, best, false)
	result.Success = false
	return result
}

func (o *Orchestrator) thresholdFor(reqs QualityRequirements) float64 {
	if reqs.MinimumQualityScore > 0 {
		return reqs.MinimumQualityScore
	}
	return o.qualityThreshold
}

func (o *Orchestrator) maxAttemptsFor(req GenerationRequest, reqs QualityRequirements) int {
	max := req.MaxRetries
	if max <= 0 {
		max = DefaultMaxRetries
	}
	if perf := reqs.Performance.MaxRetryAttempts; perf > 0 && perf < max {
		max = perf
	}
	return max
}

func (o *Orchestrator) attemptTimeout(reqs QualityRequirements) time.Duration {
	if t := reqs.Performance.MaxGenerationTime; t > 0 {
		return t
	}
	return o.timeoutPerAttempt
}

// runAttempt executes the ENHANCE→GENERATE→VALIDATE→SCORE→CORRECT→DECIDE
// sequence for one attempt.
func (o *Orchestrator) runAttempt(
	ctx context.Context,
	attemptNum int,
	req GenerationRequest,
	genCtx GenerationContext,
	validator *validation.Validator,
	patterns []FailurePattern,
	threshold float64,
	generate GenerateFunc,
	logger *slog.Logger,
) attemptOutcome {
	started := time.Now()

	// ENHANCE
	enhanced := prompts.Enhance(req.Prompt, prompts.Options{
		AttemptNumber:    attemptNum,
		StrictMode:       req.StrictMode,
		PreviousFailures: adviceFromPatterns(patterns),
		ContractType:     genCtx.ContractType,
		Experience:       genCtx.UserExperience,
	})
	fullPrompt := enhanced.SystemPrompt + "\n\n" + enhanced.UserPrompt
	if req.ContextText != "" {
		fullPrompt = fullPrompt + "\n\nAdditional context:\n" + req.ContextText
	}

	attempt := RetryAttempt{
		AttemptNumber:    attemptNum,
		EnhancedPrompt:   fullPrompt,
		EnhancementLevel: enhanced.Level,
		Temperature:      enhanced.Temperature,
	}

	// GENERATE under a hard deadline.
	genStart := time.Now()
	code, err := o.generateWithDeadline(ctx, fullPrompt, enhanced.Temperature, o.attemptTimeout(genCtx.Requirements), generate)
	attempt.GenerationTime = time.Since(genStart)
	if err != nil {
		logger.Warn("Generation call failed",
			"attempt", attemptNum,
			"error", err)
		attempt.FailureReasons = []string{FailureGenerationError, err.Error()}
		attempt.ProcessingTime = time.Since(started)
		return attemptOutcome{attempt: attempt}
	}
	attempt.GeneratedCode = code

	// VALIDATE + SCORE
	valStart := time.Now()
	results := validator.Validate(code, genCtx.ContractType)
	attempt.ValidationTime = time.Since(valStart)
	score := quality.Calculate(results, genCtx.ContractType, o.weights)
	attempt.ValidationResults = results
	attempt.QualityScore = score

	// CORRECT once when below threshold, then re-validate and re-score.
	if score.Overall < threshold && o.autoCorrect && o.corrector != nil {
		corrStart := time.Now()
		corrected := o.corrector.Correct(code, validation.CollectIssues(results))
		attempt.CorrectionTime = time.Since(corrStart)

		if corrected.Success && len(corrected.Corrections) > 0 {
			newResults := validator.Validate(corrected.CorrectedCode, genCtx.ContractType)
			newScore := quality.Calculate(newResults, genCtx.ContractType, o.weights)

			record := CorrectionAttempt{
				AttemptNumber:      1,
				Corrections:        corrected.Corrections,
				Success:            newScore.Overall >= score.Overall,
				QualityImprovement: newScore.Overall - score.Overall,
			}
			attempt.CorrectionAttempts = append(attempt.CorrectionAttempts, record)

			// Adopt the corrected text only when it did not make things
			// worse.
			if newScore.Overall >= score.Overall {
				attempt.GeneratedCode = corrected.CorrectedCode
				attempt.ValidationResults = newResults
				attempt.QualityScore = newScore
				score = newScore
				results = newResults
			}
			logger.Debug("Auto-correction applied",
				"attempt", attemptNum,
				"improvement", record.QualityImprovement,
				"corrections", len(corrected.Corrections))
		} else {
			attempt.CorrectionAttempts = append(attempt.CorrectionAttempts, CorrectionAttempt{
				AttemptNumber: 1,
				Success:       false,
			})
		}
	}

	// DECIDE
	accepted := quality.MeetsThreshold(score, threshold)
	attempt.Success = accepted
	if !accepted {
		attempt.FailureReasons = failureReasons(results)
		logger.Debug("Attempt below threshold",
			"attempt", attemptNum,
			"score", score.Overall,
			"threshold", threshold)
	}
	attempt.ProcessingTime = time.Since(started)
	return attemptOutcome{attempt: attempt, accepted: accepted}
}

// generateWithDeadline runs the external call racing a deadline. The
// call's eventual result, if it arrives after the deadline, is discarded
// via the buffered channel: no dangling callback can mutate session
// state once the attempt is finalized.
func (o *Orchestrator) generateWithDeadline(ctx context.Context, prompt string, temperature float64, timeout time.Duration, generate GenerateFunc) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type genResult struct {
		code string
		err  error
	}
	resultCh := make(chan genResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- genResult{err: fmt.Errorf("generator panicked: %v", r)}
			}
		}()
		code, err := generate(callCtx, prompt, temperature)
		resultCh <- genResult{code: code, err: err}
	}()

	select {
	case res := <-resultCh:
		return res.code, res.err
	case <-callCtx.Done():
		return "", fmt.Errorf("generation timed out after %s: %w", timeout, callCtx.Err())
	}
}

// tryRecovery runs registered strategies in priority order and returns a
// synthesized attempt for the first one whose output clears the
// threshold.
func (o *Orchestrator) tryRecovery(
	ctx context.Context,
	req GenerationRequest,
	genCtx GenerationContext,
	validator *validation.Validator,
	patterns []FailurePattern,
	attemptNum int,
	threshold float64,
	generate GenerateFunc,
	logger *slog.Logger,
) (RetryAttempt, string, bool) {
	in := RecoveryInput{
		Request:  req,
		Context:  genCtx,
		Patterns: patterns,
		Attempt:  attemptNum,
		Generate: generate,
	}

	for _, strategy := range sortStrategies(o.strategies) {
		if strategy.ShouldApply == nil || !strategy.ShouldApply(patterns, attemptNum) {
			continue
		}

		logger.Debug("Trying recovery strategy", "strategy", strategy.Name, "attempt", attemptNum)
		started := time.Now()
		code, err := strategy.Apply(ctx, in)
		if err != nil {
			logger.Debug("Recovery strategy failed", "strategy", strategy.Name, "error", err)
			continue
		}

		results := validator.Validate(code, genCtx.ContractType)
		score := quality.Calculate(results, genCtx.ContractType, o.weights)
		if !quality.MeetsThreshold(score, threshold) {
			logger.Debug("Recovery output below threshold",
				"strategy", strategy.Name,
				"score", score.Overall)
			continue
		}

		logger.Info("Recovery strategy succeeded",
			"strategy", strategy.Name,
			"score", score.Overall)
		return RetryAttempt{
			AttemptNumber:     attemptNum + 1,
			EnhancedPrompt:    fmt.Sprintf("recovery:%s", strategy.Name),
			GeneratedCode:     code,
			ValidationResults: results,
			QualityScore:      score,
			Success:           true,
			EnhancementLevel:  prompts.LevelForAttempt(attemptNum + 1),
			Temperature:       prompts.TemperatureForLevel(prompts.LevelForAttempt(attemptNum + 1)),
			ProcessingTime:    time.Since(started),
		}, strategy.Name, true
	}

	return RetryAttempt{}, "", false
}

// runFallback invokes the fallback generator and builds its attempt
// record. The fallback's output is validated and scored like any attempt
// but accepted regardless of score.
func (o *Orchestrator) runFallback(
	ctx context.Context,
	req GenerationRequest,
	genCtx GenerationContext,
	validator *validation.Validator,
	attemptNum int,
	logger *slog.Logger,
) (RetryAttempt, bool) {
	started := time.Now()

	code, err := o.safeFallback(req.Prompt, genCtx.ContractType)
	if err != nil {
		logger.Error("Fallback generation failed", "error", err)
		return RetryAttempt{}, false
	}

	results := validator.Validate(code, genCtx.ContractType)
	score := quality.Calculate(results, genCtx.ContractType, o.weights)

	logger.Info("Fallback contract generated",
		"category", genCtx.ContractType.Category,
		"score", score.Overall)

	return RetryAttempt{
		AttemptNumber:     attemptNum,
		EnhancedPrompt:    "fallback:template",
		GeneratedCode:     code,
		ValidationResults: results,
		QualityScore:      score,
		Success:           true,
		EnhancementLevel:  prompts.LevelForAttempt(attemptNum),
		Temperature:       0,
		ProcessingTime:    time.Since(started),
	}, true
}

// safeFallback guards against a panicking fallback implementation so
// the session can still return the best prior attempt.
func (o *Orchestrator) safeFallback(prompt string, ct contract.Type) (code string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fallback panicked: %v", r)
		}
	}()
	return o.fallback(prompt, ct)
}

// finalize assembles the terminal RetryResult and its metrics summary.
func (o *Orchestrator) finalize(
	sessionID string,
	start time.Time,
	history []RetryAttempt,
	patterns []FailurePattern,
	recoveriesUsed []string,
	final RetryAttempt,
	fallbackUsed bool,
) *RetryResult {
	if patterns == nil {
		patterns = make([]FailurePattern, 0)
	}
	return &RetryResult{
		SessionID:              sessionID,
		Success:                final.Success,
		FinalCode:              final.GeneratedCode,
		TotalAttempts:          len(history),
		RetryHistory:           history,
		FinalQualityScore:      final.QualityScore,
		FallbackUsed:           fallbackUsed,
		FailurePatterns:        patterns,
		RecoveryStrategiesUsed: recoveriesUsed,
		Metrics:                computeMetrics(history, final, start),
	}
}

// computeMetrics derives the session summary purely from the retry
// history.
func computeMetrics(history []RetryAttempt, final RetryAttempt, start time.Time) Metrics {
	m := Metrics{
		AttemptCount:      len(history),
		FinalQualityScore: final.QualityScore.Overall,
		StartTime:         start,
		EndTime:           time.Now(),
	}
	for _, a := range history {
		m.TotalGenerationTime += a.GenerationTime
		m.ValidationTime += a.ValidationTime
		m.CorrectionTime += a.CorrectionTime
		for _, r := range a.ValidationResults {
			m.IssuesDetected += len(r.Issues)
		}
		for _, c := range a.CorrectionAttempts {
			for _, fix := range c.Corrections {
				m.IssuesFixed += fix.Count
			}
		}
	}
	return m
}

// bestAttempt returns the highest-scoring attempt, ties broken by the
// earliest attempt. A zero attempt is returned for an empty history.
func bestAttempt(history []RetryAttempt) RetryAttempt {
	var best RetryAttempt
	for i, a := range history {
		if i == 0 || a.QualityScore.Overall > best.QualityScore.Overall {
			best = a
		}
	}
	best.Success = false
	return best
}

// causeOf extracts the human cause from a generation-error attempt.
func causeOf(attempt RetryAttempt) string {
	if len(attempt.FailureReasons) > 1 {
		return attempt.FailureReasons[1]
	}
	return "generation call failed"
}

// failureReasons summarizes why an attempt missed the threshold.
func failureReasons(results []*validation.Result) []string {
	var reasons []string
	for _, r := range results {
		if !r.Passed {
			reasons = append(reasons, fmt.Sprintf("validation-failure:%s", r.Dimension))
		}
	}
	if len(reasons) == 0 {
		reasons = []string{"quality-below-threshold"}
	}
	return reasons
}
