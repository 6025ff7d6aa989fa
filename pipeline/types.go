// Package pipeline drives AI contract generation to an acceptable result.
// It orchestrates progressive prompt escalation, shallow validation,
// quality scoring, automatic correction, recovery strategies, and a
// deterministic template fallback, so callers always receive usable code
// no matter how unreliable the underlying generator is.
package pipeline

import (
	"context"
	"time"

	"github.com/mosaicworks/cadenceforge/contract"
	"github.com/mosaicworks/cadenceforge/correction"
	"github.com/mosaicworks/cadenceforge/prompts"
	"github.com/mosaicworks/cadenceforge/quality"
	"github.com/mosaicworks/cadenceforge/validation"
)

// GenerateFunc is the external text-generation call supplied by the
// caller. It may return an error or hang; the pipeline tolerates both.
type GenerateFunc func(ctx context.Context, prompt string, temperature float64) (string, error)

// FallbackFunc produces deterministic last-resort contract text.
type FallbackFunc func(prompt string, ct contract.Type) (string, error)

// Corrector rewrites auto-fixable validation issues.
type Corrector interface {
	Correct(text string, issues []validation.Issue) *correction.Result
}

// GenerationRequest describes what to generate and the retry budget.
// It is immutable for the duration of a session.
type GenerationRequest struct {
	// SessionID lets callers correlate the session with events they
	// emitted before starting it. Generated when empty.
	SessionID   string  `json:"session_id,omitempty"`
	Prompt      string  `json:"prompt"`
	ContextText string  `json:"context_text,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxRetries  int     `json:"max_retries"`
	StrictMode  bool    `json:"strict_mode"`
}

// PerformanceRequirements bounds the session's resource usage.
type PerformanceRequirements struct {
	MaxGenerationTime time.Duration `json:"max_generation_time"`
	MaxValidationTime time.Duration `json:"max_validation_time"`
	MaxRetryAttempts  int           `json:"max_retry_attempts"`
}

// QualityRequirements is the acceptance contract for a session.
type QualityRequirements struct {
	MinimumQualityScore float64                 `json:"minimum_quality_score"`
	RequiredFeatures    []string                `json:"required_features,omitempty"`
	ProhibitedPatterns  []string                `json:"prohibited_patterns,omitempty"`
	Performance         PerformanceRequirements `json:"performance"`
}

// GenerationContext aggregates everything an attempt needs. The
// PreviousAttempts slice grows monotonically within a session.
type GenerationContext struct {
	UserPrompt       string              `json:"user_prompt"`
	ContractType     contract.Type       `json:"contract_type"`
	Requirements     QualityRequirements `json:"requirements"`
	UserExperience   contract.Experience `json:"user_experience,omitempty"`
	PreviousAttempts []RetryAttempt      `json:"previous_attempts,omitempty"`
}

// CorrectionAttempt records one auto-correction pass inside an attempt.
type CorrectionAttempt struct {
	AttemptNumber      int                     `json:"attempt_number"`
	Corrections        []correction.Correction `json:"corrections,omitempty"`
	Success            bool                    `json:"success"`
	QualityImprovement float64                 `json:"quality_improvement"`
}

// RetryAttempt is the unit of retry history. Attempts are append-only
// and never deleted; the history is the session's audit trail.
type RetryAttempt struct {
	AttemptNumber      int                  `json:"attempt_number"`
	EnhancedPrompt     string               `json:"enhanced_prompt"`
	GeneratedCode      string               `json:"generated_code,omitempty"`
	ValidationResults  []*validation.Result `json:"validation_results,omitempty"`
	QualityScore       quality.Score        `json:"quality_score"`
	CorrectionAttempts []CorrectionAttempt  `json:"correction_attempts,omitempty"`
	Success            bool                 `json:"success"`
	FailureReasons     []string             `json:"failure_reasons,omitempty"`
	EnhancementLevel   prompts.Level        `json:"enhancement_level"`
	Temperature        float64              `json:"temperature"`
	ProcessingTime     time.Duration        `json:"processing_time"`

	// Sub-durations feeding the session metrics summary.
	GenerationTime time.Duration `json:"generation_time"`
	ValidationTime time.Duration `json:"validation_time"`
	CorrectionTime time.Duration `json:"correction_time"`
}

// FailurePattern aggregates recurring failure types across attempts
// within one session.
type FailurePattern struct {
	Type               string   `json:"type"`
	Frequency          int      `json:"frequency"`
	CommonCauses       []string `json:"common_causes,omitempty"`
	SuggestedSolutions []string `json:"suggested_solutions,omitempty"`
}

// Metrics is a deterministic summary computed from the retry history.
type Metrics struct {
	AttemptCount        int           `json:"attempt_count"`
	TotalGenerationTime time.Duration `json:"total_generation_time"`
	ValidationTime      time.Duration `json:"validation_time"`
	CorrectionTime      time.Duration `json:"correction_time"`
	FinalQualityScore   float64       `json:"final_quality_score"`
	IssuesDetected      int           `json:"issues_detected"`
	IssuesFixed         int           `json:"issues_fixed"`
	StartTime           time.Time     `json:"start_time"`
	EndTime             time.Time     `json:"end_time"`
}

// RetryResult is the terminal session record. FallbackUsed and
// RecoveryStrategiesUsed are always populated (possibly empty) so
// callers can distinguish clean, recovered, and fallback successes.
type RetryResult struct {
	SessionID              string           `json:"session_id"`
	Success                bool             `json:"success"`
	FinalCode              string           `json:"final_code"`
	TotalAttempts          int              `json:"total_attempts"`
	RetryHistory           []RetryAttempt   `json:"retry_history"`
	FinalQualityScore      quality.Score    `json:"final_quality_score"`
	FallbackUsed           bool             `json:"fallback_used"`
	FailurePatterns        []FailurePattern `json:"failure_patterns"`
	RecoveryStrategiesUsed []string         `json:"recovery_strategies_used"`
	Metrics                Metrics          `json:"metrics"`
}
