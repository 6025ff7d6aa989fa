package main

import (
	"math"
	"testing"
	"time"

	"github.com/mosaicworks/cadenceforge/contract"
	"github.com/mosaicworks/cadenceforge/events"
	"github.com/mosaicworks/cadenceforge/pipeline"
	"github.com/mosaicworks/cadenceforge/quality"
	"github.com/mosaicworks/cadenceforge/storage"
)

func storedSession(id string, score float64, success, fallback bool) storage.SessionRecord {
	return storage.SessionRecord{
		SessionID: id,
		Category:  contract.CategoryNFT,
		StoredAt:  time.Now(),
		Result: &pipeline.RetryResult{
			SessionID:         id,
			Success:           success,
			FallbackUsed:      fallback,
			TotalAttempts:     2,
			FinalQualityScore: quality.Score{Overall: score},
		},
	}
}

func TestSummarizeRecords(t *testing.T) {
	records := []storage.SessionRecord{
		storedSession("a", 90, true, false),
		storedSession("b", 80, true, true),
		storedSession("c", 70, false, false),
	}

	summary := summarizeRecords(records)

	if summary.Sessions != 3 {
		t.Fatalf("sessions = %d, want 3", summary.Sessions)
	}
	if math.Abs(summary.MeanScore-80) > 1e-9 {
		t.Errorf("mean score = %f, want 80", summary.MeanScore)
	}
	if math.Abs(summary.SuccessRate-2.0/3.0) > 1e-9 {
		t.Errorf("success rate = %f, want 2/3", summary.SuccessRate)
	}
	if math.Abs(summary.FallbackRate-1.0/3.0) > 1e-9 {
		t.Errorf("fallback rate = %f, want 1/3", summary.FallbackRate)
	}
}

func TestSummarizeRecordsEmpty(t *testing.T) {
	summary := summarizeRecords(nil)
	if summary.Sessions != 0 {
		t.Fatalf("empty store must yield the zero summary, got %+v", summary)
	}
}

func TestResultFromEvent(t *testing.T) {
	finished := time.Now()
	event := events.SessionFinishedEvent{
		SessionID:          "s1",
		Category:           contract.CategoryDAO,
		Success:            true,
		FallbackUsed:       true,
		TotalAttempts:      4,
		FinalQualityScore:  77.5,
		RecoveryStrategies: []string{"template-seed"},
		DurationSeconds:    2.5,
		FinishedAt:         finished,
	}

	result := resultFromEvent(event)

	if result.SessionID != "s1" || !result.Success || !result.FallbackUsed {
		t.Fatalf("outcome fields lost: %+v", result)
	}
	if result.TotalAttempts != 4 {
		t.Errorf("attempts = %d, want 4", result.TotalAttempts)
	}
	if result.FinalQualityScore.Overall != 77.5 {
		t.Errorf("score = %f, want 77.5", result.FinalQualityScore.Overall)
	}
	got := result.Metrics.EndTime.Sub(result.Metrics.StartTime).Seconds()
	if math.Abs(got-2.5) > 1e-6 {
		t.Errorf("reconstructed duration = %fs, want 2.5s", got)
	}
}
