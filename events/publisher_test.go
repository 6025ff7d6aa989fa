package events

import (
	"encoding/json"
	"testing"

	"github.com/mosaicworks/cadenceforge/contract"
	"github.com/mosaicworks/cadenceforge/pipeline"
	"github.com/mosaicworks/cadenceforge/quality"
)

func TestNilPublisherIsNoOp(t *testing.T) {
	var p *Publisher
	if err := p.SessionStarted("id", "prompt", contract.CategoryNFT, 3); err != nil {
		t.Fatalf("nil publisher returned error: %v", err)
	}
	p.Close()
}

func TestDisabledPublisherIsNoOp(t *testing.T) {
	p := NewPublisher(nil)
	result := &pipeline.RetryResult{
		SessionID:         "abc",
		Success:           true,
		FinalQualityScore: quality.Score{Overall: 92},
	}
	if err := p.SessionFinished(result, contract.CategoryDAO); err != nil {
		t.Fatalf("disabled publisher returned error: %v", err)
	}
	p.Close()
}

func TestDecodeFinished(t *testing.T) {
	payload, err := json.Marshal(SessionFinishedEvent{
		SessionID:         "s1",
		Category:          contract.CategoryNFT,
		Success:           true,
		TotalAttempts:     2,
		FinalQualityScore: 91.5,
		DurationSeconds:   3.25,
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	event, ok := decodeFinished(SubjectSessionSucceeded, payload)
	if !ok {
		t.Fatal("terminal event was not decoded")
	}
	if event.SessionID != "s1" || event.FinalQualityScore != 91.5 {
		t.Fatalf("decoded event mismatch: %+v", event)
	}

	if _, ok := decodeFinished(SubjectSessionStarted, payload); ok {
		t.Error("start events must be filtered out")
	}
	if _, ok := decodeFinished(SubjectSessionFailed, []byte("{not json")); ok {
		t.Error("malformed payloads must be skipped")
	}
}

func TestOutcomeSubjectSelection(t *testing.T) {
	tests := []struct {
		name     string
		success  bool
		fallback bool
		want     string
	}{
		{"clean success", true, false, SubjectSessionSucceeded},
		{"fallback success", true, true, SubjectSessionFallback},
		{"failure", false, false, SubjectSessionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := &pipeline.RetryResult{Success: tt.success, FallbackUsed: tt.fallback}
			if got := outcomeSubject(result); got != tt.want {
				t.Fatalf("subject = %q, want %q", got, tt.want)
			}
		})
	}
}
