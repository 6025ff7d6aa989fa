// Package events publishes generation session lifecycle events over
// NATS. Subjects follow "forge.sessions.<action>" so consumers can
// subscribe per event type or wildcard the whole stream.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mosaicworks/cadenceforge/contract"
	"github.com/mosaicworks/cadenceforge/pipeline"
)

// Session lifecycle subjects.
const (
	SubjectSessionStarted   = "forge.sessions.started"
	SubjectSessionSucceeded = "forge.sessions.succeeded"
	SubjectSessionFallback  = "forge.sessions.fallback"
	SubjectSessionFailed    = "forge.sessions.failed"
)

// SessionStartedEvent is published when a generation session begins.
type SessionStartedEvent struct {
	SessionID  string            `json:"session_id"`
	Prompt     string            `json:"prompt"`
	Category   contract.Category `json:"category"`
	MaxRetries int               `json:"max_retries"`
	StartedAt  time.Time         `json:"started_at"`
}

// SessionFinishedEvent is published when a session reaches a terminal
// state, on the subject matching its outcome.
type SessionFinishedEvent struct {
	SessionID          string            `json:"session_id"`
	Category           contract.Category `json:"category"`
	Success            bool              `json:"success"`
	FallbackUsed       bool              `json:"fallback_used"`
	TotalAttempts      int               `json:"total_attempts"`
	FinalQualityScore  float64           `json:"final_quality_score"`
	RecoveryStrategies []string          `json:"recovery_strategies,omitempty"`
	DurationSeconds    float64           `json:"duration_seconds"`
	FinishedAt         time.Time         `json:"finished_at"`
}

// Publisher emits session events. A nil Publisher or a Publisher with a
// nil connection is a no-op, so callers never branch on whether
// eventing is configured.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher wraps an established NATS connection. Pass nil to
// disable publishing.
func NewPublisher(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn}
}

// Connect dials NATS and returns a Publisher over the connection.
func Connect(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return &Publisher{conn: conn}, nil
}

// Conn exposes the underlying connection so callers can share it, for
// example with a JetStream session store. Nil when publishing is
// disabled.
func (p *Publisher) Conn() *nats.Conn {
	if p == nil {
		return nil
	}
	return p.conn
}

// Close drains the connection. Safe on a nil or disabled Publisher.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}

// SessionStarted publishes the start event.
func (p *Publisher) SessionStarted(sessionID, prompt string, category contract.Category, maxRetries int) error {
	return p.publish(SubjectSessionStarted, SessionStartedEvent{
		SessionID:  sessionID,
		Prompt:     prompt,
		Category:   category,
		MaxRetries: maxRetries,
		StartedAt:  time.Now(),
	})
}

// outcomeSubject maps a terminal result to its subject.
func outcomeSubject(result *pipeline.RetryResult) string {
	switch {
	case result.Success && result.FallbackUsed:
		return SubjectSessionFallback
	case result.Success:
		return SubjectSessionSucceeded
	default:
		return SubjectSessionFailed
	}
}

// SessionFinished publishes the terminal event on the outcome subject.
func (p *Publisher) SessionFinished(result *pipeline.RetryResult, category contract.Category) error {
	return p.publish(outcomeSubject(result), SessionFinishedEvent{
		SessionID:          result.SessionID,
		Category:           category,
		Success:            result.Success,
		FallbackUsed:       result.FallbackUsed,
		TotalAttempts:      result.TotalAttempts,
		FinalQualityScore:  result.FinalQualityScore.Overall,
		RecoveryStrategies: result.RecoveryStrategiesUsed,
		DurationSeconds:    result.Metrics.EndTime.Sub(result.Metrics.StartTime).Seconds(),
		FinishedAt:         time.Now(),
	})
}

// SubscribeFinished delivers every terminal session event on the
// wildcard subject to handler. Handler runs on the NATS delivery
// goroutine, so it must not block.
func (p *Publisher) SubscribeFinished(handler func(subject string, event SessionFinishedEvent)) (*nats.Subscription, error) {
	if p == nil || p.conn == nil {
		return nil, fmt.Errorf("nats connection not configured")
	}
	return p.conn.Subscribe("forge.sessions.*", func(msg *nats.Msg) {
		if event, ok := decodeFinished(msg.Subject, msg.Data); ok {
			handler(msg.Subject, event)
		}
	})
}

// decodeFinished filters and decodes a terminal session event. Start
// events and malformed payloads yield false.
func decodeFinished(subject string, data []byte) (SessionFinishedEvent, bool) {
	if subject == SubjectSessionStarted {
		return SessionFinishedEvent{}, false
	}
	var event SessionFinishedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return SessionFinishedEvent{}, false
	}
	return event, true
}

func (p *Publisher) publish(subject string, event any) error {
	if p == nil || p.conn == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
