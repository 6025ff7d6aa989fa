// Package storage persists generation session records in NATS KV.
// Records are the audit trail for why a contract came out the way it
// did: every attempt, score, correction, and recovery is queryable
// after the fact.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/mosaicworks/cadenceforge/contract"
	"github.com/mosaicworks/cadenceforge/pipeline"
)

// BucketSessions is the KV bucket holding session records.
const BucketSessions = "FORGE_SESSIONS"

// SessionRecord is the persisted form of a finished session.
type SessionRecord struct {
	SessionID string                `json:"session_id"`
	Prompt    string                `json:"prompt"`
	Category  contract.Category     `json:"category"`
	Result    *pipeline.RetryResult `json:"result"`
	StoredAt  time.Time             `json:"stored_at"`
}

// SessionStore provides session persistence backed by NATS KV.
type SessionStore struct {
	sessions jetstream.KeyValue
}

// NewSessionStore creates the store, creating the KV bucket if needed.
func NewSessionStore(ctx context.Context, js jetstream.JetStream) (*SessionStore, error) {
	kv, err := getOrCreateBucket(ctx, js, BucketSessions)
	if err != nil {
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}
	return &SessionStore{sessions: kv}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "CadenceForge generation session records",
		History:     1,
	})
}

// Save persists one finished session keyed by its session ID.
func (s *SessionStore) Save(ctx context.Context, prompt string, category contract.Category, result *pipeline.RetryResult) error {
	if result == nil || result.SessionID == "" {
		return fmt.Errorf("result with a session ID is required")
	}

	record := SessionRecord{
		SessionID: result.SessionID,
		Prompt:    prompt,
		Category:  category,
		Result:    result,
		StoredAt:  time.Now(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	if _, err := s.sessions.Put(ctx, result.SessionID, data); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Get retrieves one session record by ID.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	entry, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var record SessionRecord
	if err := json.Unmarshal(entry.Value(), &record); err != nil {
		return nil, fmt.Errorf("unmarshal session record: %w", err)
	}
	return &record, nil
}

// List returns all stored sessions, newest first. Corrupt entries are
// skipped rather than failing the whole listing.
func (s *SessionStore) List(ctx context.Context) ([]*SessionRecord, error) {
	keys, err := s.sessions.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list session keys: %w", err)
	}

	records := make([]*SessionRecord, 0, len(keys))
	for _, key := range keys {
		entry, err := s.sessions.Get(ctx, key)
		if err != nil {
			continue
		}
		var record SessionRecord
		if err := json.Unmarshal(entry.Value(), &record); err != nil {
			continue
		}
		records = append(records, &record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StoredAt.After(records[j].StoredAt)
	})
	return records, nil
}

// Delete removes one session record.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}
