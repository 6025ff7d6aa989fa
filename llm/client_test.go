package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func okResponse(content string) []byte {
	body, _ := json.Marshal(map[string]any{
		"model": "test-model",
		"choices": []map[string]any{
			{
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
	})
	return body
}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        time.Millisecond,
	}
}

func TestClientComplete(t *testing.T) {
	var gotAuth atomic.Value
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.NotNil(t, req.Temperature)
		assert.InDelta(t, 0.5, *req.Temperature, 1e-9)

		w.Write(okResponse("access(all) contract Minimal {}"))
	})

	c := NewClient([]Endpoint{{
		Name:   "primary",
		URL:    srv.URL + "/v1",
		Model:  "test-model",
		APIKey: "secret",
	}})

	temp := 0.5
	resp, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "generate"}}, &temp)
	require.NoError(t, err)
	assert.Equal(t, "access(all) contract Minimal {}", resp.Content)
	assert.Equal(t, "primary", resp.Endpoint)
	assert.Equal(t, 30, resp.TotalTokens)
	assert.Equal(t, "Bearer secret", gotAuth.Load())
}

func TestClientRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(okResponse("ok"))
	})

	c := NewClient(
		[]Endpoint{{Name: "flaky", URL: srv.URL, Model: "m"}},
		WithRetryConfig(fastRetry()),
	)

	out, err := c.Generate(context.Background(), "prompt", 0.7)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientFatalErrorStopsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	c := NewClient(
		[]Endpoint{{Name: "denied", URL: srv.URL, Model: "m"}},
		WithRetryConfig(fastRetry()),
	)

	_, err := c.Generate(context.Background(), "prompt", 0.7)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, int32(1), calls.Load(), "fatal errors must not retry")
}

func TestClientFallsBackToSecondEndpoint(t *testing.T) {
	bad := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	good := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(okResponse("from fallback"))
	})

	c := NewClient(
		[]Endpoint{
			{Name: "primary", URL: bad.URL, Model: "m"},
			{Name: "backup", URL: good.URL, Model: "m"},
		},
		WithRetryConfig(RetryConfig{MaxAttempts: 1, BackoffBase: time.Millisecond, BackoffMultiplier: 1, MaxBackoff: time.Millisecond}),
	)

	resp, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "x"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "from fallback", resp.Content)
	assert.Equal(t, "backup", resp.Endpoint)
}

func TestClientContextCancellation(t *testing.T) {
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	c := NewClient(
		[]Endpoint{{Name: "slow", URL: srv.URL, Model: "m"}},
		WithRetryConfig(RetryConfig{MaxAttempts: 10, BackoffBase: time.Second, BackoffMultiplier: 2, MaxBackoff: 10 * time.Second}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Generate(ctx, "prompt", 0.7)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientEmptyChoices(t *testing.T) {
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model":"m","choices":[]}`))
	})

	c := NewClient(
		[]Endpoint{{Name: "empty", URL: srv.URL, Model: "m"}},
		WithRetryConfig(RetryConfig{MaxAttempts: 1, BackoffBase: time.Millisecond, BackoffMultiplier: 1, MaxBackoff: time.Millisecond}),
	)

	_, err := c.Generate(context.Background(), "prompt", 0.7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestEndpointCompletionsURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"base", "http://localhost:11434/v1", "http://localhost:11434/v1/chat/completions"},
		{"trailing slash", "http://localhost:11434/v1/", "http://localhost:11434/v1/chat/completions"},
		{"already full", "http://x/v1/chat/completions", "http://x/v1/chat/completions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Endpoint{URL: tt.url}.completionsURL())
		})
	}
}

func TestClassifyHTTPError(t *testing.T) {
	assert.True(t, IsTransient(classifyHTTPError(429, nil)))
	assert.True(t, IsTransient(classifyHTTPError(503, nil)))
	assert.True(t, IsTransient(classifyHTTPError(500, nil)))
	assert.True(t, IsFatal(classifyHTTPError(401, nil)))
	assert.True(t, IsFatal(classifyHTTPError(400, nil)))
	assert.True(t, IsFatal(classifyHTTPError(418, nil)))
}

func TestNoEndpointsConfigured(t *testing.T) {
	c := NewClient(nil)
	_, err := c.Generate(context.Background(), "prompt", 0.7)
	require.Error(t, err)
}
