package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func postCompletion(t *testing.T, s *server, model string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: "generate a contract"}},
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	s.handleChatCompletions(rec, req)
	return rec
}

func decodeContent(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("choices = %d, want 1", len(resp.Choices))
	}
	return resp.Choices[0].Message.Content
}

func TestServesFixtureContent(t *testing.T) {
	s := newServer(map[string][]string{"coder": {"access(all) contract A {}"}})

	rec := postCompletion(t, s, "coder")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeContent(t, rec); got != "access(all) contract A {}" {
		t.Errorf("content = %q", got)
	}
}

func TestSequentialFixturesThenRepeatLast(t *testing.T) {
	s := newServer(map[string][]string{"flaky": {"broken1", "broken2", "clean"}})

	want := []string{"broken1", "broken2", "clean", "clean", "clean"}
	for i, expected := range want {
		rec := postCompletion(t, s, "flaky")
		if got := decodeContent(t, rec); got != expected {
			t.Errorf("call %d: content = %q, want %q", i+1, got, expected)
		}
	}
}

func TestUnknownModelReturns404(t *testing.T) {
	s := newServer(map[string][]string{"coder": {"x"}})
	rec := postCompletion(t, s, "ghost")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newServer(map[string][]string{"coder": {"x"}})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/chat/completions", nil)
	s.handleChatCompletions(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestStatsCounting(t *testing.T) {
	s := newServer(map[string][]string{"a": {"1"}, "b": {"2"}})
	postCompletion(t, s, "a")
	postCompletion(t, s, "a")
	postCompletion(t, s, "b")

	rec := httptest.NewRecorder()
	s.handleStats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	var stats struct {
		TotalCalls   int64            `json:"total_calls"`
		CallsByModel map[string]int64 `json:"calls_by_model"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalCalls != 3 {
		t.Errorf("total calls = %d, want 3", stats.TotalCalls)
	}
	if stats.CallsByModel["a"] != 2 || stats.CallsByModel["b"] != 1 {
		t.Errorf("calls by model = %v", stats.CallsByModel)
	}
}

func TestRequestsCapture(t *testing.T) {
	s := newServer(map[string][]string{"coder": {"x"}})
	postCompletion(t, s, "coder")
	postCompletion(t, s, "coder")

	rec := httptest.NewRecorder()
	s.handleRequests(rec, httptest.NewRequest(http.MethodGet, "/requests?model=coder&call=2", nil))

	var payload struct {
		RequestsByModel map[string][]capturedRequest `json:"requests_by_model"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode requests: %v", err)
	}
	reqs := payload.RequestsByModel["coder"]
	if len(reqs) != 1 {
		t.Fatalf("filtered requests = %d, want 1", len(reqs))
	}
	if reqs[0].CallIndex != 2 {
		t.Errorf("call index = %d, want 2", reqs[0].CallIndex)
	}
}

func TestLoadFixturesOrdering(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"flaky.2.cdc": "second",
		"flaky.1.cdc": "first",
		"flaky.cdc":   "tail",
		"solid.cdc":   "only",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	fixtures, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}

	flaky := fixtures["flaky"]
	if len(flaky) != 3 || flaky[0] != "first" || flaky[1] != "second" || flaky[2] != "tail" {
		t.Errorf("flaky sequence = %v", flaky)
	}
	if len(fixtures["solid"]) != 1 || fixtures["solid"][0] != "only" {
		t.Errorf("solid sequence = %v", fixtures["solid"])
	}
}

func TestLoadFixturesEmptyDir(t *testing.T) {
	if _, err := loadFixtures(t.TempDir()); err == nil {
		t.Fatal("expected error for empty fixture directory")
	}
}
