package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAICompatGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req oaiChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("expected system+user messages, got %+v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "  generated notes  "}},
			},
		})
	}))
	defer srv.Close()

	gen := NewOpenAICompatGenerator(srv.URL+"/v1", "test-key", "test-model")
	got, err := gen.GenerateText(context.Background(), "be concise", "summarize this")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "generated notes" {
		t.Fatalf("expected trimmed text, got %q", got)
	}
}

func TestOpenAICompatSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "rate limited", "type": "rate_limit"},
		})
	}))
	defer srv.Close()

	gen := NewOpenAICompatGenerator(srv.URL+"/v1", "", "test-model")
	_, err := gen.GenerateText(context.Background(), "", "hello")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusTooManyRequests || apiErr.Message != "rate limited" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if !IsTransient(err) {
		t.Fatal("429 should be transient")
	}
}

func TestOpenAICompatRejectsEmptyChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	gen := NewOpenAICompatGenerator(srv.URL+"/v1", "", "test-model")
	if _, err := gen.GenerateText(context.Background(), "", "hello"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
