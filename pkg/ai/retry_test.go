package ai

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type scriptedGenerator struct {
	calls   int
	results []error
	text    string
}

func (s *scriptedGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.results) && s.results[idx] != nil {
		return "", s.results[idx]
	}
	return s.text, nil
}

func newFastThrottle(gen TextGenerator) *ThrottledGenerator {
	return NewThrottledGenerator(gen, ThrottleOptions{
		RequestsPerSecond: 1000,
		MaxAttempts:       3,
		BaseBackoff:       time.Millisecond,
	})
}

func TestThrottledGeneratorRetriesTransient(t *testing.T) {
	gen := &scriptedGenerator{
		results: []error{
			&APIError{Status: http.StatusTooManyRequests},
			&APIError{Status: http.StatusServiceUnavailable},
			nil,
		},
		text: "ok",
	}
	got, err := newFastThrottle(gen).GenerateText(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "ok" || gen.calls != 3 {
		t.Fatalf("expected success after 3 attempts, got %q calls=%d", got, gen.calls)
	}
}

func TestThrottledGeneratorStopsOnPermanentError(t *testing.T) {
	permanent := &APIError{Status: http.StatusBadRequest, Message: "bad prompt"}
	gen := &scriptedGenerator{results: []error{permanent, nil}}
	_, err := newFastThrottle(gen).GenerateText(context.Background(), "", "user")
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected no retry on 4xx, got %d calls", gen.calls)
	}
}

func TestThrottledGeneratorExhaustsAttempts(t *testing.T) {
	transient := &APIError{Status: http.StatusInternalServerError}
	gen := &scriptedGenerator{results: []error{transient, transient, transient}}
	_, err := newFastThrottle(gen).GenerateText(context.Background(), "", "user")
	if !errors.Is(err, transient) {
		t.Fatalf("expected last transient error, got %v", err)
	}
	if gen.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", gen.calls)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&APIError{Status: http.StatusTooManyRequests}, true},
		{&APIError{Status: http.StatusBadGateway}, true},
		{&APIError{Status: http.StatusUnauthorized}, false},
		{context.Canceled, false},
		{errors.New("something else"), false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
