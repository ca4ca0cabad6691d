package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"llm-stock-screener/internal/logger"
)

func TestMain(m *testing.M) {
	_ = logger.InitWithConfig(logger.LogConfig{Level: "ERROR", Format: "text"})
	os.Exit(m.Run())
}

func recordingPolicy(slept *[]time.Duration) *RetryPolicy {
	p := DefaultRetryPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return p
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	var slept []time.Duration
	calls := 0
	err := recordingPolicy(&slept).Retry(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
	if len(slept) != 0 {
		t.Errorf("Expected no backoff waits, got %v", slept)
	}
}

func TestRetryBackoffSchedule(t *testing.T) {
	var slept []time.Duration
	calls := 0
	err := recordingPolicy(&slept).Retry(context.Background(), func() error {
		calls++
		return errors.New("persistent failure")
	})
	if err == nil {
		t.Fatal("Expected error after exhaustion")
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("Expected %d waits, got %v", len(want), slept)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("Wait %d: expected %v, got %v", i, want[i], slept[i])
		}
	}
}

func TestRetryWaitIsCapped(t *testing.T) {
	var slept []time.Duration
	p := &RetryPolicy{
		MaxAttempts: 6,
		InitialWait: 1 * time.Second,
		MaxWait:     8 * time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}
	_ = p.Retry(context.Background(), func() error { return errors.New("fail") })

	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 8 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("Expected %d waits, got %v", len(want), slept)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("Wait %d: expected %v, got %v", i, want[i], slept[i])
		}
	}
}

func TestRetryWrapsLastError(t *testing.T) {
	var slept []time.Duration
	sentinel := errors.New("last failure")
	err := recordingPolicy(&slept).Retry(context.Background(), func() error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("Expected wrapped sentinel error, got %v", err)
	}
	if !strings.Contains(err.Error(), "all 3 attempts failed") {
		t.Errorf("Expected exhaustion message, got %v", err)
	}
}

func TestRetryStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := DefaultRetryPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	calls := 0
	err := p.Retry(ctx, func() error {
		calls++
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context cancellation, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected no attempt after cancellation, got %d", calls)
	}
}

func TestDoWithRetryRecoversFromServerErrors(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(WithTimeout(5 * time.Second))
	req := NewRequest(http.MethodGet, server.URL).WithContext(context.Background())

	resp, err := client.DoWithRetry(req, recordingPolicy(&slept))
	if err != nil {
		t.Fatalf("Expected recovery on third attempt, got %v", err)
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := resp.ParseJSON(&parsed); err != nil || !parsed.OK {
		t.Errorf("Unexpected response %s", resp.String())
	}
	if hits != 3 {
		t.Errorf("Expected 3 requests, got %d", hits)
	}
}
