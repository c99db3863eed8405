package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"support-triage/internal/llm/contract"
)

func TestExtractJSON(t *testing.T) {
	input := "prefix {\"key\":\"value\"} suffix"
	output := extractJSON(input)
	if output != "{\"key\":\"value\"}" {
		t.Fatalf("unexpected output: %s", output)
	}

	input = "[\"a\",\"b\"]"
	output = extractJSON(input)
	if output != input {
		t.Fatalf("unexpected output for array")
	}

	input = "```json\n{\"category\":\"Complaint\"}\n```"
	if output := extractJSON(input); output != "{\"category\":\"Complaint\"}" {
		t.Fatalf("fences not stripped: %s", output)
	}
}

func TestParseClassification(t *testing.T) {
	result, err := parseClassification("Sure! {\"category\": \" Billing Issue \", \"reasoning\": \"Refund request.\"}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if result.Category != "Billing Issue" || result.Reasoning != "Refund request." {
		t.Fatalf("unexpected result: %+v", result)
	}

	invalid := []string{
		"",
		"I think this is a complaint",
		"{\"category\": \"Complaint\"}",
		"{\"reasoning\": \"no category\"}",
		"{\"category\": 3, \"reasoning\": \"wrong type\"}",
	}
	for _, text := range invalid {
		if _, err := parseClassification(text); !errors.Is(err, contract.ErrInvalidResponse) {
			t.Fatalf("expected invalid response for %q, got %v", text, err)
		}
	}
}

func TestRetrierStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retrier{Attempts: 3, Delay: time.Millisecond}.Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRetrierReturnsLastError(t *testing.T) {
	want := errors.New("down")
	calls := 0
	err := Retrier{Attempts: 2, Delay: time.Millisecond}.Do(context.Background(), func() error {
		calls++
		return want
	})
	if !errors.Is(err, want) || calls != 2 {
		t.Fatalf("expected last error after 2 calls, got %v after %d", err, calls)
	}
}

func TestRetrierHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retrier{Attempts: 5, Delay: time.Second}.Do(ctx, func() error {
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestUsageTracker(t *testing.T) {
	config := &contract.ProviderConfig{CostPer1KInput: 1, CostPer1KOutput: 2}
	var tracker usageTracker
	first := tracker.success(config, contract.UsageRecord{InputTokens: 1000, OutputTokens: 500, Latency: 100 * time.Millisecond})
	tracker.success(config, contract.UsageRecord{InputTokens: 1000, OutputTokens: 500, Latency: 300 * time.Millisecond})
	failed := tracker.failure(featureClassify, time.Now(), errors.New("boom"))

	if !first.Success || first.InputTokens != 1000 {
		t.Fatalf("unexpected success record: %+v", first)
	}

	stats := tracker.snapshot()
	if stats.TotalRequests != 3 || stats.SuccessfulRequests != 2 || stats.FailedRequests != 1 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
	if stats.TotalCost != 4 {
		t.Fatalf("unexpected cost: %v", stats.TotalCost)
	}
	if stats.AverageLatency != 200*time.Millisecond {
		t.Fatalf("unexpected latency: %v", stats.AverageLatency)
	}
	if failed.Success || failed.ErrorMessage != "boom" || failed.Feature != featureClassify {
		t.Fatalf("unexpected failure record: %+v", failed)
	}
}

func TestNewLimiter(t *testing.T) {
	unlimited := newLimiter(0)
	for i := 0; i < 100; i++ {
		if !unlimited.Allow() {
			t.Fatalf("expected unlimited limiter to allow")
		}
	}
	limited := newLimiter(1)
	if !limited.Allow() {
		t.Fatalf("expected first request to pass")
	}
	if limited.Allow() {
		t.Fatalf("expected second request to be throttled")
	}
}
