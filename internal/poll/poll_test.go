package poll

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUntilSucceedsWhenCheckPasses(t *testing.T) {
	budget := Budget{Operation: "test op", Interval: time.Millisecond, MaxAttempts: 5}

	calls := 0
	err := Until(context.Background(), budget, func(ctx context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil {
		t.Fatalf("Until failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 checks, got %d", calls)
	}
}

func TestUntilReturnsTimeoutOnExhaustion(t *testing.T) {
	budget := Budget{Operation: "slow op", Interval: time.Millisecond, MaxAttempts: 4}

	calls := 0
	err := Until(context.Background(), budget, func(ctx context.Context) (bool, error) {
		calls++
		return false, nil
	})

	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if timeout.Attempts != 4 {
		t.Errorf("expected 4 attempts recorded, got %d", timeout.Attempts)
	}
	if calls != 4 {
		t.Errorf("expected 4 checks, got %d", calls)
	}
	if timeout.Operation != "slow op" {
		t.Errorf("expected operation name in error, got %q", timeout.Operation)
	}
}

func TestUntilAbortsOnCheckError(t *testing.T) {
	budget := Budget{Operation: "broken op", Interval: time.Millisecond, MaxAttempts: 10}

	boom := errors.New("boom")
	calls := 0
	err := Until(context.Background(), budget, func(ctx context.Context) (bool, error) {
		calls++
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected check error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single check before aborting, got %d", calls)
	}
}

func TestUntilStopsOnContextCancel(t *testing.T) {
	budget := Budget{Operation: "cancelled op", Interval: 50 * time.Millisecond, MaxAttempts: 100}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := Until(ctx, budget, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestUntilRejectsEmptyBudget(t *testing.T) {
	err := Until(context.Background(), Budget{Operation: "no budget"}, func(ctx context.Context) (bool, error) {
		t.Fatal("check should not run")
		return false, nil
	})
	if err == nil {
		t.Fatal("expected error for empty budget")
	}
}
