package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	var calls int
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		return nil
	}, func(error) bool { return true })

	if err != nil || calls != 1 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	transient := errors.New("connection reset")
	var calls int

	err := testPolicy().Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return transient
		}
		return nil
	}, func(error) bool { return true })

	if err != nil {
		t.Errorf("err = %v, want success on third attempt", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnTerminalError(t *testing.T) {
	terminal := errors.New("bad request")
	var calls int

	err := testPolicy().Do(context.Background(), func() error {
		calls++
		return terminal
	}, func(err error) bool { return false })

	if !errors.Is(err, terminal) {
		t.Errorf("err = %v, want terminal error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, terminal errors must not be retried", calls)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	transient := errors.New("timeout")
	var calls int

	err := testPolicy().Do(context.Background(), func() error {
		calls++
		return transient
	}, func(error) bool { return true })

	if !errors.Is(err, transient) {
		t.Errorf("err = %v, want last error after exhaustion", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want MaxAttempts", calls)
	}
}

func TestDoNilClassifierIsTerminal(t *testing.T) {
	var calls int
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		return errors.New("anything")
	}, nil)

	if err == nil || calls != 1 {
		t.Errorf("err = %v, calls = %d; nil classifier must not retry", err, calls)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	err := Policy{MaxAttempts: 3, BaseDelay: time.Minute, MaxDelay: time.Minute}.Do(ctx, func() error {
		calls++
		return errors.New("transient")
	}, func(error) bool { return true })

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 before the backoff wait", calls)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}

	for attempt := 0; attempt < 5; attempt++ {
		d := p.backoff(attempt)
		if d <= 0 {
			t.Errorf("backoff(%d) = %v, want positive", attempt, d)
		}
		if d > p.MaxDelay {
			t.Errorf("backoff(%d) = %v exceeds cap %v", attempt, d, p.MaxDelay)
		}
	}
}
