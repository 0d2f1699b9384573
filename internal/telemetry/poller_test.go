package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestPoller_FallbackBeforeSuccess(t *testing.T) {
	p := NewPoller("cpu", time.Second, func(ctx context.Context) (int, error) {
		return 0, errors.New("backend down")
	}, -1, testLogger())

	if err := p.Poll(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}

	v, ok := p.Latest()
	if ok || v != -1 {
		t.Errorf("expected fallback -1, got %d ok=%v", v, ok)
	}
	if p.Err() == nil {
		t.Error("expected last error to be kept")
	}
}

func TestPoller_KeepsLastKnownValue(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller("net", time.Second, func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "first", nil
		}
		return "", errors.New("timeout")
	}, "fallback", testLogger())

	ctx := context.Background()
	if err := p.Poll(ctx); err != nil {
		t.Fatalf("first poll: %v", err)
	}
	_ = p.Poll(ctx)

	v, ok := p.Latest()
	if !ok || v != "first" {
		t.Errorf("expected last known value, got %q ok=%v", v, ok)
	}
	if p.UpdatedAt().IsZero() {
		t.Error("expected update time")
	}
}

func TestPoller_OnUpdate(t *testing.T) {
	p := NewPoller("n", time.Second, func(ctx context.Context) (int, error) {
		return 7, nil
	}, 0, testLogger())

	var got atomic.Int32
	p.OnUpdate(func(v int) { got.Store(int32(v)) })

	_ = p.Poll(context.Background())
	if got.Load() != 7 {
		t.Errorf("expected listener to receive 7, got %d", got.Load())
	}
}

func TestPoller_StartStop(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller("tick", 10*time.Millisecond, func(ctx context.Context) (int32, error) {
		return calls.Add(1), nil
	}, 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	for range 2 {
		if err := p.Stop(); err != nil {
			t.Errorf("stop: %v", err)
		}
	}

	if calls.Load() < 3 {
		t.Errorf("expected at least 3 polls, got %d", calls.Load())
	}

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != after {
		t.Error("poller kept running after stop")
	}
}
