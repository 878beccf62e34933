package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRun_TicksUntilCanceled(t *testing.T) {
	var ticks atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s := New("test", 5*time.Millisecond, func(ctx context.Context) error {
		if ticks.Add(1) >= 3 {
			cancel()
		}
		return nil
	}, zap.NewNop())

	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	if ticks.Load() < 3 {
		t.Fatalf("ticks = %d, want at least 3", ticks.Load())
	}
}

func TestRun_SurvivesErrorsAndPanics(t *testing.T) {
	var ticks atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s := New("flaky", 5*time.Millisecond, func(ctx context.Context) error {
		switch ticks.Add(1) {
		case 1:
			return errors.New("boom")
		case 2:
			panic("worse boom")
		default:
			cancel()
			return nil
		}
	}, zap.NewNop())

	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("a failing job must not stop the schedule")
	}
}
