package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yourorg/rentwheels/internal/domain"
)

type fakeProcessor struct {
	calls atomic.Int32
	err   error
	done  chan struct{}
}

func (f *fakeProcessor) ProcessOverdue(ctx context.Context) (domain.SweepResult, error) {
	if f.calls.Add(1) == 1 && f.done != nil {
		close(f.done)
	}
	if f.err != nil {
		return domain.SweepResult{}, f.err
	}
	return domain.SweepResult{BookingsReturned: 2, VehiclesFreed: 1}, nil
}

func TestSweeperRunsImmediatelyOnStart(t *testing.T) {
	proc := &fakeProcessor{done: make(chan struct{})}
	sweeper := NewSweeper(proc, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Start(ctx)

	select {
	case <-proc.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a sweep pass right after start")
	}
}

func TestSweeperStopsOnContextCancel(t *testing.T) {
	proc := &fakeProcessor{}
	sweeper := NewSweeper(proc, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(stopped)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("sweeper did not stop after cancel")
	}

	if proc.calls.Load() < 2 {
		t.Fatalf("expected repeated passes before cancel, got %d", proc.calls.Load())
	}
}

func TestSweeperSurvivesFailedPass(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("store down")}
	sweeper := NewSweeper(proc, nil, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// Start must return cleanly even when every pass fails.
	sweeper.Start(ctx)

	if proc.calls.Load() == 0 {
		t.Fatalf("expected at least one attempt")
	}
}

func TestNewSweeperDefaultsInterval(t *testing.T) {
	sweeper := NewSweeper(&fakeProcessor{}, nil, 0)
	if sweeper.interval != time.Hour {
		t.Fatalf("expected one hour default, got %v", sweeper.interval)
	}
}
