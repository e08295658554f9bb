package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestIntervalSchedulerRunsImmediatelyAndRepeats(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(10*time.Millisecond, time.UTC)
	var runs atomic.Int32
	got := make(chan time.Time, 10)

	if err := s.Start(context.Background(), func(trigger time.Time) {
		runs.Add(1)
		select {
		case got <- trigger:
		default:
		}
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	first := <-got
	if first.Location() != time.UTC {
		t.Fatalf("trigger not in configured zone: %v", first.Location())
	}
	<-got

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Fatalf("job ran after Stop")
	}
}

func TestIntervalSchedulerStopWithoutStart(t *testing.T) {
	t.Parallel()

	if err := NewIntervalScheduler(time.Hour, nil).Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestIntervalSchedulerStopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewIntervalScheduler(time.Hour, time.UTC)
	ran := make(chan struct{}, 1)
	if err := s.Start(ctx, func(time.Time) { ran <- struct{}{} }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-ran
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop after cancel: %v", err)
	}
}
