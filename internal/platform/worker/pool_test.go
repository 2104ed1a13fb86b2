package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestRunAllPreservesOrder(t *testing.T) {
	jobs := []Job{
		{ID: "a", Execute: func(context.Context) error { return nil }},
		{ID: "b", Execute: func(context.Context) error { return errors.New("boom") }},
		{ID: "c", Execute: func(context.Context) error { return nil }},
	}

	results := RunAll(context.Background(), 2, jobs)

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for i, id := range []string{"a", "b", "c"} {
		if results[i].JobID != id {
			t.Fatalf("results[%d].JobID = %q, want %q", i, results[i].JobID, id)
		}
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Fatal("unexpected errors on succeeding jobs")
	}
	if results[1].Err == nil {
		t.Fatal("failing job reported no error")
	}
}

func TestRunAllFailureDoesNotCancelSiblings(t *testing.T) {
	var ran atomic.Int32
	jobs := make([]Job, 8)
	for i := range jobs {
		fail := i == 0
		jobs[i] = Job{Execute: func(context.Context) error {
			ran.Add(1)
			if fail {
				return errors.New("boom")
			}
			return nil
		}}
	}

	RunAll(context.Background(), 1, jobs)

	if got := ran.Load(); got != 8 {
		t.Fatalf("ran %d jobs, want 8", got)
	}
}

func TestRunAllBoundsParallelism(t *testing.T) {
	var current, peak atomic.Int32
	jobs := make([]Job, 16)
	for i := range jobs {
		jobs[i] = Job{Execute: func(context.Context) error {
			cur := current.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			current.Add(-1)
			return nil
		}}
	}

	RunAll(context.Background(), 3, jobs)

	if peak.Load() > 3 {
		t.Fatalf("peak parallelism = %d, want <= 3", peak.Load())
	}
}

func TestRunAllCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := RunAll(ctx, 2, []Job{
		{ID: "a", Execute: func(context.Context) error { return nil }},
	})

	if results[0].Err == nil {
		t.Fatal("expected context error for job after cancellation")
	}
}
