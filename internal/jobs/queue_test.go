package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitForStats(t *testing.T, q *Queue, want func(Stats) bool) Stats {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		stats := q.Stats()
		if want(stats) {
			return stats
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("stats never converged, last: %+v", q.Stats())
	return Stats{}
}

func TestQueueProcessesJob(t *testing.T) {
	q := New(4, 1, discardLogger())
	var seen atomic.Value
	q.Register("greet", func(ctx context.Context, job Job) error {
		seen.Store(job.Payload["name"])
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	if ok := q.Enqueue(Job{ID: "1", Kind: "greet", Payload: map[string]string{"name": "ada"}}); !ok {
		t.Fatal("enqueue refused")
	}

	waitForStats(t, q, func(s Stats) bool { return s.Processed == 1 })
	if got, _ := seen.Load().(string); got != "ada" {
		t.Fatalf("unexpected payload: %q", got)
	}
}

func TestTransientErrorsAreRetried(t *testing.T) {
	q := New(4, 3, discardLogger())
	var attempts atomic.Int32
	q.Register("flaky", func(ctx context.Context, job Job) error {
		if attempts.Add(1) < 3 {
			return Transient(errors.New("not yet"))
		}
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.Enqueue(Job{ID: "1", Kind: "flaky"})

	stats := waitForStats(t, q, func(s Stats) bool { return s.Processed == 1 })
	if attempts.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts.Load())
	}
	if stats.DeadLetter != 0 {
		t.Fatalf("retried job must not dead-letter: %+v", stats)
	}
}

func TestPermanentErrorDeadLettersImmediately(t *testing.T) {
	q := New(4, 3, discardLogger())
	var attempts atomic.Int32
	q.Register("broken", func(ctx context.Context, job Job) error {
		attempts.Add(1)
		return errors.New("bad payload")
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.Enqueue(Job{ID: "1", Kind: "broken"})

	waitForStats(t, q, func(s Stats) bool { return s.DeadLetter == 1 })
	if attempts.Load() != 1 {
		t.Fatalf("permanent failure must not retry, got %d attempts", attempts.Load())
	}
}

func TestExhaustedRetriesDeadLetter(t *testing.T) {
	q := New(4, 2, discardLogger())
	var attempts atomic.Int32
	q.Register("flaky", func(ctx context.Context, job Job) error {
		attempts.Add(1)
		return Transient(errors.New("still down"))
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.Enqueue(Job{ID: "1", Kind: "flaky"})

	waitForStats(t, q, func(s Stats) bool { return s.DeadLetter == 1 })
	if attempts.Load() != 2 {
		t.Fatalf("expected retry budget of 2, got %d attempts", attempts.Load())
	}
}

func TestUnknownKindDeadLetters(t *testing.T) {
	q := New(4, 1, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.Enqueue(Job{ID: "1", Kind: "nobody-handles-this"})

	waitForStats(t, q, func(s Stats) bool { return s.DeadLetter == 1 })
}

func TestEnqueueReportsFullQueue(t *testing.T) {
	q := New(1, 1, discardLogger())
	if !q.Enqueue(Job{ID: "1", Kind: "idle"}) {
		t.Fatal("first enqueue must succeed")
	}
	if q.Enqueue(Job{ID: "2", Kind: "idle"}) {
		t.Fatal("second enqueue must report a full queue")
	}
}
