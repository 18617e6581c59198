package jobqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSubmitAssignsIncreasingPositions(t *testing.T) {
	q := NewQueue(10)
	a, err := q.Submit("A")
	if err != nil {
		t.Fatalf("submit A: %v", err)
	}
	b, err := q.Submit("B")
	if err != nil {
		t.Fatalf("submit B: %v", err)
	}
	c, err := q.Submit("C")
	if err != nil {
		t.Fatalf("submit C: %v", err)
	}
	if a.Position != 1 || b.Position != 2 || c.Position != 3 {
		t.Fatalf("expected positions 1,2,3; got %d,%d,%d", a.Position, b.Position, c.Position)
	}
}

func TestSubmitFailsWhenFull(t *testing.T) {
	q := NewQueue(1)
	if _, err := q.Submit("A"); err != nil {
		t.Fatalf("submit A: %v", err)
	}
	if _, err := q.Submit("B"); err == nil {
		t.Fatal("expected QueueFull when the channel buffer is exhausted")
	}
}

func TestSubmitFailsWhenClosed(t *testing.T) {
	q := NewQueue(10)
	q.Close()
	if _, err := q.Submit("A"); err == nil {
		t.Fatal("expected QueueClosed after Close")
	}
}

func TestGetUnknownJobNotFound(t *testing.T) {
	q := NewQueue(10)
	if _, ok := q.Get(uuid.New()); ok {
		t.Fatal("expected Get to report not-found for an unknown id")
	}
}

func TestWorkerProcessesInFIFOOrderSerially(t *testing.T) {
	q := NewQueue(10)
	var mu sync.Mutex
	var order []string
	var maxConcurrent, concurrent int

	run := func(ctx context.Context, input any) (any, error) {
		mu.Lock()
		concurrent++
		if concurrent > maxConcurrent {
			maxConcurrent = concurrent
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		order = append(order, input.(string))
		concurrent--
		mu.Unlock()
		return input, nil
	}

	w := NewWorker(q, run)
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	jobs := make([]*Job, 0, 3)
	for _, label := range []string{"A", "B", "C"} {
		job, err := q.Submit(label)
		if err != nil {
			t.Fatalf("submit %s: %v", label, err)
		}
		jobs = append(jobs, job)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		view, _ := q.Get(jobs[2].ID)
		if view.Status == Completed || view.Status == Failed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for job C to complete")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	if maxConcurrent > 1 {
		t.Fatalf("worker ran %d jobs concurrently, expected strict serialization", maxConcurrent)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != "A" || order[1] != "B" || order[2] != "C" {
		t.Fatalf("expected FIFO completion order A,B,C; got %v", order)
	}
}

func TestWorkerConvertsErrorToFailedState(t *testing.T) {
	q := NewQueue(10)
	run := func(ctx context.Context, input any) (any, error) {
		return nil, errors.New("boom")
	}
	w := NewWorker(q, run)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	job, err := q.Submit("A")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		view, _ := q.Get(job.ID)
		if view.Status == Failed {
			if view.Err == nil {
				t.Fatal("expected a stored error on a Failed job")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for job to fail")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWorkerRecoversFromPanic(t *testing.T) {
	q := NewQueue(10)
	run := func(ctx context.Context, input any) (any, error) {
		panic("unexpected")
	}
	w := NewWorker(q, run)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	job, err := q.Submit("A")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		view, _ := q.Get(job.ID)
		if view.Status == Failed {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for panicking job to resolve to Failed")
		}
		time.Sleep(time.Millisecond)
	}
}
