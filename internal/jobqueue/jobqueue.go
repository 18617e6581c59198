// Package jobqueue implements the bounded FIFO proof-job queue and its
// single serial worker: at most one proof computation runs at a time, and
// queue position is reported accurately to callers.
package jobqueue

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"wormcore/internal/wormerr"
)

// Status is the total function of a job's history.
type Status string

const (
	Pending    Status = "pending"
	InProgress Status = "in_progress"
	Completed  Status = "completed"
	Failed     Status = "error"
)

// Job is one submitted proof request and its current state.
type Job struct {
	ID        uuid.UUID
	Status    Status
	Position  int // meaningful only while Status == Pending
	Input     any
	Result    any
	Err       error
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Queue is a bounded FIFO of jobs with capacity PROOF_QUEUE_CAP. queued
// and inProgress are maintained as the spec's two counters: queued
// increments on successful submit and decrements when the worker pops a
// job; inProgress is 0 or 1.
type Queue struct {
	ch         chan *Job
	queued     atomic.Int64
	inProgress atomic.Int64
	closed     atomic.Bool

	mu   sync.Mutex
	jobs map[uuid.UUID]*Job
}

// NewQueue builds a queue with the given capacity (PROOF_QUEUE_CAP,
// default 10).
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch:   make(chan *Job, capacity),
		jobs: make(map[uuid.UUID]*Job),
	}
}

// Submit enqueues input and returns the assigned job and its queue
// position, computed as ahead = max(queued-1,0) + in_progress, position =
// ahead + 1, evaluated at the moment of submit. Returns QueueClosed or
// QueueFull as appropriate.
func (q *Queue) Submit(input any) (*Job, error) {
	if q.closed.Load() {
		return nil, wormerr.New(wormerr.QueueClosed, "proof queue is closed")
	}

	job := &Job{
		ID:        uuid.New(),
		Status:    Pending,
		Input:     input,
		CreatedAt: time.Now(),
	}
	job.UpdatedAt = job.CreatedAt

	select {
	case q.ch <- job:
	default:
		return nil, wormerr.New(wormerr.QueueFull, "proof queue is full")
	}

	newQueued := q.queued.Add(1)
	inProgress := q.inProgress.Load()
	ahead := newQueued - 1
	if ahead < 0 {
		ahead = 0
	}
	job.Position = int(ahead + inProgress + 1)

	q.mu.Lock()
	q.jobs[job.ID] = job
	q.mu.Unlock()

	return job, nil
}

// Get returns a point-in-time snapshot of the job with the given id.
func (q *Queue) Get(id uuid.UUID) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Queued returns the current count of jobs waiting to be popped by the
// worker (not counting the job currently in progress, if any).
func (q *Queue) Queued() int {
	n := q.queued.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// InProgress returns 1 while the worker is actively running a job, else 0.
func (q *Queue) InProgress() int {
	return int(q.inProgress.Load())
}

// Close marks the queue closed; subsequent Submit calls fail with
// QueueClosed. Jobs already queued are still processed by the worker.
func (q *Queue) Close() {
	q.closed.Store(true)
}

// pop blocks until a job is available (Close does not close the channel,
// so an idle pop keeps waiting); it marks the job InProgress and updates
// the queued/inProgress counters to match.
func (q *Queue) pop() (*Job, bool) {
	job, ok := <-q.ch
	if !ok {
		return nil, false
	}
	q.queued.Add(-1)
	q.inProgress.Store(1)
	q.mu.Lock()
	job.Status = InProgress
	job.UpdatedAt = time.Now()
	q.mu.Unlock()
	return job, true
}

func (q *Queue) finish(job *Job, result any, err error) {
	q.mu.Lock()
	if err != nil {
		job.Status = Failed
		job.Err = err
	} else {
		job.Status = Completed
		job.Result = result
	}
	job.UpdatedAt = time.Now()
	q.mu.Unlock()
	q.inProgress.Store(0)
}
