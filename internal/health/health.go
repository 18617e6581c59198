// Package health reports the proof server's liveness for an operator's
// /healthz probe, grounded on the teacher's cmd/auctiond/health.go
// component-registry shape but trimmed to the handful of signals a single
// proof-queue process actually has: whether the worker goroutine is still
// running and how deep the queue currently is.
package health

import (
	"sync"
	"time"
)

// Status is the coarse health verdict a probe reports.
type Status string

const (
	Healthy   Status = "healthy"
	Degraded  Status = "degraded"
	Unhealthy Status = "unhealthy"
)

// QueueStater is the minimal view of internal/jobqueue.Queue the health
// checker needs; satisfied by *jobqueue.Queue without an import cycle.
type QueueStater interface {
	Queued() int
	InProgress() int
}

// Checker tracks process start time and the worker's last-seen heartbeat,
// and renders both alongside live queue depth into a Report.
type Checker struct {
	mu        sync.Mutex
	startedAt time.Time
	heartbeat time.Time
	queue     QueueStater
}

// New builds a Checker bound to queue, started now.
func New(queue QueueStater) *Checker {
	now := time.Now()
	return &Checker{startedAt: now, heartbeat: now, queue: queue}
}

// Beat records that the worker goroutine made forward progress; call it
// once per job processed.
func (c *Checker) Beat() {
	c.mu.Lock()
	c.heartbeat = time.Now()
	c.mu.Unlock()
}

// StaleAfter is how long without a heartbeat the worker is considered
// stuck, assuming at least one job has ever been in flight. A fresh
// process with an empty queue is never stale regardless of age.
const StaleAfter = 10 * time.Minute

// Report is the JSON body /healthz returns.
type Report struct {
	Status        Status    `json:"status"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	QueueDepth    int       `json:"queue_depth"`
	InProgress    int       `json:"in_progress"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// Snapshot renders the current Report.
func (c *Checker) Snapshot() Report {
	c.mu.Lock()
	started, beat := c.startedAt, c.heartbeat
	c.mu.Unlock()

	depth := c.queue.Queued()
	inProgress := c.queue.InProgress()

	status := Healthy
	if inProgress > 0 && time.Since(beat) > StaleAfter {
		status = Unhealthy
	} else if depth > 0 && inProgress == 0 && time.Since(beat) > StaleAfter {
		status = Degraded
	}

	return Report{
		Status:        status,
		UptimeSeconds: time.Since(started).Seconds(),
		QueueDepth:    depth,
		InProgress:    inProgress,
		LastHeartbeat: beat,
	}
}
