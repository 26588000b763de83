// Package queue implements the Admission Queue: a bounded concurrency
// coordinator with an independent waiting cap, used once for blob puts and
// once for blob gets. The queue never performs I/O itself; it schedules
// opaque actions and tracks which client handle owns each running or
// waiting slot so that handle death can release it.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package queue

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ddfs-io/ddfsnode/cmn"
	"github.com/ddfs-io/ddfsnode/cmn/debug"
)

// Result is the outcome of Add.
type Result int

const (
	AcceptedRunning Result = iota
	AcceptedWaiting
	Full
)

func (r Result) String() string {
	switch r {
	case AcceptedRunning:
		return "accepted-running"
	case AcceptedWaiting:
		return "accepted-waiting"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// Action is the opaque unit of work the queue schedules once a slot is
// granted. The queue only ever calls it once, synchronously, at the moment
// the handle transitions into "running".
type Action func()

type waiter struct {
	handle string
	action Action
}

// AdmissionQueue is a bounded FIFO with a concurrency cap. See package doc.
type AdmissionQueue struct {
	mu          sync.Mutex
	capacity    int
	maxWaiting  int
	running     map[string]struct{}
	waiting     []waiter
	runningGauge prometheus.Gauge
	waitingGauge prometheus.Gauge
}

// New constructs an AdmissionQueue with the given running capacity and
// waiting cap. name distinguishes the put-queue from the get-queue in the
// exported gauges.
func New(name string, capacity, maxWaiting int) *AdmissionQueue {
	q := &AdmissionQueue{
		capacity:   capacity,
		maxWaiting: maxWaiting,
		running:    make(map[string]struct{}, capacity),
		waiting:    make([]waiter, 0, maxWaiting),
		runningGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ddfsnode",
			Subsystem: "admission",
			Name:      name + "_running",
			Help:      "number of currently running admitted slots",
		}),
		waitingGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ddfsnode",
			Subsystem: "admission",
			Name:      name + "_waiting",
			Help:      "number of currently queued waiting slots",
		}),
	}
	return q
}

// Collectors exposes the queue's gauges for registration with a Prometheus
// registry.
func (q *AdmissionQueue) Collectors() []prometheus.Collector {
	return []prometheus.Collector{q.runningGauge, q.waitingGauge}
}

// Add admits handle, running action immediately if a running slot is free,
// queueing it if only a waiting slot is free, or refusing admission
// (cmn.ErrFull) if both are exhausted. No state changes on refusal.
func (q *AdmissionQueue) Add(handle string, action Action) (Result, error) {
	q.mu.Lock()

	_, alreadyRunning := q.running[handle]
	debug.Assert(!alreadyRunning, "handle already running: ", handle)

	if len(q.running) < q.capacity {
		q.running[handle] = struct{}{}
		debug.Assert(len(q.running) <= q.capacity, "running exceeds capacity")
		q.updateGaugesLocked()
		q.mu.Unlock()
		action()
		return AcceptedRunning, nil
	}
	if len(q.waiting) < q.maxWaiting {
		q.waiting = append(q.waiting, waiter{handle: handle, action: action})
		debug.Assert(len(q.waiting) <= q.maxWaiting, "waiting exceeds max_waiting")
		q.updateGaugesLocked()
		q.mu.Unlock()
		return AcceptedWaiting, nil
	}
	q.mu.Unlock()
	return Full, cmn.NewError(cmn.KindFull, "add", cmn.ErrFull)
}

// Remove drops handle from whichever set holds it. If handle was running and
// the waiting FIFO is non-empty, the head waiter is dequeued and started,
// moving it into running. Remove is idempotent: an unknown handle is a
// no-op.
func (q *AdmissionQueue) Remove(handle string) {
	q.mu.Lock()

	if _, ok := q.running[handle]; ok {
		delete(q.running, handle)
		var promoted *waiter
		if len(q.waiting) > 0 {
			w := q.waiting[0]
			q.waiting = q.waiting[1:]
			q.running[w.handle] = struct{}{}
			promoted = &w
		}
		debug.Assert(len(q.running) <= q.capacity, "running exceeds capacity after promotion")
		q.updateGaugesLocked()
		q.mu.Unlock()
		if promoted != nil {
			promoted.action()
		}
		return
	}

	for i, w := range q.waiting {
		if w.handle == handle {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			break
		}
	}
	q.updateGaugesLocked()
	q.mu.Unlock()
}

// Running reports the current number of running slots (test/metrics use).
func (q *AdmissionQueue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.running)
}

// Waiting reports the current number of queued waiters (test/metrics use).
func (q *AdmissionQueue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

func (q *AdmissionQueue) updateGaugesLocked() {
	q.runningGauge.Set(float64(len(q.running)))
	q.waitingGauge.Set(float64(len(q.waiting)))
}
