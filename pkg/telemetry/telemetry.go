// Package telemetry provides an injected counter/timer registry. Components
// receive a Registry through their constructors instead of reaching for
// process-wide singletons, so instrumentation stays testable in isolation.
package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing count.
type Counter interface {
	Add(delta int64)
	Value() int64
}

// Timer accumulates observed durations.
type Timer interface {
	Observe(d time.Duration)
	Count() int64
	Total() time.Duration
}

// Registry hands out named counters and timers. Repeated calls with the
// same name return the same instrument.
type Registry interface {
	Counter(name string) Counter
	Timer(name string) Timer
}

type registry struct {
	mu       sync.Mutex
	counters map[string]*counter
	timers   map[string]*timer
}

// New creates an in-process Registry backed by atomic counters.
func New() Registry {
	return &registry{
		counters: make(map[string]*counter),
		timers:   make(map[string]*timer),
	}
}

func (r *registry) Counter(name string) Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.counters[name]
	if !ok {
		c = &counter{}
		r.counters[name] = c
	}
	return c
}

func (r *registry) Timer(name string) Timer {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[name]
	if !ok {
		t = &timer{}
		r.timers[name] = t
	}
	return t
}

type counter struct {
	v atomic.Int64
}

func (c *counter) Add(delta int64) { c.v.Add(delta) }
func (c *counter) Value() int64    { return c.v.Load() }

type timer struct {
	count atomic.Int64
	total atomic.Int64
}

func (t *timer) Observe(d time.Duration) {
	t.count.Add(1)
	t.total.Add(int64(d))
}

func (t *timer) Count() int64 { return t.count.Load() }

func (t *timer) Total() time.Duration { return time.Duration(t.total.Load()) }
