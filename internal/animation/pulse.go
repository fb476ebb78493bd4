package animation

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval approximates a 60 Hz display refresh.
const DefaultInterval = time.Second / 60

// Scheduler dispatches callbacks onto the goroutine that owns mutable state.
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc adapts a function into a Scheduler.
type SchedulerFunc func(func())

func (f SchedulerFunc) Schedule(fn func()) {
	if f == nil || fn == nil {
		return
	}
	f(fn)
}

// Pulse is a periodic clock source. Its ticker runs on its own goroutine
// and every pulse is handed to the Scheduler instead of being run in place.
// At most one pulse is outstanding at a time; pulses that arrive while the
// previous one has not run yet are dropped.
type Pulse struct {
	interval time.Duration
	sched    Scheduler
	fn       func()

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	pending atomic.Bool
}

func NewPulse(interval time.Duration, sched Scheduler, fn func()) *Pulse {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Pulse{interval: interval, sched: sched, fn: fn}
}

// Start launches the ticker. Starting a running pulse is a no-op.
func (p *Pulse) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.loop(p.stop, p.done)
}

// Stop halts the ticker and waits for its goroutine to exit.
func (p *Pulse) Stop() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (p *Pulse) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

func (p *Pulse) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !p.pending.CompareAndSwap(false, true) {
				continue
			}
			p.sched.Schedule(func() {
				p.pending.Store(false)
				p.fn()
			})
		}
	}
}
