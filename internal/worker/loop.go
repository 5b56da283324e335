// Package worker drives the coordinator and the sync-checker clients
// on their own time-based loops: no busy-waiting, sleep capped so the
// process stays responsive to Stop, drift handled by re-deriving the
// sleep duration from the next scheduled instant on every pass.
//
// Grounded on the corpus's fixed-tick scheduler shape (deadline
// tracking plus a cancellable timer, no polling) and adapted from a
// game-frame cadence to MIDI's sub-millisecond one: the scheduler
// never sleeps past a short cap so a slow driver callback or a burst
// of commands doesn't stall clock emission for long.
package worker

import (
	"time"

	"github.com/polygon/midimaxe/sdk/multisync"
	"github.com/polygon/midimaxe/sdk/synccheck"
)

// maxSleep bounds every sleep so the loop reacts to Stop and newly
// scheduled work promptly instead of oversleeping a stale deadline.
const maxSleep = 10 * time.Millisecond

// Loop drives a *multisync.MultiSync's Tick on its own goroutine.
type Loop struct {
	coordinator *multisync.MultiSync
	now         func() time.Duration
	stop        chan struct{}
	done        chan struct{}
}

// NewLoop constructs a Loop. now supplies the program-time reading
// used to drive Tick; pass clock.Now in production and a fake in
// tests.
func NewLoop(coordinator *multisync.MultiSync, now func() time.Duration) *Loop {
	return &Loop{
		coordinator: coordinator,
		now:         now,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start runs the loop until Stop is called. Blocks the calling
// goroutine; callers typically invoke it via `go loop.Start()`.
func (l *Loop) Start() {
	defer close(l.done)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-l.stop:
			return
		default:
		}

		now := l.now()
		next := l.coordinator.Tick(now)

		sleep := next - now
		if sleep > maxSleep {
			sleep = maxSleep
		}
		if sleep < 0 {
			sleep = 0
		}

		timer.Reset(sleep)
		select {
		case <-timer.C:
		case <-l.stop:
			if !timer.Stop() {
				<-timer.C
			}
			return
		}
	}
}

// Stop halts the loop and blocks until Start has returned, then stops
// every attached generator and closes its connection via Drop (spec.md
// §4.3 "Drop/teardown").
func (l *Loop) Stop() {
	close(l.stop)
	<-l.done
	l.coordinator.Drop()
}

// CheckerLoop drains a set of sync-checker clients on its own
// goroutine, independent of the master coordinator's cadence (spec.md
// §5, "a second goroutine drains sync-checker client queues").
type CheckerLoop struct {
	clients []*synccheck.Client
	period  time.Duration
	stop    chan struct{}
	done    chan struct{}
}

// NewCheckerLoop constructs a CheckerLoop polling every client at the
// given period.
func NewCheckerLoop(clients []*synccheck.Client, period time.Duration) *CheckerLoop {
	return &CheckerLoop{
		clients: clients,
		period:  period,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start runs the loop until Stop is called.
func (c *CheckerLoop) Start() {
	defer close(c.done)

	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			for _, client := range c.clients {
				client.Tick()
			}
		}
	}
}

// Stop halts the loop and blocks until Start has returned.
func (c *CheckerLoop) Stop() {
	close(c.stop)
	<-c.done
}
