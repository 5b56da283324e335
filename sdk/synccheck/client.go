// Package synccheck implements the sync-checker: a client that listens
// on its own MIDI input (virtual where the backend supports it, a
// named legacy capture device otherwise) and tracks the Start/Clock/
// Stop stream against the spec's client state machine, estimating
// both an overall and a recent-window BPM.
package synccheck

import (
	"fmt"
	"time"

	"github.com/polygon/midimaxe/sdk/buffer"
	"github.com/polygon/midimaxe/sdk/clock"
	"github.com/polygon/midimaxe/sdk/contracts"
	"github.com/polygon/midimaxe/sdk/driver"
	"github.com/polygon/midimaxe/sdk/realtime"
)

// Phase tags a Client's position in the Start/Clock/Stop state
// machine (spec.md §4.5).
type Phase int

const (
	Stopped Phase = iota
	StartedNoClock
	StartedWithClock
)

func (p Phase) String() string {
	switch p {
	case Stopped:
		return "Stopped"
	case StartedNoClock:
		return "Started(no clock)"
	case StartedWithClock:
		return "Started"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// doubleTime pairs the program-local receive instant with the
// driver-reported timestamp of the same message, mirroring the
// original implementation's DoubleTime.
type doubleTime struct {
	programNow time.Duration
	driverTime time.Duration
}

type queuedMessage struct {
	programNow time.Duration
	msg        realtime.Message
}

const queueDepth = 256

// Client is one sync-checker input: its own port, a bounded queue fed
// by the driver's callback goroutine, and the state machine/history
// drained by Tick from the checker's own goroutine. The queue is the
// only cross-goroutine boundary (spec.md §5, "single-producer/
// single-consumer in practice").
type Client struct {
	ID     int
	tpqn   float64
	logger contracts.Logger

	queue  chan queuedMessage
	closer interface{ Close() error }

	state      Phase
	firstClock doubleTime
	lastRcv    *doubleTime
	totalTicks float64
	history    *buffer.Circular[time.Duration]
}

func newClient(id int, historySize int, tpqn float64, logger contracts.Logger) *Client {
	return &Client{
		ID:      id,
		tpqn:    tpqn,
		logger:  logger,
		queue:   make(chan queuedMessage, queueDepth),
		state:   Stopped,
		history: buffer.New[time.Duration](historySize),
	}
}

// NewVirtual creates a Client backed by a driver-created virtual input
// port named "Sync Checker Port <id>".
func NewVirtual(drv driver.Driver, id int, historySize int, tpqn float64, logger contracts.Logger) (*Client, error) {
	c := newClient(id, historySize, tpqn, logger)
	vi, err := drv.CreateVirtualInput(fmt.Sprintf("Sync Checker Port %d", id), c.onMessage)
	if err != nil {
		return nil, fmt.Errorf("synccheck: create virtual input: %w", err)
	}
	c.closer = vi
	return c, nil
}

// NewLegacy creates a Client backed by a degraded-mode named capture
// device, for backends that cannot create virtual ports (spec.md §6).
func NewLegacy(capture contracts.LegacyCapture, id int, historySize int, tpqn float64, logger contracts.Logger) (*Client, error) {
	c := newClient(id, historySize, tpqn, logger)
	if err := capture.StartCapture(c.onMessage); err != nil {
		return nil, fmt.Errorf("synccheck: start legacy capture: %w", err)
	}
	c.closer = legacyCloser{capture}
	return c, nil
}

type legacyCloser struct{ capture contracts.LegacyCapture }

func (l legacyCloser) Close() error { return l.capture.Stop() }

// onMessage is the driver/capture callback. It parses realtime bytes
// and enqueues (program_now, message); a full queue drops the message
// rather than blocking the driver's callback goroutine.
func (c *Client) onMessage(micros int64, data []byte) {
	msg, ok := realtime.FromMIDI(micros, data)
	if !ok {
		return
	}
	select {
	case c.queue <- queuedMessage{programNow: clock.Now(), msg: msg}:
	default:
		c.logger.Warn("sync-checker queue full; dropping message",
			c.logger.Field().Int("id", c.ID))
	}
}

// Tick drains every queued message since the last call, applying the
// state machine in arrival order. Must be called from the checker's
// single worker goroutine.
func (c *Client) Tick() {
	for {
		select {
		case qm := <-c.queue:
			c.apply(qm)
		default:
			return
		}
	}
}

func (c *Client) apply(qm queuedMessage) {
	driverTime := time.Duration(qm.msg.Micros) * time.Microsecond
	dt := doubleTime{programNow: qm.programNow, driverTime: driverTime}

	switch {
	case c.state == Stopped && qm.msg.Kind == realtime.KindStart:
		c.state = StartedNoClock
		c.history.Clear()
		c.totalTicks = 0

	case c.state == StartedNoClock && qm.msg.Kind == realtime.KindClock:
		c.lastRcv = &dt
		c.history.Add(driverTime)
		c.firstClock = dt
		c.state = StartedWithClock

	case c.state == StartedWithClock && qm.msg.Kind == realtime.KindClock:
		c.lastRcv = &dt
		c.history.Add(driverTime)
		c.totalTicks++

	case c.state != Stopped && qm.msg.Kind == realtime.KindStop:
		c.state = Stopped

	case c.state == Stopped && qm.msg.Kind == realtime.KindStop:
		// idempotent: receiving Stop while already stopped is valid.

	default:
		c.logger.Warn("unexpected message for state",
			c.logger.Field().String("state", c.state.String()),
			c.logger.Field().String("message", qm.msg.Kind.String()))
	}
}

// State returns the current phase.
func (c *Client) State() Phase {
	return c.state
}

// BPMOverall estimates tempo from the span between the first and most
// recent Clock since the last Start, divided by the number of ticks in
// between. Zero until at least one full tick interval has elapsed.
func (c *Client) BPMOverall() float64 {
	if c.state != StartedWithClock || c.lastRcv == nil || c.totalTicks <= 0 {
		return 0
	}
	elapsed := c.lastRcv.driverTime - c.firstClock.driverTime
	perTick := elapsed.Seconds() / c.totalTicks
	beatSeconds := perTick * c.tpqn
	if beatSeconds <= 0 {
		return 0
	}
	return 60.0 / beatSeconds
}

// BPMRecent estimates tempo from only the clocks currently in the
// history ring, independent of total_ticks.
func (c *Client) BPMRecent() float64 {
	items := c.history.Items()
	if len(items) < 2 {
		return 0
	}
	tTotal := items[len(items)-1].Seconds() - items[0].Seconds()
	tBeat := tTotal / float64(len(items)-1) * c.tpqn
	if tBeat <= 0 {
		return 0
	}
	return 60.0 / tBeat
}

// HasClock reports whether a Clock byte was received within the last
// second of program time, i.e. whether the upstream master still
// appears live.
func (c *Client) HasClock() bool {
	if c.lastRcv == nil {
		return false
	}
	return clock.Now()-c.lastRcv.programNow < time.Second
}

// TotalQuarters returns the number of quarter-notes observed since the
// last Start, per spec.md §9's `(total_ticks+1)/tpqn` convention.
func (c *Client) TotalQuarters() float64 {
	return (c.totalTicks + 1) / c.tpqn
}

// Close releases the underlying input (virtual port or legacy
// capture device).
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
