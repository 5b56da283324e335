// Package midisync implements one port's timed emission of
// Start/Stop/Clock MIDI real-time bytes: a small state machine driven
// by external scheduling (Tick), with drift-free cadence and a latched
// error state on send failure.
package midisync

import (
	"fmt"
	"time"

	"github.com/polygon/midimaxe/sdk/driver"
	"github.com/polygon/midimaxe/sdk/realtime"
)

// StateKind tags a MidiSync's current state.
type StateKind int

const (
	Stopped StateKind = iota
	Starting
	Running
	Error
)

func (k StateKind) String() string {
	switch k {
	case Stopped:
		return "Stopped"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
}

// State is a cheap snapshot of a MidiSync's state. Msg is populated
// only when Kind == Error.
type State struct {
	Kind StateKind
	Msg  string
}

func (s State) String() string {
	if s.Kind == Error {
		return fmt.Sprintf("Error(%s)", s.Msg)
	}
	return s.Kind.String()
}

// DefaultTPQN is the MIDI-standard ticks-per-quarter-note.
const DefaultTPQN = 24.0

// MidiSync drives one output connection's Start/Stop/Clock stream.
// Single-threaded-exclusive: every method must be called from the same
// goroutine (the worker loop owns it).
type MidiSync struct {
	conn      driver.Connection
	startTime *time.Duration
	nextClk   *time.Duration
	bpm       float64
	tpqn      float64
	state     State
}

// New constructs a MidiSync in the Stopped state. tpqn defaults to
// DefaultTPQN when nil.
func New(conn driver.Connection, bpm float64, tpqn *float64) *MidiSync {
	t := DefaultTPQN
	if tpqn != nil {
		t = *tpqn
	}
	return &MidiSync{
		conn:  conn,
		bpm:   bpm,
		tpqn:  t,
		state: State{Kind: Stopped},
	}
}

func (m *MidiSync) period() time.Duration {
	return time.Duration(60.0 / (m.bpm * m.tpqn) * float64(time.Second))
}

// Start is valid only in Stopped; any other state is a no-op. anchor
// defaults to now when nil.
func (m *MidiSync) Start(anchor *time.Duration, now time.Duration) {
	if m.state.Kind != Stopped {
		return
	}
	start := now
	if anchor != nil {
		start = *anchor
	}
	m.startTime = &start
	next := start
	m.nextClk = &next
	m.state = State{Kind: Starting}
}

// Stop sends the Stop byte unconditionally in Stopped/Starting/Running
// (drivers may hold residual state) and transitions to Stopped on
// success or Error on send failure. In Error it still attempts a Stop
// send so callers can aggressively silence devices, but the state
// remains Error relative to its latch.
func (m *MidiSync) Stop() {
	switch m.state.Kind {
	case Running, Starting, Stopped:
		err := m.conn.Send(realtime.Message{Kind: realtime.KindStop}.ToMIDI())
		if err != nil {
			m.state = State{Kind: Error, Msg: err.Error()}
		} else {
			m.state = State{Kind: Stopped}
		}
		m.startTime = nil
		m.nextClk = nil
	case Error:
		// Best-effort silence; does not clear the latch.
		_ = m.conn.Send(realtime.Message{Kind: realtime.KindStop}.ToMIDI())
	}
}

// Update changes bpm/tpqn. Allowed only in Stopped; fails otherwise
// with no effect on the current cadence.
func (m *MidiSync) Update(bpm float64, tpqn *float64) error {
	if m.state.Kind != Stopped {
		return fmt.Errorf("midisync: update only valid in Stopped state, was in %s", m.state)
	}
	m.bpm = bpm
	if tpqn != nil {
		m.tpqn = *tpqn
	} else {
		m.tpqn = DefaultTPQN
	}
	return nil
}

// State returns a cheap snapshot of the current state.
func (m *MidiSync) State() State {
	return m.state
}

// Tick must be driven by external scheduling; it never blocks longer
// than one send call. Returns the next scheduled emission instant (for
// the worker's sleep planning), or nil in Stopped/Error.
func (m *MidiSync) Tick(now time.Duration) *time.Duration {
	switch m.state.Kind {
	case Starting:
		return m.tickStarting(now)
	case Running:
		return m.tickRunning(now)
	default:
		return nil
	}
}

func (m *MidiSync) tickStarting(now time.Duration) *time.Duration {
	if *m.startTime > now {
		return m.startTime
	}
	if err := m.conn.Send(realtime.Message{Kind: realtime.KindStart}.ToMIDI()); err != nil {
		m.latch(err)
		return nil
	}
	m.state = State{Kind: Running}
	return m.tickRunning(now)
}

// tickRunning drains every Clock whose scheduled instant has already
// passed, in order, with no coalescing: downstream devices expect
// exact tick counts for PPQN alignment.
func (m *MidiSync) tickRunning(now time.Duration) *time.Duration {
	period := m.period()
	for *m.nextClk <= now {
		if err := m.conn.Send(realtime.Message{Kind: realtime.KindClock}.ToMIDI()); err != nil {
			m.latch(err)
			return nil
		}
		next := *m.nextClk + period
		m.nextClk = &next
	}
	return m.nextClk
}

func (m *MidiSync) latch(err error) {
	m.state = State{Kind: Error, Msg: err.Error()}
}
