// Package multisync implements the coordinator that owns every
// attached port's MidiSync, dispatches commands from the control bus,
// and publishes display snapshots and discovery events.
package multisync

import (
	"fmt"
	"time"

	"github.com/polygon/midimaxe/sdk/bus"
	"github.com/polygon/midimaxe/sdk/contracts"
	"github.com/polygon/midimaxe/sdk/driver"
	"github.com/polygon/midimaxe/sdk/midisync"
)

// portUpdateInterval and displayUpdateInterval are the housekeeping
// cadences from spec.md §4.3's tick loop.
const (
	portUpdateInterval    = time.Second
	displayUpdateInterval = 500 * time.Millisecond
	startLatency          = 100 * time.Millisecond
)

// State tags whether the master clock is running.
type State int

const (
	StateStopped State = iota
	StateStarted
)

func (s State) String() string {
	if s == StateStarted {
		return "Started"
	}
	return "Stopped"
}

// PortInfo identifies one output port. Handles are opaque and
// driver-defined; Name is cosmetic and may change across enumerations.
type PortInfo struct {
	Handle driver.PortHandle
	Name   string
}

// Client is one discovered port and its (possibly absent) generator.
type Client struct {
	Info PortInfo
	Sync *midisync.MidiSync
	conn driver.Connection
}

// MultiSync coordinates every attached port's MidiSync against one
// shared anchor and settings, driven entirely by Tick. It must be
// called from a single goroutine; concurrency enters only through the
// command bus.
type MultiSync struct {
	drv      driver.Driver
	commands *bus.Commands
	events   *bus.Events
	logger   contracts.Logger

	state    State
	settings contracts.Settings
	anchor   *time.Duration

	clients []*Client

	started        bool
	lastPortUpdate time.Duration
	lastUpdate     time.Duration
	changed        bool
}

// New constructs a MultiSync in Stopped state with the given initial
// settings. settings must be valid (spec.md §4.3 assumes a valid
// starting configuration; invalid UpdateSettings commands are rejected
// later without affecting the running configuration).
func New(drv driver.Driver, commands *bus.Commands, events *bus.Events, logger contracts.Logger, settings contracts.Settings) *MultiSync {
	return &MultiSync{
		drv:      drv,
		commands: commands,
		events:   events,
		logger:   logger,
		state:    StateStopped,
		settings: settings,
	}
}

// Tick runs one pass of the coordinator: drive every attached
// generator, drain pending commands, periodically re-enumerate ports,
// and periodically publish a display snapshot. The very first call
// always re-enumerates and publishes, so startup does not wait out a
// full housekeeping interval before the initial port list appears.
// Returns the earliest instant at which the caller should next call
// Tick, for the worker loop's sleep planning.
func (m *MultiSync) Tick(now time.Duration) time.Duration {
	next := now + portUpdateInterval // placeholder upper bound, refined below

	for _, c := range m.clients {
		if c.Sync == nil {
			continue
		}
		if scheduled := c.Sync.Tick(now); scheduled != nil && *scheduled < next {
			next = *scheduled
		}
	}

	m.drainCommands(now)

	if !m.started || now-m.lastPortUpdate > portUpdateInterval {
		m.refreshPorts(now)
		m.lastPortUpdate = now
	}

	if !m.started || m.changed || now-m.lastUpdate > displayUpdateInterval {
		m.publishSnapshot(now)
		m.changed = false
		m.lastUpdate = now
	}

	if housekeeping := m.lastPortUpdate + portUpdateInterval; housekeeping < next {
		next = housekeeping
	}
	if display := m.lastUpdate + displayUpdateInterval; display < next {
		next = display
	}
	m.started = true
	return next
}

func (m *MultiSync) drainCommands(now time.Duration) {
	for {
		cmd, ok := m.commands.TryRecv()
		if !ok {
			return
		}
		m.handleCommand(cmd, now)
	}
}

func (m *MultiSync) handleCommand(cmd bus.Command, now time.Duration) {
	switch cmd.Kind {
	case bus.AddListener:
		if cmd.Listener == nil {
			m.logger.Warn("AddListener command received with a nil listener channel")
			return
		}
		m.events.SubscribeChan(cmd.Listener)

	case bus.UpdateSettings:
		if m.state != StateStopped {
			m.logger.Error("UpdateSettings rejected: not Stopped", m.logger.Field().String("state", m.state.String()))
			return
		}
		if !cmd.Settings.IsValid() {
			m.logger.Error("UpdateSettings rejected: invalid settings",
				m.logger.Field().Float64("bpm", cmd.Settings.BPM),
				m.logger.Field().Float64("quantum", cmd.Settings.Quantum))
			return
		}
		m.settings = cmd.Settings
		for _, c := range m.clients {
			if c.Sync == nil {
				continue
			}
			tpqn := m.settings.TPQN
			if err := c.Sync.Update(m.settings.BPM, &tpqn); err != nil {
				m.logger.Error("failed to propagate settings to generator",
					m.logger.Field().String("port", c.Info.Name), m.logger.Field().Error("error", err))
			}
		}
		m.events.Publish(bus.Event{Kind: bus.SettingsUpdated, Settings: m.settings})
		m.changed = true

	case bus.Start:
		m.handleStart(now)

	case bus.Stop:
		m.handleStop()

	case bus.AddSyncForPort:
		m.handleAddSyncForPort(cmd.Port, now)

	case bus.DelSyncForPort:
		m.handleDelSyncForPort(cmd.Port)

	case bus.StartPort:
		m.handleStartPort(cmd.Port, now)

	case bus.StopPort:
		m.handleStopPort(cmd.Port)

	default:
		m.logger.Warn("unrecognized command kind", m.logger.Field().Int("kind", int(cmd.Kind)))
	}
}

func (m *MultiSync) handleStart(now time.Duration) {
	if m.state == StateStopped {
		anchor := now + startLatency
		m.anchor = &anchor
		m.state = StateStarted
		for _, c := range m.clients {
			if c.Sync != nil && c.Sync.State().Kind == midisync.Stopped {
				c.Sync.Start(&anchor, now)
			}
		}
		m.events.Publish(bus.Event{Kind: bus.Started, At: anchor})
		m.changed = true
		return
	}

	// Already Started: newly unstarted generators join on the next
	// quantum boundary of the existing anchor.
	if m.anchor == nil {
		return
	}
	q := m.settings.NextQuantum(*m.anchor, now)
	for _, c := range m.clients {
		if c.Sync != nil && c.Sync.State().Kind == midisync.Stopped {
			c.Sync.Start(&q, now)
		}
	}
	m.changed = true
}

func (m *MultiSync) handleStop() {
	for _, c := range m.clients {
		if c.Sync != nil {
			c.Sync.Stop()
		}
	}
	m.state = StateStopped
	m.anchor = nil
	m.events.Publish(bus.Event{Kind: bus.Stopped})
	m.changed = true
}

func (m *MultiSync) handleAddSyncForPort(port bus.PortRef, now time.Duration) {
	c := m.findClient(port.Handle)
	if c == nil || c.Sync != nil {
		m.logger.Error("AddSyncForPort rejected: unknown port or already attached",
			m.logger.Field().String("port", port.Name))
		return
	}
	conn, err := m.drv.OpenOutput(port.Handle, "midimaxe", port.Name)
	if err != nil {
		m.logger.Error("failed to open output port",
			m.logger.Field().String("port", port.Name), m.logger.Field().Error("error", err))
		return
	}
	tpqn := m.settings.TPQN
	c.conn = conn
	c.Sync = midisync.New(conn, m.settings.BPM, &tpqn)
	m.changed = true
}

func (m *MultiSync) handleDelSyncForPort(port bus.PortRef) {
	c := m.findClient(port.Handle)
	if c == nil || c.Sync == nil {
		m.logger.Error("DelSyncForPort rejected: not attached",
			m.logger.Field().String("port", port.Name))
		return
	}
	switch c.Sync.State().Kind {
	case midisync.Stopped, midisync.Error:
		_ = c.conn.Close()
		c.Sync = nil
		c.conn = nil
		m.changed = true
	default:
		m.logger.Error("DelSyncForPort rejected: generator not Stopped/Error",
			m.logger.Field().String("port", port.Name))
	}
}

func (m *MultiSync) handleStartPort(port bus.PortRef, now time.Duration) {
	if m.state != StateStarted || m.anchor == nil {
		m.logger.Error("StartPort rejected: master not Started",
			m.logger.Field().String("port", port.Name))
		return
	}
	c := m.findClient(port.Handle)
	if c == nil || c.Sync == nil {
		m.logger.Error("StartPort rejected: not attached",
			m.logger.Field().String("port", port.Name))
		return
	}
	q := m.settings.NextQuantum(*m.anchor, now)
	c.Sync.Start(&q, now)
	m.changed = true
}

func (m *MultiSync) handleStopPort(port bus.PortRef) {
	c := m.findClient(port.Handle)
	if c == nil || c.Sync == nil {
		m.logger.Error("StopPort rejected: not attached",
			m.logger.Field().String("port", port.Name))
		return
	}
	c.Sync.Stop()
	m.changed = true
}

func (m *MultiSync) findClient(handle driver.PortHandle) *Client {
	for _, c := range m.clients {
		if c.Info.Handle == handle {
			return c
		}
	}
	return nil
}

// refreshPorts diffs the driver's current enumeration against the
// known client list (spec.md §4.3 "Port discovery"). New handles are
// appended with no generator attached; handles that disappeared are
// dropped (stopping their generator first, if any).
func (m *MultiSync) refreshPorts(now time.Duration) {
	handles, err := m.drv.EnumerateOutputs()
	if err != nil {
		m.logger.Error("port enumeration failed", m.logger.Field().Error("error", err))
		return
	}

	seen := make(map[driver.PortHandle]bool, len(handles))
	var newPorts []bus.PortRef

	for _, h := range handles {
		seen[h] = true
		name, err := m.drv.NameOf(h)
		if err != nil {
			name = fmt.Sprintf("%v", h)
		}
		if c := m.findClient(h); c != nil {
			c.Info.Name = name // renames accepted silently, state untouched
			continue
		}
		c := &Client{Info: PortInfo{Handle: h, Name: name}}
		m.clients = append(m.clients, c)
		newPorts = append(newPorts, bus.PortRef{Handle: h, Name: name})
		m.changed = true
	}

	var kept []*Client
	for _, c := range m.clients {
		if seen[c.Info.Handle] {
			kept = append(kept, c)
			continue
		}
		if c.Sync != nil {
			c.Sync.Stop()
			if c.conn != nil {
				_ = c.conn.Close()
			}
		}
		m.changed = true
	}
	m.clients = kept

	if len(newPorts) > 0 {
		m.events.Publish(bus.Event{Kind: bus.NewPorts, Ports: newPorts})
	}
}

func (m *MultiSync) publishSnapshot(now time.Duration) {
	snap := bus.Snapshot{
		State:    m.state.String(),
		Settings: m.settings,
	}
	for _, c := range m.clients {
		ps := bus.PortSnapshot{Info: bus.PortRef{Handle: c.Info.Handle, Name: c.Info.Name}}
		if c.Sync != nil {
			ps.HasSync = true
			ps.SyncState = c.Sync.State().String()
		}
		snap.Ports = append(snap.Ports, ps)
	}
	m.events.Publish(bus.Event{Kind: bus.DisplayUpdate, Snapshot: snap})
}

// Drop stops every attached generator and closes its connection. Must
// be called before the coordinator's driver connections are released,
// so no device is left clocking after a crash path (spec.md §4.3
// "Drop/teardown").
func (m *MultiSync) Drop() {
	for _, c := range m.clients {
		if c.Sync == nil {
			continue
		}
		c.Sync.Stop()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}

// Clients returns the current client list. Exposed read-only for
// tests and the display projection; callers must not mutate it.
func (m *MultiSync) Clients() []*Client {
	return m.clients
}

// State reports whether the master clock is currently Started.
func (m *MultiSync) State() State {
	return m.state
}
