package bus

import (
	"context"
	"sync"

	"github.com/polygon/midimaxe/sdk/clock"
	"github.com/polygon/midimaxe/sdk/contracts"
)

// EventKind tags the payload carried by an Event.
type EventKind int

const (
	Started EventKind = iota
	Stopped
	NewPorts
	SettingsUpdated
	DisplayUpdate
)

// Event is the tagged union published on the event bus. Only the
// fields relevant to Kind are populated.
type Event struct {
	Kind     EventKind
	At       clock.ProgramTime
	Ports    []PortRef
	Settings contracts.Settings
	Snapshot Snapshot
}

// PortSnapshot is one port's entry in a DisplayUpdate.
type PortSnapshot struct {
	Info      PortRef
	SyncState string
	HasSync   bool
}

// Snapshot is the immutable display projection published with every
// DisplayUpdate event (spec.md §4.3 "Display projection").
type Snapshot struct {
	State    string
	Settings contracts.Settings
	Ports    []PortSnapshot
}

type subscriber struct {
	ch   chan Event
	done <-chan struct{}
}

// Events is the one-producer/many-consumer fan-out described in
// spec.md §4.4. Publish never blocks: a full subscriber channel is
// skipped (not stalled), and a subscriber whose context has been
// cancelled is pruned on the next Publish call. This mirrors the
// teacher's capture adapters, which guard a single subscriber with
// `select { case ch <- v: default: Warn }`; Events generalizes that
// shape to many subscribers.
type Events struct {
	mu   sync.Mutex
	subs []subscriber
}

func NewEvents() *Events {
	return &Events{}
}

// Subscribe registers a new listener with the given buffer depth. The
// caller cancels ctx to unsubscribe; the channel is not closed by
// Events itself (only Go runtime GC reclaims it once unreferenced) so
// callers must stop reading once they cancel ctx.
func (e *Events) Subscribe(ctx context.Context, buffer int) <-chan Event {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	e.mu.Lock()
	e.subs = append(e.subs, subscriber{ch: ch, done: ctx.Done()})
	e.mu.Unlock()
	return ch
}

// SubscribeChan registers a caller-owned channel directly, for
// producers that hand Events a channel they already created rather
// than asking Subscribe to allocate one — e.g. the control bus's
// AddListener command, which carries a bare chan Event with no
// associated context. Such a subscriber has no cancellation signal, so
// Publish never prunes it; this matches the command bus's own
// AddListener contract, which likewise offers no disconnect
// notification.
func (e *Events) SubscribeChan(ch chan Event) {
	e.mu.Lock()
	e.subs = append(e.subs, subscriber{ch: ch, done: nil})
	e.mu.Unlock()
}

// Publish sends ev to every live subscriber, non-blocking, and prunes
// any subscriber whose context has been cancelled.
func (e *Events) Publish(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	live := e.subs[:0]
	for _, s := range e.subs {
		select {
		case <-s.done:
			continue // disconnected, drop
		default:
		}
		select {
		case s.ch <- ev:
		default:
			// full but connected: drop this event, do not stall.
		}
		live = append(live, s)
	}
	e.subs = live
}

// SubscriberCount reports the number of currently live subscribers.
func (e *Events) SubscriberCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}
