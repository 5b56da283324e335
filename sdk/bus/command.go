package bus

import (
	"sync"

	"github.com/polygon/midimaxe/sdk/contracts"
	"github.com/polygon/midimaxe/sdk/driver"
)

// CommandKind tags the payload carried by a Command.
type CommandKind int

const (
	AddListener CommandKind = iota
	UpdateSettings
	Start
	Stop
	AddSyncForPort
	DelSyncForPort
	StartPort
	StopPort
)

// Command is the tagged union of everything a producer can enqueue on
// the control bus. Only the fields relevant to Kind are populated.
type Command struct {
	Kind     CommandKind
	Settings contracts.Settings
	Port     PortRef
	Listener chan Event
}

// PortRef identifies a port a command refers to, paired with a
// display name for logging since handles are opaque.
type PortRef struct {
	Handle driver.PortHandle
	Name   string
}

// Commands is the multi-producer/single-consumer queue described in
// spec.md §4.4: unbounded, so Send never blocks a producer.
//
// A buffered channel was considered and rejected: its capacity is
// fixed, and the spec requires producers to never block regardless of
// how far behind the coordinator falls. No suitable unbounded-queue
// library surfaced in the retrieval pack, so this is built directly on
// sync.Mutex plus a growable slice.
type Commands struct {
	mu     sync.Mutex
	items  []Command
	notify chan struct{}
}

func NewCommands() *Commands {
	return &Commands{
		notify: make(chan struct{}, 1),
	}
}

// Send enqueues a command. Never blocks.
func (c *Commands) Send(cmd Command) {
	c.mu.Lock()
	c.items = append(c.items, cmd)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// TryRecv dequeues the oldest pending command, if any.
func (c *Commands) TryRecv() (Command, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return Command{}, false
	}
	cmd := c.items[0]
	c.items = c.items[1:]
	return cmd, true
}

// Wait returns a channel that receives a signal after Send enqueues a
// command, for callers that want to park on it instead of polling;
// signals coalesce while unread and the channel is never closed. The
// worker loop does not use this (it always has a sleep deadline of its
// own) but it's exposed for external producers/tests that want blocking
// semantics.
func (c *Commands) Wait() <-chan struct{} {
	return c.notify
}

// Len reports the number of commands currently queued.
func (c *Commands) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
