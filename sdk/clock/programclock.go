// Package clock provides a process-wide monotonic time source.
//
// The epoch is established once, lazily, on first use. Every reading is
// an elapsed Duration since that epoch rather than an opaque time.Time,
// so anchors can be handed between independent generators (MidiSync
// instances, sync-checker clients) without either side needing to know
// how the other measures time.
package clock

import (
	"sync"
	"time"
)

// ProgramTime is an elapsed duration since the process epoch.
type ProgramTime = time.Duration

var (
	epochOnce sync.Once
	epoch     time.Time
)

func initEpoch() {
	epoch = time.Now()
}

// Now returns the elapsed time since the process epoch. Safe for
// concurrent use; lock-free after the first call.
func Now() ProgramTime {
	epochOnce.Do(initEpoch)
	return time.Since(epoch)
}
