// Package realtime holds the canonical byte encodings of the MIDI
// System Real-Time messages this system cares about (Start, Stop,
// Clock) and their inverse parse.
package realtime

import "fmt"

// Start, Stop and Clock are the single-byte MIDI System Real-Time
// messages driving the clock protocol. No other real-time byte
// (Continue 0xFB, Active Sensing 0xFE, Reset 0xFF) is in scope here.
const (
	Start byte = 0xFA
	Stop  byte = 0xFC
	Clock byte = 0xF8
)

// Kind tags a Message's variant.
type Kind int

const (
	KindStart Kind = iota
	KindStop
	KindClock
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "Start"
	case KindStop:
		return "Stop"
	case KindClock:
		return "Clock"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Message is a single real-time byte tagged with the driver's
// microsecond timestamp for the callback that delivered it.
type Message struct {
	Kind   Kind
	Micros int64
}

// FromMIDI parses a single-byte real-time message. ok is false for any
// other byte sequence (including multi-byte data, which this protocol
// never expects).
func FromMIDI(micros int64, data []byte) (msg Message, ok bool) {
	if len(data) != 1 {
		return Message{}, false
	}
	switch data[0] {
	case Start:
		return Message{Kind: KindStart, Micros: micros}, true
	case Stop:
		return Message{Kind: KindStop, Micros: micros}, true
	case Clock:
		return Message{Kind: KindClock, Micros: micros}, true
	default:
		return Message{}, false
	}
}

// ToMIDI renders the message back to its wire byte.
func (m Message) ToMIDI() []byte {
	switch m.Kind {
	case KindStart:
		return []byte{Start}
	case KindStop:
		return []byte{Stop}
	case KindClock:
		return []byte{Clock}
	default:
		panic(fmt.Sprintf("realtime: invalid Kind %d", int(m.Kind)))
	}
}
