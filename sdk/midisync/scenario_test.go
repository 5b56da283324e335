package midisync

import (
	"testing"
	"time"

	"github.com/polygon/midimaxe/sdk/realtime"
)

// S1 (spec.md §8): bpm=120, tpqn=24, started at anchor T0=1.000s. At
// now=1.000s the generator emits Start. Over the next 1.000s it emits
// exactly 48 Clock bytes at T0+k*(1/48)s for k=1..48.
func TestScenario_S1_SingleGeneratorCadence(t *testing.T) {
	conn := &fakeConn{failAt: -1}
	ms := New(conn, 120, tpqnPtr(24))

	t0 := time.Second
	ms.Start(&t0, 0)
	ms.Tick(t0) // Start emitted, plus the anchor-instant Clock

	period := ms.period() // 1/48s at 120bpm, 24 tpqn
	wantPeriod := time.Duration(float64(time.Second) / 48.0)
	if d := period - wantPeriod; d > time.Nanosecond || d < -time.Nanosecond {
		t.Fatalf("period = %v, want ~%v", period, wantPeriod)
	}

	// Drain one period at a time up to T0+1.000s.
	for now := t0 + period; now <= t0+time.Second; now += period {
		ms.Tick(now)
	}

	clocks := countByte(conn.sent, realtime.Clock)
	// 1 clock emitted at the anchor instant itself (per §4.2: "the
	// first clock fires on the anchor, not one period later") plus 48
	// more across (T0, T0+1s].
	if clocks != 49 {
		t.Fatalf("clocks sent = %d, want 49 (1 at anchor + 48 across the next second)", clocks)
	}
	if countByte(conn.sent, realtime.Start) != 1 {
		t.Fatalf("expected exactly one Start byte")
	}
}
