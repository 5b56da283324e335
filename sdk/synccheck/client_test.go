package synccheck

import (
	"testing"
	"time"

	"github.com/polygon/midimaxe/sdk/contracts"
	"github.com/polygon/midimaxe/sdk/realtime"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, fields ...contracts.Field)                      {}
func (nopLogger) Error(msg string, fields ...contracts.Field)                     {}
func (nopLogger) Debug(msg string, fields ...contracts.Field)                     {}
func (nopLogger) Warn(msg string, fields ...contracts.Field)                      {}
func (nopLogger) Fatal(msg string, fields ...contracts.Field)                     {}
func (nopLogger) Field() contracts.Field                                         { return nopField{} }
func (nopLogger) SetLevel(level contracts.LogLevel)                              {}
func (nopLogger) SetDestination(dest contracts.LogDestination, filePath ...string) {}

type nopField struct{}

func (nopField) Bool(key string, val bool) contracts.Field       { return nopField{} }
func (nopField) Int(key string, val int) contracts.Field         { return nopField{} }
func (nopField) Float64(key string, val float64) contracts.Field { return nopField{} }
func (nopField) String(key string, val string) contracts.Field   { return nopField{} }
func (nopField) Time(key string, val time.Time) contracts.Field  { return nopField{} }
func (nopField) Int64(key string, val int64) contracts.Field     { return nopField{} }
func (nopField) Error(key string, val error) contracts.Field     { return nopField{} }
func (nopField) Uint64(key string, val uint64) contracts.Field   { return nopField{} }
func (nopField) Uint8(key string, val uint8) contracts.Field     { return nopField{} }

func newTestClient() *Client {
	return newClient(1, 100, 24.0, nopLogger{})
}

func feed(c *Client, kind realtime.Kind, micros int64) {
	c.queue <- queuedMessage{programNow: time.Duration(micros) * time.Microsecond, msg: realtime.Message{Kind: kind, Micros: micros}}
	c.Tick()
}

// S4: Start(t0), Clock(t0), Clock(t0+d), Clock(t0+2d), Clock(t0+3d)
// with d = 20.833ms; bpm_overall after the fourth clock is 120.0, and
// bpm_recent with a ring of length 4 is also 120.0.
func TestScenario_S4_BPMEstimates(t *testing.T) {
	c := newTestClient()
	const t0 = int64(1_000_000) // 1s in micros
	const d = int64(20833)      // ~20.833ms in micros

	feed(c, realtime.KindStart, t0)
	feed(c, realtime.KindClock, t0)
	feed(c, realtime.KindClock, t0+d)
	feed(c, realtime.KindClock, t0+2*d)
	feed(c, realtime.KindClock, t0+3*d)

	if c.State() != StartedWithClock {
		t.Fatalf("state = %v, want StartedWithClock", c.State())
	}

	bpmOverall := c.BPMOverall()
	if diff := bpmOverall - 120.0; diff > 0.1 || diff < -0.1 {
		t.Fatalf("BPMOverall = %v, want ~120.0", bpmOverall)
	}

	bpmRecent := c.BPMRecent()
	if diff := bpmRecent - 120.0; diff > 0.1 || diff < -0.1 {
		t.Fatalf("BPMRecent = %v, want ~120.0", bpmRecent)
	}
}

func TestStateMachine_StopIsIdempotent(t *testing.T) {
	c := newTestClient()
	feed(c, realtime.KindStop, 0)
	if c.State() != Stopped {
		t.Fatalf("state = %v, want Stopped", c.State())
	}
	feed(c, realtime.KindStop, 1)
	if c.State() != Stopped {
		t.Fatalf("state after repeated Stop = %v, want Stopped", c.State())
	}
}

func TestStateMachine_StartClearsHistory(t *testing.T) {
	c := newTestClient()
	feed(c, realtime.KindStart, 0)
	feed(c, realtime.KindClock, 0)
	feed(c, realtime.KindClock, 20833)
	if c.history.Len() == 0 {
		t.Fatal("expected history to have entries")
	}

	feed(c, realtime.KindStop, 41666)
	feed(c, realtime.KindStart, 50000)
	if c.history.Len() != 0 {
		t.Fatalf("history.Len() = %d after restart, want 0", c.history.Len())
	}
	if c.totalTicks != 0 {
		t.Fatalf("totalTicks = %v after restart, want 0", c.totalTicks)
	}
}

func TestStateMachine_UnexpectedClockWhileStoppedIsIgnored(t *testing.T) {
	c := newTestClient()
	feed(c, realtime.KindClock, 0)
	if c.State() != Stopped {
		t.Fatalf("state = %v, want Stopped (unchanged)", c.State())
	}
	if c.history.Len() != 0 {
		t.Fatal("expected no history recorded for an out-of-state clock")
	}
}
