package bus

import (
	"sync"
	"testing"
)

// Invariant: Send never blocks and preserves enqueue order per
// producer (spec.md §4.4, §8 invariant 9 covers the event side; this
// exercises the command side's FIFO guarantee).
func TestCommands_FIFOPerProducer(t *testing.T) {
	c := NewCommands()
	for i := 0; i < 5; i++ {
		c.Send(Command{Kind: StartPort, Port: PortRef{Name: string(rune('a' + i))}})
	}
	for i := 0; i < 5; i++ {
		cmd, ok := c.TryRecv()
		if !ok {
			t.Fatalf("expected command %d", i)
		}
		if want := string(rune('a' + i)); cmd.Port.Name != want {
			t.Fatalf("command %d name = %q, want %q", i, cmd.Port.Name, want)
		}
	}
	if _, ok := c.TryRecv(); ok {
		t.Fatal("expected empty queue")
	}
}

// Multiple producers concurrently sending never panics or loses
// commands, i.e. the queue is safe for multi-producer use as §4.4
// requires.
func TestCommands_ConcurrentProducers(t *testing.T) {
	c := NewCommands()
	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				c.Send(Command{Kind: Stop})
			}
		}()
	}
	wg.Wait()

	count := 0
	for {
		if _, ok := c.TryRecv(); !ok {
			break
		}
		count++
	}
	if count != producers*perProducer {
		t.Fatalf("received %d commands, want %d", count, producers*perProducer)
	}
}
