package buffer

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property 7 (spec.md §8): adding n > cap items leaves exactly cap items
// in FIFO order, newest at back.
func TestProperty_CircularBufferCapInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("buffer never exceeds capacity and keeps the newest suffix", prop.ForAll(
		func(capacity int, values []int) bool {
			cb := New[int](capacity)
			for _, v := range values {
				cb.Add(v)
			}

			want := len(values)
			if want > capacity {
				want = capacity
			}
			if cb.Len() != want {
				return false
			}

			items := cb.Items()
			if len(items) == 0 {
				return true
			}
			// Last element must always be the most recently added one.
			if items[len(items)-1] != values[len(values)-1] {
				return false
			}
			// Items must be the tail of values, in order.
			tail := values[len(values)-len(items):]
			for i := range items {
				if items[i] != tail[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 16),
		gen.SliceOf(gen.Int()),
	))

	properties.TestingRun(t)
}
