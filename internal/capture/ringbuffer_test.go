package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBufferDropsOldest(t *testing.T) {
	rb := NewRingBuffer(2)
	in := make(chan Frame)
	out := rb.Relay(context.Background(), in)

	// Nobody reads while five frames arrive; only the newest two survive.
	for i := range 5 {
		in <- Frame{Source: string(rune('a' + i))}
	}
	close(in)

	frames := drain(t, out, 5*time.Second)
	require.Len(t, frames, 2)
	assert.Equal(t, "d", frames[0].Source)
	assert.Equal(t, "e", frames[1].Source)
	assert.Equal(t, int64(3), rb.Dropped())
	assert.Equal(t, int64(5), rb.Relayed())
}

func TestRingBufferPassesThroughWhenConsumerKeepsUp(t *testing.T) {
	rb := NewRingBuffer(0)
	assert.Equal(t, DefaultRingCapacity, rb.Capacity())
	in := make(chan Frame)
	out := rb.Relay(context.Background(), in)

	for i := range 10 {
		in <- Frame{Source: string(rune('a' + i))}
		f := <-out
		assert.Equal(t, string(rune('a'+i)), f.Source)
	}
	close(in)
	drain(t, out, time.Second)
	assert.Zero(t, rb.Dropped())
}

func TestRingBufferStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rb := NewRingBuffer(2)
	out := rb.Relay(ctx, make(chan Frame))
	cancel()
	drain(t, out, 5*time.Second)
}
