package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndScrollback(t *testing.T) {
	h := NewHub()
	n, err := h.Write([]byte("hello "))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	h.Write([]byte("world"))
	assert.Equal(t, "hello world", string(h.Scrollback()))
}

func TestScrollbackBounded(t *testing.T) {
	h := NewHubSize(8)
	h.Write([]byte("0123456789"))
	assert.Equal(t, "23456789", string(h.Scrollback()))

	h.Write([]byte("ab"))
	assert.Equal(t, "456789ab", string(h.Scrollback()))
}

func TestSubscribeReceivesWrites(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Write([]byte("ping"))
	assert.Equal(t, "ping", string(<-ch))
}

func TestCancelStopsDelivery(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	assert.Equal(t, 1, h.Subscribers())

	cancel()
	assert.Equal(t, 0, h.Subscribers())
	_, open := <-ch
	assert.False(t, open)

	// Cancel is idempotent.
	cancel()
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe()
	defer cancel()

	// Flood well past the channel buffer; Write must not block.
	for i := 0; i < 1000; i++ {
		h.Write([]byte("x"))
	}
	assert.Equal(t, 1000, len(h.Scrollback()))
}
