package syscall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microframe-os/microframe/internal/kernel/cap"
)

func TestNumberNamesRoundTrip(t *testing.T) {
	for n := Number(1); n < maxNumber; n++ {
		require.True(t, n.Valid())
		parsed, ok := Parse(n.String())
		require.True(t, ok, "unparseable %s", n)
		assert.Equal(t, n, parsed)
	}
}

func TestInvalidNumbers(t *testing.T) {
	assert.False(t, Number(0).Valid())
	assert.False(t, maxNumber.Valid())
	assert.Equal(t, "invalid", Number(0).String())

	_, ok := Parse("reboot")
	assert.False(t, ok)
}

func TestSurfaceStaysSmall(t *testing.T) {
	assert.LessOrEqual(t, int(maxNumber)-1, 20)
}

func TestRequiredCaps(t *testing.T) {
	tests := map[Number]cap.Capability{
		Spawn:          cap.ProcessSpawn,
		ShmCreate:      cap.ShmCreate,
		EndpointCreate: cap.EndpointCreate,
		Sleep:          cap.Timer,
		TimeNowNs:      cap.Timer,
		DebugLog:       cap.ConsoleWrite,
	}
	for n, want := range tests {
		got, ok := RequiredCap(n)
		require.True(t, ok, "%s should be privileged", n)
		assert.Equal(t, want, got)
	}

	for _, n := range []Number{Exit, Wait, Yield, Send, Recv, EndpointConnect, Mmap, Munmap, ShmMap, ShmShare} {
		_, ok := RequiredCap(n)
		assert.False(t, ok, "%s should be unprivileged", n)
	}
}
