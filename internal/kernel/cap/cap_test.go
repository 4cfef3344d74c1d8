package cap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microframe-os/microframe/internal/kernel/errno"
)

func TestSetStartsEmpty(t *testing.T) {
	s := EmptySet()
	assert.True(t, s.Empty())
	assert.False(t, s.Contains(ConsoleWrite))
}

func TestSetWithWithout(t *testing.T) {
	s := EmptySet().With(ConsoleWrite)
	assert.True(t, s.Contains(ConsoleWrite))
	assert.False(t, s.Contains(Timer))

	s = s.Without(ConsoleWrite)
	assert.False(t, s.Contains(ConsoleWrite))
}

func TestAllSetContainsEverything(t *testing.T) {
	s := AllSet()
	for c := Capability(0); c < numCapabilities; c++ {
		assert.True(t, s.Contains(c), "missing %s", c)
	}
}

func TestParseRoundTrip(t *testing.T) {
	for c := Capability(0); c < numCapabilities; c++ {
		parsed, err := Parse(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := Parse("root")
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	s := NewSet(ProcessSpawn)
	assert.NoError(t, Check(s, ProcessSpawn))
	assert.Equal(t, errno.PermissionDenied, Check(s, ConsoleWrite))
}

func TestTableInsertGetRemove(t *testing.T) {
	var tbl Table

	h1, err := tbl.Insert(Resource{Kind: KindEndpoint, Object: 7})
	require.NoError(t, err)
	h2, err := tbl.Insert(Resource{Kind: KindShm, Object: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())

	r, err := tbl.Get(h1, KindEndpoint)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), r.Object)

	// Kind mismatch is a bad handle, not a different resource.
	_, err = tbl.Get(h1, KindShm)
	assert.Equal(t, errno.BadHandle, err)

	removed, err := tbl.Remove(h1)
	require.NoError(t, err)
	assert.Equal(t, KindEndpoint, removed.Kind)
	_, err = tbl.Get(h1, KindEndpoint)
	assert.Equal(t, errno.BadHandle, err)

	// Lowest free slot is reused.
	h3, err := tbl.Insert(Resource{Kind: KindEndpoint, Object: 9})
	require.NoError(t, err)
	assert.Equal(t, h1, h3)
	_ = h2
}

func TestTableBounded(t *testing.T) {
	var tbl Table
	for i := 0; i < MaxHandles; i++ {
		_, err := tbl.Insert(Resource{Kind: KindEndpoint, Object: uint32(i)})
		require.NoError(t, err)
	}
	_, err := tbl.Insert(Resource{Kind: KindEndpoint, Object: 999})
	assert.Equal(t, errno.NoMemory, err)
}

func TestTableForEachVisitsLive(t *testing.T) {
	var tbl Table
	tbl.Insert(Resource{Kind: KindEndpoint, Object: 1})
	h, _ := tbl.Insert(Resource{Kind: KindShm, Object: 2})
	tbl.Remove(h)

	var seen []Resource
	tbl.ForEach(func(_ Handle, r Resource) { seen = append(seen, r) })
	require.Len(t, seen, 1)
	assert.Equal(t, KindEndpoint, seen[0].Kind)
}
