package errno

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrnoMessages(t *testing.T) {
	assert.Equal(t, "permission denied", PermissionDenied.Error())
	assert.Equal(t, "would block", WouldBlock.Error())
	assert.Equal(t, "errno(99)", Errno(99).Error())
}

func TestReturnEncoding(t *testing.T) {
	assert.Equal(t, int64(0), Return(nil))
	assert.Equal(t, -int64(PermissionDenied), Return(PermissionDenied))

	// Arbitrary errors must not leak through the ABI.
	assert.Equal(t, -int64(InvalidArgument), Return(errors.New("internal detail")))
}

func TestFromReturnRoundTrip(t *testing.T) {
	assert.NoError(t, FromReturn(0))
	assert.NoError(t, FromReturn(42))
	assert.Equal(t, NoMemory, FromReturn(Return(NoMemory)))
	assert.Equal(t, WouldBlock, FromReturn(Return(WouldBlock)))
}
