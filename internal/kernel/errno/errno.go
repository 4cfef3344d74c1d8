// Package errno defines the stable error codes returned across the syscall
// boundary. Codes are identical on every architecture; the trap front end
// encodes them as negative return values.
package errno

import "fmt"

// Errno is a kernel error code. The zero value means success and is never a
// valid error.
type Errno int32

const (
	// InvalidArgument reports a malformed or out-of-range syscall argument.
	InvalidArgument Errno = iota + 1
	// NoMemory reports physical frame exhaustion.
	NoMemory
	// PermissionDenied reports a missing capability or a kernel-space access.
	PermissionDenied
	// NotFound reports an unknown pid or kernel object.
	NotFound
	// WouldBlock reports a full or empty queue under a non-blocking call.
	WouldBlock
	// TooBig reports a payload above the fixed message limit.
	TooBig
	// BadAddress reports a user buffer that is unmapped or crosses into
	// kernel space.
	BadAddress
	// NoChild reports a wait with no live or zombie children.
	NoChild
	// BadHandle reports an endpoint or shm handle the caller does not hold.
	BadHandle
	// AlreadyMapped reports a mapping collision.
	AlreadyMapped
	// NotMapped reports an unmap of an absent page.
	NotMapped
	// BadImage reports a malformed module binary.
	BadImage
	// Unimplemented reports an unknown syscall number.
	Unimplemented
)

var names = map[Errno]string{
	InvalidArgument:  "invalid argument",
	NoMemory:         "out of memory",
	PermissionDenied: "permission denied",
	NotFound:         "not found",
	WouldBlock:       "would block",
	TooBig:           "message too big",
	BadAddress:       "bad address",
	NoChild:          "no child processes",
	BadHandle:        "bad handle",
	AlreadyMapped:    "already mapped",
	NotMapped:        "not mapped",
	BadImage:         "bad module image",
	Unimplemented:    "unimplemented syscall",
}

// Error implements the error interface.
func (e Errno) Error() string {
	if name, ok := names[e]; ok {
		return name
	}
	return fmt.Sprintf("errno(%d)", int32(e))
}

// Return encodes an error as a syscall return value: zero for nil, a negative
// code otherwise. Errors that are not an Errno collapse to InvalidArgument so
// internal error text never leaks across the ABI.
func Return(err error) int64 {
	if err == nil {
		return 0
	}
	if e, ok := err.(Errno); ok {
		return -int64(e)
	}
	return -int64(InvalidArgument)
}

// FromReturn decodes a syscall return value back into an error, for the host
// side of the ABI. Non-negative values decode to nil.
func FromReturn(v int64) error {
	if v >= 0 {
		return nil
	}
	return Errno(-v)
}
