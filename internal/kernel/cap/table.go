package cap

import (
	"github.com/microframe-os/microframe/internal/kernel/errno"
)

// MaxHandles bounds the per-process handle table so a process cannot grow
// kernel state without limit.
const MaxHandles = 64

// Handle is a process-local index into its handle table. Handles carry no
// authority outside the owning process.
type Handle uint32

// ResourceKind tags what a handle refers to.
type ResourceKind uint8

const (
	// KindEndpoint is an IPC endpoint.
	KindEndpoint ResourceKind = iota + 1
	// KindShm is a shared-memory object.
	KindShm
)

// Resource is one handle-table entry: a kind plus the kernel object ID it
// denotes. The object ID indexes the kernel's arena, never a pointer.
type Resource struct {
	Kind   ResourceKind
	Object uint32
}

// Table maps process-local handles to kernel objects. Slots are reused after
// removal, lowest free slot first, so handle values stay small and
// deterministic.
type Table struct {
	entries []*Resource
}

// Insert stores a resource and returns its handle.
func (t *Table) Insert(r Resource) (Handle, error) {
	for i, slot := range t.entries {
		if slot == nil {
			t.entries[i] = &r
			return Handle(i), nil
		}
	}
	if len(t.entries) >= MaxHandles {
		return 0, errno.NoMemory
	}
	t.entries = append(t.entries, &r)
	return Handle(len(t.entries) - 1), nil
}

// Get resolves a handle, checking the expected kind.
func (t *Table) Get(h Handle, kind ResourceKind) (Resource, error) {
	if int(h) >= len(t.entries) || t.entries[h] == nil {
		return Resource{}, errno.BadHandle
	}
	r := *t.entries[h]
	if r.Kind != kind {
		return Resource{}, errno.BadHandle
	}
	return r, nil
}

// Remove drops a handle and returns what it referred to.
func (t *Table) Remove(h Handle) (Resource, error) {
	if int(h) >= len(t.entries) || t.entries[h] == nil {
		return Resource{}, errno.BadHandle
	}
	r := *t.entries[h]
	t.entries[h] = nil
	return r, nil
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	n := 0
	for _, slot := range t.entries {
		if slot != nil {
			n++
		}
	}
	return n
}

// ForEach visits every live handle, used during process teardown.
func (t *Table) ForEach(fn func(Handle, Resource)) {
	for i, slot := range t.entries {
		if slot != nil {
			fn(Handle(i), *slot)
		}
	}
}
