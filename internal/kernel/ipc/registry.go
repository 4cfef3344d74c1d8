package ipc

import (
	"github.com/microframe-os/microframe/internal/kernel/errno"
	"github.com/microframe-os/microframe/internal/kernel/pmm"
)

// MaxEndpoints bounds the kernel endpoint arena.
const MaxEndpoints = 256

// MaxShmObjects bounds the kernel shared-memory arena.
const MaxShmObjects = 128

// Registry is the kernel-owned arena of IPC objects. Slots are reused after
// destruction; object IDs are slot indexes, so a stale ID either hits an
// empty slot or a fresh object the holder legitimately reconnected to.
type Registry struct {
	queueDepth int
	endpoints  []*Endpoint
	shms       []*ShmObject
}

// NewRegistry creates a registry whose endpoints queue at most queueDepth
// messages. A depth below one falls back to the boot default.
func NewRegistry(queueDepth int) *Registry {
	if queueDepth < 1 {
		queueDepth = DefaultQueueDepth
	}
	return &Registry{queueDepth: queueDepth}
}

// CreateEndpoint allocates an endpoint with one reference held by the caller.
func (r *Registry) CreateEndpoint() (*Endpoint, error) {
	slot, err := freeSlot(&r.endpoints, MaxEndpoints)
	if err != nil {
		return nil, err
	}
	ep := &Endpoint{id: uint32(slot), refs: 1, depth: r.queueDepth}
	r.endpoints[slot] = ep
	return ep, nil
}

// Endpoint resolves a kernel-global endpoint ID.
func (r *Registry) Endpoint(id uint32) (*Endpoint, error) {
	if int(id) >= len(r.endpoints) || r.endpoints[id] == nil {
		return nil, errno.NotFound
	}
	return r.endpoints[id], nil
}

// RefEndpoint adds a holder to an endpoint, for connect and handle transfer.
func (r *Registry) RefEndpoint(id uint32) (*Endpoint, error) {
	ep, err := r.Endpoint(id)
	if err != nil {
		return nil, err
	}
	ep.refs++
	return ep, nil
}

// UnrefEndpoint drops a holder. The endpoint is destroyed when the last
// holder lets go; queued messages die with it.
func (r *Registry) UnrefEndpoint(id uint32) {
	ep, err := r.Endpoint(id)
	if err != nil {
		return
	}
	ep.refs--
	if ep.refs <= 0 {
		r.endpoints[id] = nil
	}
}

// CreateShm allocates a shared-memory object backed by frames from alloc,
// with one reference held by the caller. On exhaustion every frame taken so
// far is returned before the error surfaces.
func (r *Registry) CreateShm(size uint64, alloc *pmm.Allocator) (*ShmObject, error) {
	if size == 0 {
		return nil, errno.InvalidArgument
	}
	slot, err := freeSlot(&r.shms, MaxShmObjects)
	if err != nil {
		return nil, err
	}
	pages := int((size + pmm.FrameSize - 1) / pmm.FrameSize)
	frames := make([]pmm.Frame, 0, pages)
	for i := 0; i < pages; i++ {
		frame, err := alloc.Alloc()
		if err != nil {
			for _, f := range frames {
				alloc.Free(f)
			}
			return nil, err
		}
		frames = append(frames, frame)
	}
	obj := &ShmObject{id: uint32(slot), refs: 1, size: size, frames: frames}
	r.shms[slot] = obj
	return obj, nil
}

// Shm resolves a kernel-global shared-memory object ID.
func (r *Registry) Shm(id uint32) (*ShmObject, error) {
	if int(id) >= len(r.shms) || r.shms[id] == nil {
		return nil, errno.NotFound
	}
	return r.shms[id], nil
}

// RefShm adds a holder to a shared-memory object, for shm_share.
func (r *Registry) RefShm(id uint32) (*ShmObject, error) {
	obj, err := r.Shm(id)
	if err != nil {
		return nil, err
	}
	obj.refs++
	return obj, nil
}

// UnrefShm drops a holder and reclaims the object's frames once it is dead.
func (r *Registry) UnrefShm(id uint32, alloc *pmm.Allocator) {
	obj, err := r.Shm(id)
	if err != nil {
		return
	}
	if obj.refs > 0 {
		obj.refs--
	}
	r.reapShm(obj, alloc)
}

// ReleaseShmMapping drops one mapping and reclaims the object if that was the
// last thing keeping it alive.
func (r *Registry) ReleaseShmMapping(id uint32, alloc *pmm.Allocator) {
	obj, err := r.Shm(id)
	if err != nil {
		return
	}
	obj.DropMapping()
	r.reapShm(obj, alloc)
}

func (r *Registry) reapShm(obj *ShmObject, alloc *pmm.Allocator) {
	if !obj.dead() {
		return
	}
	for _, f := range obj.frames {
		alloc.Free(f)
	}
	r.shms[obj.id] = nil
}

// EndpointCount returns the number of live endpoints.
func (r *Registry) EndpointCount() int {
	return countLive(r.endpoints)
}

// ShmCount returns the number of live shared-memory objects.
func (r *Registry) ShmCount() int {
	return countLive(r.shms)
}

// Endpoints visits every live endpoint.
func (r *Registry) Endpoints(fn func(*Endpoint)) {
	for _, ep := range r.endpoints {
		if ep != nil {
			fn(ep)
		}
	}
}

func freeSlot[T any](arena *[]*T, max int) (int, error) {
	for i, slot := range *arena {
		if slot == nil {
			return i, nil
		}
	}
	if len(*arena) >= max {
		return 0, errno.NoMemory
	}
	*arena = append(*arena, nil)
	return len(*arena) - 1, nil
}

func countLive[T any](arena []*T) int {
	n := 0
	for _, slot := range arena {
		if slot != nil {
			n++
		}
	}
	return n
}
