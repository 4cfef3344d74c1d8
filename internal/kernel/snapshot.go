package kernel

import (
	"github.com/microframe-os/microframe/internal/kernel/ipc"
	"github.com/microframe-os/microframe/internal/kernel/proc"
)

// ProcessInfo is a read-only view of one process for the control plane.
type ProcessInfo struct {
	PID        uint32   `json:"pid"`
	Name       string   `json:"name"`
	Parent     uint32   `json:"parent"`
	State      string   `json:"state"`
	Block      string   `json:"block_reason,omitempty"`
	Caps       []string `json:"capabilities"`
	Pages      int      `json:"mapped_pages"`
	Handles    int      `json:"handles"`
	ExitStatus int32    `json:"exit_status,omitempty"`
}

// MemoryInfo summarizes physical memory for the control plane.
type MemoryInfo struct {
	TotalFrames int `json:"total_frames"`
	FreeFrames  int `json:"free_frames"`
	UsedFrames  int `json:"used_frames"`
}

// IPCInfo summarizes the IPC registry for the control plane.
type IPCInfo struct {
	Endpoints  int             `json:"endpoints"`
	ShmObjects int             `json:"shm_objects"`
	Queues     []EndpointDepth `json:"queues"`
}

// EndpointDepth is one endpoint's queue occupancy.
type EndpointDepth struct {
	ID    uint32 `json:"id"`
	Depth int    `json:"depth"`
}

// Processes lists every process in pid order.
func (k *Kernel) Processes() []ProcessInfo {
	k.mu.Lock()
	defer k.mu.Unlock()
	var out []ProcessInfo
	k.procs.All(func(p *proc.Process) {
		out = append(out, k.processInfo(p))
	})
	return out
}

// Process returns one process view.
func (k *Kernel) Process(pid proc.PID) (ProcessInfo, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	p, err := k.procs.Get(pid)
	if err != nil {
		return ProcessInfo{}, err
	}
	return k.processInfo(p), nil
}

func (k *Kernel) processInfo(p *proc.Process) ProcessInfo {
	info := ProcessInfo{
		PID:        uint32(p.PID),
		Name:       p.Name,
		Parent:     uint32(p.Parent),
		State:      p.State.String(),
		Handles:    p.Handles.Len(),
		ExitStatus: p.ExitStatus,
	}
	if p.State == proc.Blocked {
		info.Block = p.Block.String()
	}
	for _, c := range p.Caps.List() {
		info.Caps = append(info.Caps, c.String())
	}
	if p.Space != nil {
		info.Pages = p.Space.PageCount()
	}
	return info
}

// Memory returns the frame pool summary.
func (k *Kernel) Memory() MemoryInfo {
	k.mu.Lock()
	defer k.mu.Unlock()
	free := k.frames.FreeCount()
	return MemoryInfo{
		TotalFrames: k.totalFrames,
		FreeFrames:  free,
		UsedFrames:  k.totalFrames - free,
	}
}

// IPC returns the registry summary.
func (k *Kernel) IPC() IPCInfo {
	k.mu.Lock()
	defer k.mu.Unlock()
	info := IPCInfo{
		Endpoints:  k.reg.EndpointCount(),
		ShmObjects: k.reg.ShmCount(),
	}
	k.reg.Endpoints(func(ep *ipc.Endpoint) {
		info.Queues = append(info.Queues, EndpointDepth{ID: ep.ID(), Depth: ep.Len()})
	})
	return info
}
