package proc

import (
	"sort"

	"github.com/microframe-os/microframe/internal/kernel/errno"
)

// MaxProcesses bounds the process table.
const MaxProcesses = 1024

// Table assigns pids and tracks every live PCB. Pids come from a monotonic
// counter, so a pid is never reused while any record of the old process
// remains observable.
type Table struct {
	nextPID PID
	procs   map[PID]*Process
}

// NewTable creates an empty process table. The first assigned pid is 1;
// pid 0 is reserved as "no process".
func NewTable() *Table {
	return &Table{
		nextPID: 1,
		procs:   make(map[PID]*Process),
	}
}

// Create allocates a pid and registers a new PCB in Ready state.
func (t *Table) Create(name string, parent PID) (*Process, error) {
	if len(t.procs) >= MaxProcesses {
		return nil, errno.NoMemory
	}
	p := &Process{
		PID:    t.nextPID,
		Name:   name,
		Parent: parent,
		State:  Ready,
	}
	t.nextPID++
	t.procs[p.PID] = p
	return p, nil
}

// Get resolves a pid.
func (t *Table) Get(pid PID) (*Process, error) {
	p, ok := t.procs[pid]
	if !ok {
		return nil, errno.NotFound
	}
	return p, nil
}

// Remove deletes a PCB after its resources are reclaimed.
func (t *Table) Remove(pid PID) {
	delete(t.procs, pid)
}

// Len returns the number of registered processes, zombies included.
func (t *Table) Len() int {
	return len(t.procs)
}

// All visits every PCB in ascending pid order, for deterministic iteration.
func (t *Table) All(fn func(*Process)) {
	pids := make([]PID, 0, len(t.procs))
	for pid := range t.procs {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	for _, pid := range pids {
		fn(t.procs[pid])
	}
}

// Zombie returns an exited, unreaped child of parent matching want (0 means
// any child).
func (t *Table) Zombie(parent, want PID) (*Process, bool) {
	var found *Process
	t.All(func(p *Process) {
		if found != nil {
			return
		}
		if p.Parent == parent && p.State == Exited && (want == 0 || p.PID == want) {
			found = p
		}
	})
	return found, found != nil
}

// HasChildren reports whether parent has any children left, live or zombie,
// optionally restricted to one pid.
func (t *Table) HasChildren(parent, want PID) bool {
	any := false
	t.All(func(p *Process) {
		if p.Parent == parent && (want == 0 || p.PID == want) {
			any = true
		}
	})
	return any
}
