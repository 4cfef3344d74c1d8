// Package sched decides what runs next: a single FIFO run queue with
// round-robin rotation on every timer tick, plus a deadline-ordered sleep
// queue. Ties between equally ready processes always break in queue order,
// so scheduling is deterministic and testable.
package sched

import (
	"github.com/microframe-os/microframe/internal/kernel/proc"
)

type sleeper struct {
	pid    proc.PID
	wakeAt int64
}

// Scheduler is the single-core round-robin scheduler.
type Scheduler struct {
	ready    []proc.PID
	current  proc.PID // 0 when nothing is running
	sleepers []sleeper
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// Current returns the running pid, or 0.
func (s *Scheduler) Current() proc.PID {
	return s.current
}

// PushReady appends a pid to the back of the run queue.
func (s *Scheduler) PushReady(pid proc.PID) {
	s.ready = append(s.ready, pid)
}

// Next rotates the run queue: the current process (if any) goes to the back
// and the front becomes current. Returns 0 when nothing is runnable.
func (s *Scheduler) Next() proc.PID {
	if s.current != 0 {
		s.ready = append(s.ready, s.current)
		s.current = 0
	}
	if len(s.ready) == 0 {
		return 0
	}
	s.current = s.ready[0]
	s.ready = s.ready[1:]
	return s.current
}

// BlockCurrent removes the running process from the running slot without
// requeueing it. Returns the pid that was running.
func (s *Scheduler) BlockCurrent() proc.PID {
	pid := s.current
	s.current = 0
	return pid
}

// Drop removes a pid from the scheduler entirely: run queue, running slot,
// and sleep queue. Used on exit and on fault termination.
func (s *Scheduler) Drop(pid proc.PID) {
	if s.current == pid {
		s.current = 0
	}
	out := s.ready[:0]
	for _, p := range s.ready {
		if p != pid {
			out = append(out, p)
		}
	}
	s.ready = out

	keep := s.sleepers[:0]
	for _, sl := range s.sleepers {
		if sl.pid != pid {
			keep = append(keep, sl)
		}
	}
	s.sleepers = keep
}

// Sleep records a wake deadline for pid. Insertion keeps the queue sorted by
// deadline, FIFO among equal deadlines.
func (s *Scheduler) Sleep(pid proc.PID, wakeAt int64) {
	entry := sleeper{pid: pid, wakeAt: wakeAt}
	i := len(s.sleepers)
	for i > 0 && s.sleepers[i-1].wakeAt > wakeAt {
		i--
	}
	s.sleepers = append(s.sleepers, sleeper{})
	copy(s.sleepers[i+1:], s.sleepers[i:])
	s.sleepers[i] = entry
}

// WakeDue pops every sleeper whose deadline is at or before now, in deadline
// order.
func (s *Scheduler) WakeDue(now int64) []proc.PID {
	var due []proc.PID
	for len(s.sleepers) > 0 && s.sleepers[0].wakeAt <= now {
		due = append(due, s.sleepers[0].pid)
		s.sleepers = s.sleepers[1:]
	}
	return due
}

// ReadyCount returns the run queue length, excluding the running process.
func (s *Scheduler) ReadyCount() int {
	return len(s.ready)
}

// SleeperCount returns the number of pending sleep deadlines.
func (s *Scheduler) SleeperCount() int {
	return len(s.sleepers)
}
