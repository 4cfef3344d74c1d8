// Package http exposes the kernel control plane: read-only introspection of
// processes, memory, and IPC, plus spawn and syscall injection for driving
// the hosted machine. The kernel enforces capabilities on every injected
// syscall exactly as it would for native user code.
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/microframe-os/microframe/internal/console"
	"github.com/microframe-os/microframe/internal/kernel"
	"github.com/microframe-os/microframe/internal/kernel/cap"
	"github.com/microframe-os/microframe/internal/kernel/proc"
	"github.com/microframe-os/microframe/internal/kernel/syscall"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	kernel *kernel.Kernel
	hub    *console.Hub
}

// NewHandlers creates the handler set.
func NewHandlers(k *kernel.Kernel, hub *console.Hub) *Handlers {
	return &Handlers{kernel: k, hub: hub}
}

// Root returns service information.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "microframe kerneld",
		"status":  "running",
	})
}

// Health reports liveness and a coarse kernel summary.
func (h *Handlers) Health(c *gin.Context) {
	mem := h.kernel.Memory()
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"processes":   len(h.kernel.Processes()),
		"free_frames": mem.FreeFrames,
	})
}

// ListProcesses lists every process.
func (h *Handlers) ListProcesses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"processes": h.kernel.Processes(),
	})
}

// GetProcess returns one process.
func (h *Handlers) GetProcess(c *gin.Context) {
	pid, ok := parsePID(c)
	if !ok {
		return
	}
	info, err := h.kernel.Process(pid)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "no such process",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"process": info,
	})
}

// SpawnProcess creates a process from a library module.
func (h *Handlers) SpawnProcess(c *gin.Context) {
	var req struct {
		Module string   `json:"module" binding:"required"`
		Caps   []string `json:"caps"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request: " + err.Error(),
		})
		return
	}

	caps := cap.EmptySet()
	for _, name := range req.Caps {
		parsed, err := cap.Parse(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "unknown capability: " + name,
			})
			return
		}
		caps = caps.With(parsed)
	}

	pid, err := h.kernel.Spawn(req.Module, caps, 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"pid":     uint32(pid),
	})
}

// KillProcess terminates a process.
func (h *Handlers) KillProcess(c *gin.Context) {
	pid, ok := parsePID(c)
	if !ok {
		return
	}
	if err := h.kernel.Terminate(pid, kernel.FaultExitStatus); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "no such process",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Memory returns the frame pool summary.
func (h *Handlers) Memory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"memory":  h.kernel.Memory(),
	})
}

// IPC returns the endpoint and shared-memory summary.
func (h *Handlers) IPC(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"ipc":     h.kernel.IPC(),
	})
}

// Modules lists the module library.
func (h *Handlers) Modules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"modules": h.kernel.Modules(),
	})
}

// Console returns the retained console scrollback.
func (h *Handlers) Console(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"console": string(h.hub.Scrollback()),
	})
}

// Syscall injects one syscall on behalf of a process, the debug path for
// driving modules that have no CPU of their own on the hosted machine.
func (h *Handlers) Syscall(c *gin.Context) {
	var req struct {
		PID  uint32   `json:"pid" binding:"required"`
		Op   string   `json:"op" binding:"required"`
		Args []uint64 `json:"args"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request: " + err.Error(),
		})
		return
	}
	op, ok := syscall.Parse(req.Op)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "unknown syscall: " + req.Op,
		})
		return
	}
	if len(req.Args) > 6 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "too many arguments",
		})
		return
	}

	var args [6]uint64
	copy(args[:], req.Args)
	res := h.kernel.Syscall(proc.PID(req.PID), op, args)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"ret":     res.Ret,
		"blocked": res.Blocked,
	})
}

// Tick advances the scheduler one step, the manual-clock counterpart of the
// daemon's timer loop.
func (h *Handlers) Tick(c *gin.Context) {
	next := h.kernel.TickNow()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"running": uint32(next),
	})
}

func parsePID(c *gin.Context) (proc.PID, bool) {
	raw, err := strconv.ParseUint(c.Param("pid"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid pid",
		})
		return 0, false
	}
	return proc.PID(raw), true
}
