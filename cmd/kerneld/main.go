package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/microframe-os/microframe/internal/console"
	"github.com/microframe-os/microframe/internal/infrastructure/config"
	"github.com/microframe-os/microframe/internal/infrastructure/monitoring"
	"github.com/microframe-os/microframe/internal/kernel"
	"github.com/microframe-os/microframe/internal/kernel/boot"
	"github.com/microframe-os/microframe/internal/logging"
	"github.com/microframe-os/microframe/internal/machine"
	"github.com/microframe-os/microframe/internal/machine/sim"
	"github.com/microframe-os/microframe/internal/manifest"
	"github.com/microframe-os/microframe/internal/server"
)

func main() {
	port := flag.String("port", "", "Server port (overrides PORT)")
	manifestPath := flag.String("manifest", "", "Boot manifest path (overrides BOOT_MANIFEST)")
	memoryMiB := flag.Int("memory", 0, "Machine memory in MiB (overrides MACHINE_MEMORY_MIB)")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *manifestPath != "" {
		cfg.Boot.ManifestPath = *manifestPath
	}
	if *memoryMiB > 0 {
		cfg.Machine.MemoryMiB = *memoryMiB
	}

	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}
	defer logger.Sync()

	logger.Info("Booting machine",
		zap.Int("memory_mib", cfg.Machine.MemoryMiB),
		zap.Int("tick_ms", cfg.Machine.TickMillis),
		zap.Bool("manual_clock", cfg.Machine.Manual),
	)

	hub := console.NewHub()
	opts := []sim.Option{sim.WithConsole(hub)}
	var manual *sim.ManualClock
	if cfg.Machine.Manual {
		manual = &sim.ManualClock{}
		opts = append(opts, sim.WithClock(manual))
	}
	mach := sim.New(uint64(cfg.Machine.MemoryMiB)<<20, opts...)

	info, err := buildBootInfo(mach, cfg.Boot.InitramfsPath, logger)
	if err != nil {
		logger.Fatal("Failed to stage initramfs", zap.Error(err))
	}

	metrics := monitoring.NewMetrics()
	k, err := kernel.New(mach, info, kernel.Config{
		QueueDepth: cfg.Kernel.QueueDepth,
		StackPages: cfg.Kernel.StackPages,
	}, logger.Logger, metrics)
	if err != nil {
		logger.Fatal("Kernel boot failed", zap.Error(err))
	}

	if err := loadManifest(k, cfg.Boot.ManifestPath, logger); err != nil {
		logger.Fatal("Boot manifest failed", zap.Error(err))
	}

	srv := server.New(k, hub, metrics, logger, cfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	// The timer loop is the machine's clock interrupt. With a manual clock
	// the control plane's tick endpoint drives scheduling instead.
	tickDone := make(chan struct{})
	if !cfg.Machine.Manual {
		ticker := time.NewTicker(time.Duration(cfg.Machine.TickMillis) * time.Millisecond)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					k.TickNow()
					mem := k.Memory()
					metrics.SetFrames(mem.FreeFrames, mem.UsedFrames)
				case <-tickDone:
					return
				}
			}
		}()
	}

	select {
	case <-sigChan:
		logger.Info("Shutting down gracefully...")
	case err := <-errChan:
		logger.Error("Server error", zap.Error(err))
	}

	close(tickDone)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
}

// buildBootInfo lays out physical memory. An initramfs image, if configured,
// is staged at the top of memory and carved out of the usable map so the
// kernel can index it without the allocator handing its frames out.
func buildBootInfo(mach *sim.Machine, initramfsPath string, logger *logging.Logger) (*boot.BootInfo, error) {
	memEnd := machine.PhysAddr(mach.MemBytes())
	info := &boot.BootInfo{
		MemoryMap: []boot.MemoryRegion{
			{Start: 0, End: memEnd, Kind: boot.Usable},
		},
	}
	if initramfsPath == "" {
		return info, nil
	}

	image, err := readMaybeGzip(initramfsPath)
	if err != nil {
		return nil, err
	}
	if uint64(len(image)) >= uint64(memEnd)/2 {
		return nil, fmt.Errorf("initramfs too large for machine memory: %d bytes", len(image))
	}
	start := (uint64(memEnd) - uint64(len(image))) &^ (sim.PageSize - 1)
	if err := mach.WritePhys(machine.PhysAddr(start), image); err != nil {
		return nil, err
	}
	info.MemoryMap = []boot.MemoryRegion{
		{Start: 0, End: machine.PhysAddr(start), Kind: boot.Usable},
		{Start: machine.PhysAddr(start), End: memEnd, Kind: boot.Reserved},
	}
	info.Initramfs = &boot.InitramfsRange{
		Start: machine.PhysAddr(start),
		End:   machine.PhysAddr(start) + machine.PhysAddr(len(image)),
	}
	logger.Info("Staged initramfs",
		zap.String("path", initramfsPath),
		zap.Int("bytes", len(image)),
	)
	return info, nil
}

// loadManifest registers module images and spawns autostart entries. Missing
// manifest files are not fatal; the control plane can still load modules.
func loadManifest(k *kernel.Kernel, path string, logger *logging.Logger) error {
	m, err := manifest.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("No boot manifest, starting empty", zap.String("path", path))
			return nil
		}
		return err
	}

	base := filepath.Dir(path)
	for _, mod := range m.Modules {
		if mod.Path != "" {
			image, err := readMaybeGzip(resolvePath(base, mod.Path))
			if err != nil {
				return err
			}
			k.RegisterModule(mod.Name, image)
		}
		if !mod.Autostart {
			continue
		}
		caps, err := mod.CapSet()
		if err != nil {
			return err
		}
		pid, err := k.Spawn(mod.Name, caps, 0)
		if err != nil {
			return err
		}
		logger.Info("Autostarted module",
			zap.String("module", mod.Name),
			zap.Uint32("pid", uint32(pid)),
		)
	}
	return nil
}

func resolvePath(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func readMaybeGzip(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	}
	return io.ReadAll(f)
}
