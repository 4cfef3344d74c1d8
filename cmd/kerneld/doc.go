// Package main is the entry point for the microframe kernel daemon.
//
// The daemon boots a simulated machine, runs the trusted core on it, and
// exposes an HTTP control plane for driving and inspecting the system.
//
// Architecture:
//
//	HTTP client → kerneld control plane → trusted core → simulated machine
//
// The daemon provides:
//   - REST API for process, memory, and IPC introspection
//   - Syscall injection for driving modules on the hosted machine
//   - WebSocket streaming of the machine console
//   - Prometheus metrics fed by kernel events
//   - Rate limiting and request IDs on every route
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Boot with a manifest and 128 MiB of memory
//	./kerneld -manifest boot.yaml -memory 128
//
//	# Deterministic mode: the clock only advances via POST /tick
//	MACHINE_MANUAL_CLOCK=true ./kerneld
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
