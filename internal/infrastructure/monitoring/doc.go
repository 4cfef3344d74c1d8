/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the kernel
daemon, tracking HTTP requests, syscalls, faults, scheduling, and physical
memory.

# Features

- HTTP request metrics (latency, throughput)
- Syscall metrics (per-operation counts and error counts)
- Fault and context-switch metrics
- Process lifecycle metrics
- Physical frame gauges
- WebSocket connection metrics

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Wire kernel events into the same collector
	k, err := kernel.New(mach, info, cfg, logger, metrics)

# Metrics Endpoint

Expose metrics from the collector's own registry:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))
*/
package monitoring
