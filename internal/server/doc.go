/*
Package server assembles the kernel daemon's HTTP control plane.

It owns the Gin router, the middleware chain (recovery, request IDs,
metrics, CORS, rate limiting), the route table, and graceful shutdown of
the listener. Kernel state is only ever touched through the handlers in
internal/api/http, which go through the kernel's own locking and
capability checks.
*/
package server
