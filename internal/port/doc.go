// Package port provides TCP port allocation for sandbox instances.
//
// Each instance needs an agent API port, plus a CDP port in headless mode and
// VNC/noVNC ports when display streaming is requested. Ports are allocated
// together per instance and released together on teardown.
//
// # Allocation Strategy
//
// Ports are allocated first-fit from the configured range. A port counts as
// free only if it is absent from the in-process reserved set AND a loopback
// bind-then-close succeeds, which protects against races with unrelated
// processes the in-memory set cannot see.
//
//	set, err := alloc.ReserveSet(cfg.PortRangeFrom, cfg.PortRangeTo, port.Needs{CDP: true})
//	...
//	alloc.ReleaseSet(set)
//
// Exhausting the range returns a PortExhausted error; the scan never wraps
// around.
package port
