package port

import (
	"fmt"
	"net"
	"sync"

	"github.com/surfbox-dev/surfbox/internal/errors"
	"github.com/surfbox-dev/surfbox/internal/logging"
)

// Set holds the ports reserved for one sandbox instance. Zero means "not
// allocated". A Set is reserved and released as a unit; there is no partial
// release.
type Set struct {
	API   int
	CDP   int
	VNC   int
	NoVNC int
}

// Ports returns the non-zero ports in the set.
func (s Set) Ports() []int {
	var out []int
	for _, p := range []int{s.API, s.CDP, s.VNC, s.NoVNC} {
		if p != 0 {
			out = append(out, p)
		}
	}
	return out
}

// Needs selects which optional ports to reserve alongside the always-present
// API port.
type Needs struct {
	CDP bool
	VNC bool // reserves both the VNC and noVNC ports
}

// Allocator hands out free TCP ports from a configured range. It is
// mutex-guarded: concurrent reservations serialize so two callers cannot race
// onto the same port. The in-memory reserved set only covers our own
// allocations; availability against the rest of the OS is proven by a
// loopback bind.
type Allocator struct {
	mu       sync.Mutex
	reserved map[int]bool

	// probe reports whether a port is bindable. Overridable in tests.
	probe func(port int) bool
}

// NewAllocator creates an empty Allocator.
func NewAllocator() *Allocator {
	return &Allocator{
		reserved: make(map[int]bool),
		probe:    bindProbe,
	}
}

// bindProbe proves a port is free by binding a loopback listener and
// immediately releasing it. The in-memory set cannot see unrelated processes;
// the bind can.
func bindProbe(port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}

// FindAvailable returns the lowest free port in [from, to] and marks it
// reserved. Exhausting the range is a hard error, never a wraparound.
func (a *Allocator) FindAvailable(from, to int) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.findLocked(from, to)
}

func (a *Allocator) findLocked(from, to int) (int, error) {
	for p := from; p <= to; p++ {
		if a.reserved[p] {
			continue
		}
		if !a.probe(p) {
			logging.Debug("port in use by another process", "port", p)
			continue
		}
		a.reserved[p] = true
		return p, nil
	}
	return 0, errors.PortExhausted(from, to, nil)
}

// ReserveSet allocates all ports an instance needs, or nothing. On failure
// any ports already taken for the set are released before returning.
func (a *Allocator) ReserveSet(from, to int, needs Needs) (Set, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var set Set
	var err error

	set.API, err = a.findLocked(from, to)
	if err != nil {
		return Set{}, err
	}

	if needs.CDP {
		if set.CDP, err = a.findLocked(from, to); err != nil {
			a.releaseLocked(set)
			return Set{}, err
		}
	}
	if needs.VNC {
		if set.VNC, err = a.findLocked(from, to); err != nil {
			a.releaseLocked(set)
			return Set{}, err
		}
		if set.NoVNC, err = a.findLocked(from, to); err != nil {
			a.releaseLocked(set)
			return Set{}, err
		}
	}

	logging.Debug("ports reserved", "api", set.API, "cdp", set.CDP, "vnc", set.VNC, "novnc", set.NoVNC)
	return set, nil
}

// Claim marks an already-in-use set as reserved without probing. Used when
// restoring instances whose containers still hold their ports.
func (a *Allocator) Claim(set Set) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range set.Ports() {
		a.reserved[p] = true
	}
}

// ReleaseSet returns every port in the set to the pool. The original bind was
// transient, so release is purely a map removal.
func (a *Allocator) ReleaseSet(set Set) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked(set)
}

func (a *Allocator) releaseLocked(set Set) {
	for _, p := range set.Ports() {
		delete(a.reserved, p)
	}
}

// Release returns a single port to the pool.
func (a *Allocator) Release(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.reserved, port)
}

// Reserved returns a snapshot of currently reserved ports.
func (a *Allocator) Reserved() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]int, 0, len(a.reserved))
	for p := range a.reserved {
		out = append(out, p)
	}
	return out
}
