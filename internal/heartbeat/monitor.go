// Package heartbeat tracks agent responsiveness for running sandboxes. Each
// watched instance gets its own probe loop; a run of consecutive failures
// past the threshold marks the agent lost. Heartbeat loss is about the agent
// process, not the container: container liveness is judged separately by the
// sandbox manager's health checks.
package heartbeat

import (
	"context"
	"sync"
	"time"

	"github.com/surfbox-dev/surfbox/internal/events"
	"github.com/surfbox-dev/surfbox/internal/logging"
)

// Prober performs one heartbeat probe. agent.Client satisfies this.
type Prober interface {
	Heartbeat(ctx context.Context) error
}

// Monitor runs heartbeat loops for watched instances.
type Monitor struct {
	interval  time.Duration
	threshold int
	bus       *events.Bus

	// onLost is invoked once per watch when the failure threshold is hit,
	// after the watch has stopped itself.
	onLost func(instanceID string)

	mu      sync.Mutex
	watches map[string]*watch
}

type watch struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a Monitor. onLost may be nil.
func NewMonitor(interval time.Duration, threshold int, bus *events.Bus, onLost func(instanceID string)) *Monitor {
	return &Monitor{
		interval:  interval,
		threshold: threshold,
		bus:       bus,
		onLost:    onLost,
		watches:   make(map[string]*watch),
	}
}

// Watch starts a heartbeat loop for an instance. Watching an instance that is
// already watched restarts its loop with a fresh failure count.
func (m *Monitor) Watch(instanceID, name string, prober Prober) {
	m.mu.Lock()
	if old, ok := m.watches[instanceID]; ok {
		old.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &watch{name: name, cancel: cancel, done: make(chan struct{})}
	m.watches[instanceID] = w
	m.mu.Unlock()

	go m.loop(ctx, instanceID, w, prober)
}

// Stop ends the watch for one instance.
func (m *Monitor) Stop(instanceID string) {
	m.mu.Lock()
	w, ok := m.watches[instanceID]
	if ok {
		delete(m.watches, instanceID)
	}
	m.mu.Unlock()
	if ok {
		w.cancel()
		<-w.done
	}
}

// StopAll ends every watch.
func (m *Monitor) StopAll() {
	m.mu.Lock()
	ws := m.watches
	m.watches = make(map[string]*watch)
	m.mu.Unlock()
	for _, w := range ws {
		w.cancel()
		<-w.done
	}
}

func (m *Monitor) loop(ctx context.Context, instanceID string, w *watch, prober Prober) {
	defer close(w.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		probeCtx, cancel := context.WithTimeout(ctx, m.interval)
		err := prober.Heartbeat(probeCtx)
		cancel()

		if err == nil {
			// Any success resets the run; only consecutive failures count.
			failures = 0
			continue
		}
		failures++
		logging.Debug("heartbeat failed",
			"instance", instanceID, "consecutive", failures, "threshold", m.threshold, "error", err)

		if failures < m.threshold {
			continue
		}

		logging.Warn("agent heartbeat lost", "instance", instanceID, "name", w.name)
		m.mu.Lock()
		if m.watches[instanceID] == w {
			delete(m.watches, instanceID)
		}
		m.mu.Unlock()

		if m.bus != nil {
			m.bus.Publish(events.Event{
				Type:     events.TypeHeartbeatLost,
				Instance: instanceID,
				Name:     w.name,
				Detail:   err.Error(),
			})
		}
		if m.onLost != nil {
			m.onLost(instanceID)
		}
		return
	}
}
