package sandbox

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/surfbox-dev/surfbox/internal/agent"
	"github.com/surfbox-dev/surfbox/internal/config"
	"github.com/surfbox-dev/surfbox/internal/errors"
	"github.com/surfbox-dev/surfbox/internal/events"
	"github.com/surfbox-dev/surfbox/internal/heartbeat"
	"github.com/surfbox-dev/surfbox/internal/logging"
	"github.com/surfbox-dev/surfbox/internal/platform"
	"github.com/surfbox-dev/surfbox/internal/port"
	"github.com/surfbox-dev/surfbox/internal/runtime"
	"github.com/surfbox-dev/surfbox/internal/system"
)

// agentClient is the slice of the agent API the manager drives.
type agentClient interface {
	WaitHealthy(ctx context.Context, attempts int, interval time.Duration) error
	Heartbeat(ctx context.Context) error
}

// CreateOptions configures a new instance.
type CreateOptions struct {
	Name string

	// Mode defaults to headless.
	Mode BrowserMode

	// CDPEndpoint is the container-reachable websocket endpoint. Required
	// for the host-bridged and external modes, forbidden for headless.
	CDPEndpoint string

	// WithVNC additionally reserves and publishes the VNC and noVNC ports.
	WithVNC bool
}

// CleanupOutcome reports one step of a cleanup pass. Steps are independent:
// one failing never aborts the others.
type CleanupOutcome struct {
	Step   string
	Target string
	Err    error
}

// Manager owns all sandbox instances in this process.
type Manager struct {
	cfg    *config.Config
	engine runtime.ContainerEngine
	ports  *port.Allocator
	bus    *events.Bus
	plat   platform.Platform
	fs     system.FileSystem

	heartbeats *heartbeat.Monitor

	// newAgent builds the API client for an instance. Overridable in tests.
	newAgent func(apiPort int) agentClient

	// store, when attached, persists records across processes.
	store *Store

	mu        sync.Mutex
	instances map[string]*Instance // by id
	byName    map[string]string    // name -> id

	healthStop chan struct{}
	healthDone chan struct{}
}

// NewManager creates a Manager. The heartbeat monitor it owns starts watching
// each instance after a successful create.
func NewManager(cfg *config.Config, engine runtime.ContainerEngine, ports *port.Allocator,
	bus *events.Bus, plat platform.Platform, fs system.FileSystem) *Manager {

	m := &Manager{
		cfg:       cfg,
		engine:    engine,
		ports:     ports,
		bus:       bus,
		plat:      plat,
		fs:        fs,
		newAgent:  func(apiPort int) agentClient { return agent.NewClient(apiPort) },
		instances: make(map[string]*Instance),
		byName:    make(map[string]string),
	}
	m.heartbeats = heartbeat.NewMonitor(
		cfg.HeartbeatInterval.Std(), cfg.HeartbeatThreshold, bus, m.onHeartbeatLost)
	return m
}

// AttachStore makes the manager persist instance records through store.
func (m *Manager) AttachStore(store *Store) {
	m.store = store
}

// Restore loads persisted instance records and reconciles them with the
// engine: records whose containers still run come back as tracked instances
// with their ports claimed; stale records are dropped.
func (m *Manager) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	records, err := m.store.List()
	if err != nil {
		return fmt.Errorf("reading instance records: %w", err)
	}

	for _, rec := range records {
		inspectCtx, cancel := context.WithTimeout(ctx, m.cfg.InspectTimeout.Std())
		running, err := m.engine.IsRunning(inspectCtx, rec.ContainerName)
		cancel()
		if err != nil {
			logging.Warn("could not reconcile instance record", "instance", rec.Name, "error", err)
			continue
		}
		if !running {
			logging.Debug("dropping stale instance record", "instance", rec.Name)
			_ = m.store.Delete(rec.Name)
			continue
		}

		rec.Status = StatusRunning
		m.ports.Claim(rec.Ports)
		m.register(rec)
		logging.Debug("restored instance", "instance", rec.Name, "container", rec.ContainerName)
	}
	return nil
}

// WatchHeartbeats starts heartbeat supervision for every running instance.
// Create does this for new instances; restored ones need it explicitly.
func (m *Manager) WatchHeartbeats() {
	for _, inst := range m.List() {
		if inst.Status == StatusRunning {
			m.heartbeats.Watch(inst.ID, inst.Name, m.newAgent(inst.Ports.API))
		}
	}
}

// Create launches a sandbox. Create is idempotent on the instance name:
// whatever already holds the name, running or stopped, is force-removed
// first and a fresh instance takes its place.
//
// Launch is two-phase: the engine accepting the run call proves nothing about
// the entrypoint, so after a settle delay the container is inspected and a
// no-longer-running container is diagnosed as a launch crash, with the log
// tail attached. Every failure path rolls the instance back completely:
// container removed, ports released, record dropped.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (*Instance, error) {
	if err := config.ValidateInstanceName(opts.Name); err != nil {
		return nil, err
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeHeadless
	}
	switch mode {
	case ModeHeadless:
		if opts.CDPEndpoint != "" {
			return nil, errors.ValidationError("headless mode does not take a CDP endpoint")
		}
	case ModeHostBridged, ModeExternal:
		if opts.CDPEndpoint == "" {
			return nil, errors.ValidationError(fmt.Sprintf("%s mode requires a CDP endpoint", mode))
		}
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown browser mode %q", mode))
	}

	if err := m.claimName(ctx, opts.Name); err != nil {
		return nil, err
	}

	set, err := m.ports.ReserveSet(m.cfg.PortRangeFrom, m.cfg.PortRangeTo, port.Needs{
		CDP: mode == ModeHeadless,
		VNC: opts.WithVNC,
	})
	if err != nil {
		m.releaseName(opts.Name)
		return nil, err
	}

	inst := &Instance{
		ID:            uuid.NewString(),
		Name:          opts.Name,
		ContainerName: config.ContainerName(opts.Name),
		Image:         m.cfg.Image,
		Ports:         set,
		Mode:          mode,
		CDPEndpoint:   opts.CDPEndpoint,
		Status:        StatusCreating,
		CreatedAt:     time.Now(),
	}
	m.register(inst)
	m.publish(events.TypeCreated, inst, "")

	if err := m.launch(ctx, inst); err != nil {
		m.rollback(ctx, inst, err)
		return nil, err
	}

	m.setStatus(inst.ID, StatusRunning, "")
	m.publish(events.TypeStarted, inst, "")
	logging.Info("sandbox running",
		"instance", inst.Name, "container", inst.ContainerName, "api_port", set.API, "mode", mode)

	client := m.newAgent(set.API)
	if err := client.WaitHealthy(ctx, m.cfg.AgentReadyAttempts, m.cfg.AgentReadyInterval.Std()); err != nil {
		// The container survived launch; an unready agent degrades the
		// instance instead of failing the create.
		logging.Warn("agent not ready", "instance", inst.Name, "error", err)
		m.setNote(inst.ID, fmt.Sprintf("agent not ready: %v", err))
	}
	m.heartbeats.Watch(inst.ID, inst.Name, client)
	m.persist(inst.ID)

	return m.Get(inst.ID)
}

// launch runs the container and verifies it survived its settle window.
func (m *Manager) launch(ctx context.Context, inst *Instance) error {
	m.setStatus(inst.ID, StatusStarting, "")

	runArgs := buildRunArgs(m.cfg, m.plat, m.fs, inst)

	runCtx, cancel := context.WithTimeout(ctx, m.cfg.RunTimeout.Std())
	defer cancel()

	// A stale container from a killed earlier process may still hold the
	// deterministic name. Removing a missing container is a no-op.
	if err := m.engine.Remove(runCtx, inst.ContainerName, true); err != nil {
		logging.Debug("pre-launch name sweep failed", "container", inst.ContainerName, "error", err)
	}

	containerID, err := m.engine.StartContainer(runCtx, runArgs)
	if err != nil {
		return fmt.Errorf("launching %s: %w", inst.ContainerName, err)
	}
	m.setContainerID(inst.ID, containerID)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.cfg.SettleDelay.Std()):
	}

	inspectCtx, cancel := context.WithTimeout(ctx, m.cfg.InspectTimeout.Std())
	defer cancel()
	running, err := m.engine.IsRunning(inspectCtx, inst.ContainerName)
	if err != nil {
		return fmt.Errorf("verifying %s after launch: %w", inst.ContainerName, err)
	}
	if !running {
		tail, logErr := m.engine.Logs(ctx, inst.ContainerName, m.cfg.LogTail)
		if logErr != nil {
			logging.Debug("could not fetch crash logs", "container", inst.ContainerName, "error", logErr)
			tail = ""
		}
		return errors.LaunchCrashed(inst.ContainerName, tail)
	}
	return nil
}

// rollback undoes a failed create: remove whatever container exists, release
// the ports, drop the record.
func (m *Manager) rollback(ctx context.Context, inst *Instance, cause error) {
	m.setStatus(inst.ID, StatusError, cause.Error())
	m.publish(events.TypeErrored, inst, cause.Error())

	if err := m.engine.Remove(ctx, inst.ContainerName, true); err != nil {
		logging.Warn("rollback could not remove container", "container", inst.ContainerName, "error", err)
	}
	m.ports.ReleaseSet(inst.Ports)
	m.unregister(inst.ID)
	logging.Debug("rolled back failed launch", "instance", inst.Name, "cause", cause)
}

// Get returns a copy of an instance by id or name.
func (m *Manager) Get(ref string) (*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.instances[ref]; ok {
		return snapshot(inst), nil
	}
	if id, ok := m.byName[ref]; ok {
		if inst, ok := m.instances[id]; ok {
			return snapshot(inst), nil
		}
	}
	return nil, errors.InstanceNotFound(ref)
}

// List returns copies of all instances, ordered by creation time.
func (m *Manager) List() []*Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, snapshot(inst))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Destroy tears an instance down: graceful stop, one forced remove, ports
// released, record dropped. Destroying an unknown instance is a no-op.
func (m *Manager) Destroy(ctx context.Context, ref string) error {
	inst, err := m.Get(ref)
	if err != nil {
		return nil
	}

	m.setStatus(inst.ID, StatusStopping, "")
	m.heartbeats.Stop(inst.ID)

	if err := m.engine.Stop(ctx, inst.ContainerName, m.cfg.StopTimeoutSeconds); err != nil {
		// The forced remove below covers a failed graceful stop.
		logging.Warn("graceful stop failed", "container", inst.ContainerName, "error", err)
	}
	if err := m.engine.Remove(ctx, inst.ContainerName, true); err != nil {
		// Registry and port state reconcile regardless; a leftover container
		// is the orphan sweep's problem.
		logging.Warn("could not remove container", "container", inst.ContainerName, "error", err)
	}

	m.ports.ReleaseSet(inst.Ports)
	m.unregister(inst.ID)
	m.publish(events.TypeStopped, inst, "")
	logging.Info("sandbox destroyed", "instance", inst.Name)
	return nil
}

// Shutdown destroys every instance concurrently and stops supervision.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.StopHealthLoop()

	instances := m.List()
	var wg sync.WaitGroup
	errCh := make(chan error, len(instances))
	for _, inst := range instances {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := m.Destroy(ctx, id); err != nil {
				errCh <- err
			}
		}(inst.ID)
	}
	wg.Wait()
	close(errCh)
	m.heartbeats.StopAll()

	for err := range errCh {
		return err
	}
	return nil
}

// CleanupOrphans removes containers that carry the name prefix but belong to
// no tracked instance, i.e. leftovers from a previous process.
func (m *Manager) CleanupOrphans(ctx context.Context) []CleanupOutcome {
	names, err := m.engine.ListNames(ctx, config.ContainerPrefix)
	if err != nil {
		return []CleanupOutcome{{Step: "list", Err: err}}
	}

	tracked := m.trackedContainerNames()
	var outcomes []CleanupOutcome
	for _, name := range names {
		if tracked[name] {
			continue
		}
		err := m.engine.Remove(ctx, name, true)
		outcomes = append(outcomes, CleanupOutcome{Step: "remove-orphan", Target: name, Err: err})
		if err == nil {
			logging.Info("removed orphaned container", "container", name)
		}
	}
	return outcomes
}

// EmergencyCleanup synchronously force-removes every tracked container and
// sweeps orphans. It is the signal-handler path: no graceful stops, no
// background work, safe to call with everything else half-dead.
func (m *Manager) EmergencyCleanup(ctx context.Context) []CleanupOutcome {
	m.heartbeats.StopAll()

	var outcomes []CleanupOutcome
	for _, inst := range m.List() {
		err := m.engine.Remove(ctx, inst.ContainerName, true)
		outcomes = append(outcomes, CleanupOutcome{Step: "remove", Target: inst.ContainerName, Err: err})
		m.ports.ReleaseSet(inst.Ports)
		m.unregister(inst.ID)
	}
	outcomes = append(outcomes, m.CleanupOrphans(ctx)...)
	return outcomes
}

// StartHealthLoop begins periodic authoritative container checks. Heartbeats
// judge the agent; this loop judges the container itself.
func (m *Manager) StartHealthLoop() {
	m.mu.Lock()
	if m.healthStop != nil {
		m.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	m.healthStop = stop
	m.healthDone = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.cfg.HealthInterval.Std())
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.checkHealthOnce(context.Background())
			}
		}
	}()
}

// StopHealthLoop stops the periodic checks.
func (m *Manager) StopHealthLoop() {
	m.mu.Lock()
	stop, done := m.healthStop, m.healthDone
	m.healthStop, m.healthDone = nil, nil
	m.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
}

// RefreshHealth runs one authoritative container check immediately.
func (m *Manager) RefreshHealth(ctx context.Context) {
	m.checkHealthOnce(ctx)
}

// checkHealthOnce inspects every running instance and downgrades the ones
// whose containers are gone.
func (m *Manager) checkHealthOnce(ctx context.Context) {
	for _, inst := range m.List() {
		if inst.Status != StatusRunning {
			continue
		}
		inspectCtx, cancel := context.WithTimeout(ctx, m.cfg.InspectTimeout.Std())
		running, err := m.engine.IsRunning(inspectCtx, inst.ContainerName)
		cancel()
		if err != nil {
			logging.Debug("health check failed", "instance", inst.Name, "error", err)
			continue
		}
		if running {
			m.touchHealthy(inst.ID)
			continue
		}

		logging.Warn("container died outside our control", "instance", inst.Name)
		m.heartbeats.Stop(inst.ID)
		m.releasePorts(inst.ID)
		m.setStatus(inst.ID, StatusStopped, "container no longer running")
		m.persist(inst.ID)
		m.publish(events.TypeStopped, inst, "container no longer running")
	}
}

// onHeartbeatLost retires an instance whose agent stopped answering for the
// full failure run: the sandbox is treated as gone, so the container is
// force-removed, the ports freed, and the record dropped. The heartbeat-lost
// event the monitor already published tells callers to fall back.
func (m *Manager) onHeartbeatLost(instanceID string) {
	m.mu.Lock()
	var copied *Instance
	if inst, ok := m.instances[instanceID]; ok {
		inst.HeartbeatLost = true
		inst.Err = "agent heartbeat lost"
		copied = snapshot(inst)
	}
	m.mu.Unlock()
	if copied == nil {
		return
	}

	logging.Warn("agent heartbeat lost, retiring sandbox", "instance", copied.Name)
	ctx := context.Background()
	if err := m.engine.Remove(ctx, copied.ContainerName, true); err != nil {
		logging.Warn("could not remove unresponsive container",
			"container", copied.ContainerName, "error", err)
	}
	m.ports.ReleaseSet(copied.Ports)
	m.unregister(copied.ID)
}

// claimName reserves a name for a create. Whatever instance already holds
// the name, running or not, is destroyed first so the caller always builds
// on a clean slate. A nil return means the name is reserved.
func (m *Manager) claimName(ctx context.Context, name string) error {
	m.mu.Lock()
	id, exists := m.byName[name]
	var existing *Instance
	if exists {
		if inst, ok := m.instances[id]; ok {
			existing = snapshot(inst)
		}
	} else {
		// Reserve the name with a placeholder id until register swaps the
		// real record in.
		m.byName[name] = ""
	}
	m.mu.Unlock()

	if !exists {
		return nil
	}
	if existing == nil {
		return errors.ValidationError(fmt.Sprintf("instance %q is already being created", name))
	}

	logging.Debug("same-name create replaces existing instance", "instance", name)
	if err := m.Destroy(ctx, existing.ID); err != nil {
		return err
	}
	m.mu.Lock()
	m.byName[name] = ""
	m.mu.Unlock()
	return nil
}

func (m *Manager) releaseName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byName[name] == "" {
		delete(m.byName, name)
	}
}

func (m *Manager) register(inst *Instance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[inst.ID] = inst
	m.byName[inst.Name] = inst.ID
}

func (m *Manager) unregister(id string) {
	m.mu.Lock()
	var name string
	if inst, ok := m.instances[id]; ok {
		name = inst.Name
		delete(m.byName, inst.Name)
		delete(m.instances, id)
	}
	store := m.store
	m.mu.Unlock()

	if store != nil && name != "" {
		if err := store.Delete(name); err != nil {
			logging.Warn("could not delete instance record", "instance", name, "error", err)
		}
	}
}

// persist writes the current record for an instance when a store is attached.
func (m *Manager) persist(id string) {
	m.mu.Lock()
	var copied *Instance
	if inst, ok := m.instances[id]; ok {
		copied = snapshot(inst)
	}
	store := m.store
	m.mu.Unlock()

	if store == nil || copied == nil {
		return
	}
	if err := store.Save(copied); err != nil {
		logging.Warn("could not persist instance record", "instance", copied.Name, "error", err)
	}
}

func (m *Manager) setStatus(id string, status Status, note string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.instances[id]; ok {
		inst.Status = status
		inst.Err = note
		if status == StatusRunning {
			inst.LastHealthy = time.Now()
		}
	}
}

func (m *Manager) setNote(id, note string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.instances[id]; ok {
		inst.Err = note
	}
}

func (m *Manager) setContainerID(id, containerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.instances[id]; ok {
		inst.ContainerID = containerID
	}
}

// releasePorts frees an instance's ports and clears them from the record.
// Ports track the container's life, not the record's: a stopped instance
// holds none.
func (m *Manager) releasePorts(id string) {
	m.mu.Lock()
	var set port.Set
	if inst, ok := m.instances[id]; ok {
		set = inst.Ports
		inst.Ports = port.Set{}
	}
	m.mu.Unlock()
	m.ports.ReleaseSet(set)
}

func (m *Manager) touchHealthy(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.instances[id]; ok {
		inst.LastHealthy = time.Now()
	}
}

func (m *Manager) trackedContainerNames() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.instances))
	for _, inst := range m.instances {
		out[inst.ContainerName] = true
	}
	return out
}

func (m *Manager) publish(t events.Type, inst *Instance, detail string) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.Event{Type: t, Instance: inst.ID, Name: inst.Name, Detail: detail})
}

func snapshot(inst *Instance) *Instance {
	copied := *inst
	return &copied
}
