// Package engine is the core of cpulimitd: a single worker goroutine
// that owns a process registry and runs the discovery and control
// loops described by the duty-cycle throttle design. Everything
// outside this package talks to the worker through a Handle's command
// and snapshot channels — the registry itself is never exposed.
package engine

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/baikal/cpulimitd/internal/procfs"
	"github.com/baikal/cpulimitd/internal/registry"
)

// Clock supplies wall-clock milliseconds to the estimator. Production
// code uses realClock; tests substitute a fake so sample spacing is
// deterministic instead of depending on real elapsed time.
type Clock interface {
	NowMS() int64
}

type realClock struct{}

func (realClock) NowMS() int64 { return time.Now().UnixMilli() }

// Config tunes the engine. Zero values fall back to sensible production
// defaults (see Config.setDefaults).
type Config struct {
	ProcRoot   string
	SysRoot    string
	PasswdPath string

	DiscoveryPeriod   time.Duration
	ControlPeriod     time.Duration
	Alpha             float64
	MinSampleInterval time.Duration

	// Signaler and Clock default to production implementations; tests
	// override them to avoid touching real processes or real time.
	Signaler Signaler
	Clock    Clock
}

func (c *Config) setDefaults() {
	if c.ProcRoot == "" {
		c.ProcRoot = "/proc"
	}
	if c.SysRoot == "" {
		c.SysRoot = "/sys"
	}
	if c.PasswdPath == "" {
		c.PasswdPath = "/etc/passwd"
	}
	if c.DiscoveryPeriod <= 0 {
		c.DiscoveryPeriod = time.Second
	}
	if c.ControlPeriod <= 0 {
		c.ControlPeriod = 25 * time.Millisecond
	}
	if c.Alpha <= 0 {
		c.Alpha = DefaultAlpha
	}
	if c.MinSampleInterval <= 0 {
		c.MinSampleInterval = DefaultMinSampleInterval
	}
	if c.Signaler == nil {
		c.Signaler = killSignaler{}
	}
	if c.Clock == nil {
		c.Clock = realClock{}
	}
}

// Handle is returned by Start. It carries join-on-drop semantics:
// Close signals shutdown and blocks until the worker goroutine has
// finished delivering CONTINUE to every limited process and exited.
type Handle struct {
	cmdCh  chan Command
	snapCh chan registry.Snapshot
	stopCh chan struct{}
	done   chan struct{}
}

// Commands returns the channel used to send SetLimit/ClearLimit
// requests to the worker.
func (h *Handle) Commands() chan<- Command { return h.cmdCh }

// Snapshots returns the channel the worker publishes registry
// snapshots on, in production order.
func (h *Handle) Snapshots() <-chan registry.Snapshot { return h.snapCh }

// Close stops the worker and waits for it to finish. Safe to call more
// than once.
func (h *Handle) Close() {
	select {
	case <-h.stopCh:
	default:
		close(h.stopCh)
	}
	<-h.done
}

// engineLoop is the worker's private state. Every field here is
// touched only from the goroutine started in Start.
type engineLoop struct {
	cfg   Config
	reg   *registry.Registry
	users procfs.UserTable
	sig   Signaler
	clock Clock

	ticksPerSecond int64
	nCPU           int
	firstSnapshot  bool

	handle *Handle
}

// Start loads the user table, resolves the online CPU count, and
// launches the worker goroutine. It returns once both are known but
// before the first discovery pass runs.
func Start(cfg Config) (*Handle, error) {
	cfg.setDefaults()

	users, err := procfs.LoadUserTable(cfg.PasswdPath)
	if err != nil {
		return nil, fmt.Errorf("cpulimitd: load user table: %w", err)
	}
	nCPU, err := procfs.OnlineCPUCount(cfg.SysRoot)
	if err != nil {
		return nil, fmt.Errorf("cpulimitd: online cpu count: %w", err)
	}

	h := &Handle{
		cmdCh:  make(chan Command, 16),
		snapCh: make(chan registry.Snapshot, 4),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}

	loop := &engineLoop{
		cfg:            cfg,
		reg:            registry.New(os.Getpid()),
		users:          users,
		sig:            cfg.Signaler,
		clock:          cfg.Clock,
		ticksPerSecond: procfs.ClockTicksPerSecond(),
		nCPU:           nCPU,
		firstSnapshot:  true,
		handle:         h,
	}

	go loop.run()

	return h, nil
}

// run is the single dedicated worker: discovery and control are driven
// by two one-shot timers that rearm themselves after firing, so they
// never overlap on this goroutine. Commands are only ever read here,
// between timer firings.
func (e *engineLoop) run() {
	defer close(e.handle.done)

	discoveryTimer := time.NewTimer(0)
	controlTimer := time.NewTimer(e.cfg.ControlPeriod)
	defer discoveryTimer.Stop()
	defer controlTimer.Stop()

	for {
		select {
		case <-e.handle.stopCh:
			e.shutdown()
			return
		case cmd := <-e.handle.cmdCh:
			cmd.apply(e)
		case <-discoveryTimer.C:
			e.runDiscovery()
			discoveryTimer.Reset(e.cfg.DiscoveryPeriod)
		case <-controlTimer.C:
			e.runControl()
			controlTimer.Reset(e.cfg.ControlPeriod)
		}
	}
}

// runControl samples every known process once and drives the
// duty-cycle controller for each. A process whose /proc entry just
// vanished is skipped for this tick; discovery will remove it shortly.
func (e *engineLoop) runControl() {
	now := e.clock.NowMS()
	selfPID := e.reg.SelfPID()

	for _, rec := range e.reg.All() {
		st, err := procfs.ReadStat(e.cfg.ProcRoot, rec.PID)
		if err != nil {
			continue
		}
		updateUsage(rec, now, st.UTime+st.STime, e.ticksPerSecond, e.cfg.Alpha, e.cfg.MinSampleInterval, e.nCPU)

		if rec.PID == selfPID {
			continue
		}
		applyController(rec, e.sig)
	}
}

// shutdown delivers CONTINUE to every process that currently has a
// limit or a nonzero sleep countdown, skipping the engine's own pid,
// before the worker exits.
func (e *engineLoop) shutdown() {
	selfPID := e.reg.SelfPID()
	for _, rec := range e.reg.All() {
		if rec.PID == selfPID {
			continue
		}
		if rec.Limit.Present || rec.SleepTicks > 0 {
			_ = e.sig.Continue(rec.PID)
		}
	}
}

// publish sends a snapshot without ever blocking the worker loop: if
// the reader is behind, the oldest pending snapshot is dropped in
// favor of the new one, since only the latest snapshot matters to a
// live presentation layer.
func (e *engineLoop) publish(added, removed []int) {
	snap := e.reg.Snapshot(added, removed)
	select {
	case e.handle.snapCh <- snap:
		return
	default:
	}
	select {
	case <-e.handle.snapCh:
	default:
	}
	select {
	case e.handle.snapCh <- snap:
	default:
		log.Printf("cpulimitd: snapshot channel still full after drop, skipping publish")
	}
}
