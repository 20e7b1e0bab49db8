package engine

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/baikal/cpulimitd/internal/registry"
)

func newControlLoop(procRoot string, selfPID int, sig Signaler, clock Clock) *engineLoop {
	return &engineLoop{
		cfg:            Config{ProcRoot: procRoot, Alpha: DefaultAlpha, MinSampleInterval: DefaultMinSampleInterval},
		reg:            registry.New(selfPID),
		sig:            sig,
		clock:          clock,
		ticksPerSecond: 100,
		nCPU:           4,
	}
}

func bumpStat(t *testing.T, root string, pid int, utime, stime uint64) {
	t.Helper()
	dir := filepath.Join(root, strconv.Itoa(pid))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	line := strconv.Itoa(pid) + " (p) R 1 1 1 0 -1 0 0 0 0 0 " +
		strconv.FormatUint(utime, 10) + " " + strconv.FormatUint(stime, 10) +
		" 0 0 20 0 1 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0"
	if err := os.WriteFile(filepath.Join(dir, "stat"), []byte(line+"\n"), 0o644); err != nil {
		t.Fatalf("write stat: %v", err)
	}
}

func TestRunControlSkipsMissingPID(t *testing.T) {
	root := t.TempDir()
	sig := newFakeSignaler()
	clock := &fakeClock{}
	loop := newControlLoop(root, 999, sig, clock)
	loop.reg.Upsert(123, "ghost", "u") // no corresponding /proc entry

	loop.runControl() // must not panic or error out

	rec, _ := loop.reg.Get(123)
	if rec.CPUUsage != 0 {
		t.Errorf("CPUUsage = %v, want unchanged 0 for a pid with no procfs entry", rec.CPUUsage)
	}
}

func TestRunControlNeverSignalsSelf(t *testing.T) {
	root := t.TempDir()
	bumpStat(t, root, 1, 100, 0)
	sig := newFakeSignaler()
	clock := &fakeClock{}
	loop := newControlLoop(root, 1, sig, clock)
	rec := loop.reg.Upsert(1, "cpulimitd", "root")
	rec.Limit = registry.Limit{Present: true, Value: 0.1} // should never happen via commands, but prove belt-and-suspenders
	rec.CPUUsage = 0.9

	clock.Advance(100)
	bumpStat(t, root, 1, 200, 0)
	loop.runControl()

	if len(sig.log) != 0 {
		t.Errorf("engine signaled its own pid: %v", sig.log)
	}
}

func TestRunControlDrivesThrottleOverMultipleTicks(t *testing.T) {
	root := t.TempDir()
	sig := newFakeSignaler()
	clock := &fakeClock{}
	loop := newControlLoop(root, 999, sig, clock)
	rec := loop.reg.Upsert(50, "hog", "u")
	rec.Limit = registry.Limit{Present: true, Value: 0.5}

	ticks := uint64(0)
	bumpStat(t, root, 50, ticks, 0)
	loop.runControl() // seed only

	// Drive the estimator to ~1.0 cores of usage (100ms ticks at full
	// tilt), then confirm the controller eventually issues a STOP.
	sawStop := false
	for i := 0; i < 50; i++ {
		clock.Advance(100)
		ticks += 10 // 100ms worth of ticks at 100 ticks/sec == full core
		bumpStat(t, root, 50, ticks, 0)
		loop.runControl()
		for _, s := range sig.signalsFor(50) {
			if s.Stop {
				sawStop = true
			}
		}
		if sawStop {
			break
		}
	}
	if !sawStop {
		t.Fatal("expected a STOP to eventually fire once usage exceeds the limit")
	}
}
