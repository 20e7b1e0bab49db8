package engine

import (
	"testing"

	"github.com/baikal/cpulimitd/internal/registry"
)

func TestApplyControllerUnlimited(t *testing.T) {
	sig := newFakeSignaler()
	rec := &registry.ProcessRecord{PID: 10, CPUUsage: 0.9}

	applyController(rec, sig)

	if rec.SleepTicks != 0 {
		t.Errorf("SleepTicks = %d, want 0 for an unlimited record", rec.SleepTicks)
	}
	if len(sig.log) != 0 {
		t.Errorf("unlimited record must not be signaled, got %v", sig.log)
	}
}

func TestApplyControllerRunningUnderLimit(t *testing.T) {
	sig := newFakeSignaler()
	rec := &registry.ProcessRecord{PID: 10, CPUUsage: 0.3, Limit: registry.Limit{Present: true, Value: 0.5}}

	applyController(rec, sig)

	if rec.SleepTicks != 0 || len(sig.log) != 0 {
		t.Errorf("running-under-limit record should not be signaled: sleepTicks=%d log=%v", rec.SleepTicks, sig.log)
	}
}

func TestApplyControllerZeroLimitIsNoop(t *testing.T) {
	sig := newFakeSignaler()
	rec := &registry.ProcessRecord{PID: 10, CPUUsage: 0.9, Limit: registry.Limit{Present: true, Value: 0}}

	applyController(rec, sig)

	if rec.SleepTicks != 0 || len(sig.log) != 0 {
		t.Errorf("limit<=epsilon must be a no-op, got sleepTicks=%d log=%v", rec.SleepTicks, sig.log)
	}
}

func TestApplyControllerTriggerStop(t *testing.T) {
	sig := newFakeSignaler()
	rec := &registry.ProcessRecord{PID: 10, CPUUsage: 0.9, Limit: registry.Limit{Present: true, Value: 0.3}}

	applyController(rec, sig)

	// sleep_ticks = max(1, floor((0.9-0.3)/0.3)) = max(1, floor(2)) = 2
	if rec.SleepTicks != 2 {
		t.Errorf("SleepTicks = %d, want 2", rec.SleepTicks)
	}
	if len(sig.log) != 1 || !sig.log[0].Stop {
		t.Fatalf("expected exactly one STOP, got %v", sig.log)
	}
}

func TestApplyControllerTriggerStopMinimumOneTick(t *testing.T) {
	sig := newFakeSignaler()
	// Small overshoot: floor((0.31-0.3)/0.3) == 0, must still be >= 1.
	rec := &registry.ProcessRecord{PID: 10, CPUUsage: 0.31, Limit: registry.Limit{Present: true, Value: 0.3}}

	applyController(rec, sig)

	if rec.SleepTicks != 1 {
		t.Errorf("SleepTicks = %d, want 1 (minimum progress guarantee)", rec.SleepTicks)
	}
}

func TestApplyControllerStoppedCountdownThenContinue(t *testing.T) {
	sig := newFakeSignaler()
	rec := &registry.ProcessRecord{PID: 10, SleepTicks: 2, Limit: registry.Limit{Present: true, Value: 0.3}}

	applyController(rec, sig) // 2 -> 1, no signal
	if rec.SleepTicks != 1 || len(sig.log) != 0 {
		t.Fatalf("first decrement: sleepTicks=%d log=%v", rec.SleepTicks, sig.log)
	}

	applyController(rec, sig) // 1 -> 0, CONTINUE fires
	if rec.SleepTicks != 0 {
		t.Errorf("SleepTicks = %d, want 0", rec.SleepTicks)
	}
	if len(sig.log) != 1 || sig.log[0].Stop {
		t.Fatalf("expected exactly one CONTINUE, got %v", sig.log)
	}
}

// TestApplyControllerNoConsecutiveStopsOrContinues drives a
// persistently over-limit process through several ticks: the signal
// sequence for one pid must alternate STOP, CONTINUE, STOP, CONTINUE…
// with no two of the same kind back to back.
func TestApplyControllerNoConsecutiveStopsOrContinues(t *testing.T) {
	sig := newFakeSignaler()
	rec := &registry.ProcessRecord{PID: 10, Limit: registry.Limit{Present: true, Value: 0.5}}

	usageTrace := []float64{0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9}
	for _, usage := range usageTrace {
		rec.CPUUsage = usage
		applyController(rec, sig)
	}

	signals := sig.signalsFor(10)
	for i := 1; i < len(signals); i++ {
		if signals[i].Stop == signals[i-1].Stop {
			t.Fatalf("two consecutive signals of the same kind at index %d: %v", i, signals)
		}
	}
}
