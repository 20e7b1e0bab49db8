package engine

import (
	"math"

	"github.com/baikal/cpulimitd/internal/registry"
)

// Epsilon is the overshoot-ignore threshold: a limit at or below this
// is treated as "do nothing" rather than risking a division that
// blows up as limit approaches zero.
const Epsilon = 1e-3

// applyController runs the duty-cycle state machine for rec. Call it
// once per control tick, after updateUsage has refreshed CPUUsage.
//
//   - Unlimited: no limit set, sleep_ticks stays at 0.
//   - Running-under-limit: limit set, not currently stopped, usage at
//     or below limit (or limit ≤ ε). No action.
//   - Trigger-stop: usage exceeds limit. Computes sleep_ticks and
//     delivers STOP.
//   - Stopped: sleep_ticks > 0. Counts down; delivers CONTINUE at 0.
func applyController(rec *registry.ProcessRecord, sig Signaler) {
	if !rec.Limit.Present {
		rec.SleepTicks = 0
		return
	}

	if rec.SleepTicks > 0 {
		rec.SleepTicks--
		if rec.SleepTicks == 0 {
			_ = sig.Continue(rec.PID)
		}
		return
	}

	limit := rec.Limit.Value
	if limit <= Epsilon || rec.CPUUsage <= limit {
		return
	}

	sleepTicks := int(math.Floor((rec.CPUUsage - limit) / limit))
	if sleepTicks < 1 {
		sleepTicks = 1
	}
	rec.SleepTicks = sleepTicks
	_ = sig.Stop(rec.PID)
}
