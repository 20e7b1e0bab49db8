package engine

import (
	"time"

	"github.com/baikal/cpulimitd/internal/registry"
)

// DefaultAlpha and DefaultMinSampleInterval are the IIR estimator
// constants from the wall-clock normalization formulation: a slow
// (α=0.08) exponential average, refused below a 20ms sample spacing
// since jitter dominates the signal at finer grain than that.
const (
	DefaultAlpha             = 0.08
	DefaultMinSampleInterval = 20 * time.Millisecond
)

// updateUsage folds one fresh (utime+stime) sample into rec.CPUUsage.
// The very first sample for a record only seeds the counters — cpu_usage
// stays at its zero value until a second sample establishes an elapsed
// interval to normalize against.
func updateUsage(rec *registry.ProcessRecord, nowMS int64, cpuTimeTicks uint64, ticksPerSecond int64, alpha float64, minInterval time.Duration, nCPU int) {
	if rec.LastSampleMS == 0 {
		rec.PrevCPUTimeTicks = rec.CPUTimeTicks
		rec.CPUTimeTicks = cpuTimeTicks
		rec.LastSampleMS = nowMS
		return
	}

	elapsedMS := nowMS - rec.LastSampleMS
	if elapsedMS < minInterval.Milliseconds() {
		return
	}

	deltaTicks := int64(cpuTimeTicks) - int64(rec.CPUTimeTicks)
	if deltaTicks < 0 {
		// Counter went backwards: pid reuse landed a brand new process
		// on an old record's identity window. Saturate at zero rather
		// than report a negative instant.
		deltaTicks = 0
	}
	deltaMS := float64(deltaTicks) * 1000 / float64(ticksPerSecond)

	rec.PrevCPUTimeTicks = rec.CPUTimeTicks
	rec.CPUTimeTicks = cpuTimeTicks
	rec.LastSampleMS = nowMS

	instant := deltaMS / float64(elapsedMS)
	usage := (1-alpha)*rec.CPUUsage + alpha*instant
	rec.CPUUsage = clamp(usage, 0, float64(nCPU))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
