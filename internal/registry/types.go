// Package registry holds the process table that cpulimitd's engine
// mutates every discovery and control tick. A Registry has a single
// owner: the engine goroutine. It is not safe for concurrent use —
// callers outside internal/engine must go through the snapshot and
// command channels instead of touching a Registry directly.
package registry

// Limit is an optional target utilization, expressed as a fraction of
// one core. The zero value (Present == false) means "unlimited".
type Limit struct {
	Present bool
	Value   float64
}

// ProcessRecord is one observed live process.
type ProcessRecord struct {
	PID    int
	Command string
	User    string

	CPUTimeTicks     uint64
	PrevCPUTimeTicks uint64
	LastSampleMS     int64

	CPUUsage float64

	Limit      Limit
	SleepTicks int
}

// Unlimited reports whether the record currently carries no active
// limit, meaning the controller will never stop this process.
func (r *ProcessRecord) Unlimited() bool {
	return !r.Limit.Present
}

// clone returns a value copy of r suitable for handing to a reader that
// must never observe a mutation in progress.
func (r *ProcessRecord) clone() ProcessRecord {
	return *r
}
