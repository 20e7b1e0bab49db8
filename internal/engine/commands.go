package engine

import (
	"log"

	"github.com/baikal/cpulimitd/internal/registry"
)

// Command is a request from the presentation layer to the engine
// worker. Commands are dispatched strictly between loop iterations —
// apply is only ever called from the worker goroutine.
type Command interface {
	apply(e *engineLoop)
}

// SetLimit sets pid's target utilization to fraction (of one core, in
// [0, 1]). It always clears sleep_ticks and delivers an immediate
// CONTINUE so the process starts its new duty cycle unstopped.
type SetLimit struct {
	PID      int
	Fraction float64
}

func (c SetLimit) apply(e *engineLoop) {
	if c.PID == e.reg.SelfPID() {
		log.Printf("cpulimitd: refusing set_limit on own pid %d", c.PID)
		return
	}
	if c.Fraction < 0 || c.Fraction > 1 {
		log.Printf("cpulimitd: refusing set_limit(%d, %v): limit must be in [0,1]", c.PID, c.Fraction)
		return
	}
	rec, ok := e.reg.Get(c.PID)
	if !ok {
		log.Printf("cpulimitd: set_limit: unknown pid %d", c.PID)
		return
	}
	rec.Limit = registry.Limit{Present: true, Value: c.Fraction}
	rec.SleepTicks = 0
	_ = e.sig.Continue(c.PID)
}

// ClearLimit removes pid's limit, clears sleep_ticks, and delivers
// CONTINUE.
type ClearLimit struct {
	PID int
}

func (c ClearLimit) apply(e *engineLoop) {
	if c.PID == e.reg.SelfPID() {
		log.Printf("cpulimitd: refusing clear_limit on own pid %d", c.PID)
		return
	}
	rec, ok := e.reg.Get(c.PID)
	if !ok {
		log.Printf("cpulimitd: clear_limit: unknown pid %d", c.PID)
		return
	}
	rec.Limit = registry.Limit{}
	rec.SleepTicks = 0
	_ = e.sig.Continue(c.PID)
}
