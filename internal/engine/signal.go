package engine

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// Signaler delivers the POSIX STOP/CONTINUE signals the duty-cycle
// controller uses to throttle a process. It's an interface so tests
// can substitute a fake instead of sending real signals.
type Signaler interface {
	Stop(pid int) error
	Continue(pid int) error
}

// killSignaler is the production Signaler: plain syscall.Kill.
type killSignaler struct{}

func (killSignaler) Stop(pid int) error {
	return sendIgnoringESRCH(pid, syscall.SIGSTOP)
}

func (killSignaler) Continue(pid int) error {
	return sendIgnoringESRCH(pid, syscall.SIGCONT)
}

// sendIgnoringESRCH delivers sig to pid. ESRCH means the process is
// already gone, which isn't worth reporting as an error — the next
// discovery pass removes the pid.
func sendIgnoringESRCH(pid int, sig syscall.Signal) error {
	err := syscall.Kill(pid, sig)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}
