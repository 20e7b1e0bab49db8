package engine

import (
	"log"

	"github.com/baikal/cpulimitd/internal/procfs"
)

// runDiscovery reconciles the registry against the current /proc
// listing: new pids are resolved to identity and added, vanished pids
// are continued (best-effort) and removed, and a snapshot is published
// on every pass, so readers see fresh CPU usage even when no pid was
// added or removed.
func (e *engineLoop) runDiscovery() {
	pids, err := procfs.ScanPIDs(e.cfg.ProcRoot)
	if err != nil {
		log.Printf("cpulimitd: discovery: %v", err)
		return
	}

	known := e.reg.PIDs()
	seen := make(map[int]struct{}, len(pids))
	var added, removed []int

	for _, pid := range pids {
		seen[pid] = struct{}{}
		if _, ok := known[pid]; ok {
			continue
		}

		command, user := "", ""
		identity, err := procfs.ReadStatus(e.cfg.ProcRoot, pid)
		if err != nil {
			log.Printf("cpulimitd: discovery: status for pid %d: %v", pid, err)
		} else {
			command = identity.Command
			user = e.users.Lookup(identity.UID)
		}
		e.reg.Upsert(pid, command, user)
		added = append(added, pid)
	}

	for pid := range known {
		if _, ok := seen[pid]; ok {
			continue
		}
		// Always send a best-effort CONTINUE before forgetting a pid, so
		// a process that vanishes mid-stop is never left stuck. Harmless
		// if the process is already gone.
		_ = e.sig.Continue(pid)
		e.reg.Remove(pid)
		removed = append(removed, pid)
	}

	e.publish(added, removed)
	e.firstSnapshot = false
}
