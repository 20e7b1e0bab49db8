package registry

// Snapshot is the value-copy view of the registry published to the
// presentation layer after every discovery iteration. It is
// self-contained: a reader never needs to consult a previous snapshot
// to know the full current process list, but Added/Removed let it
// cheaply track deltas without diffing the whole list itself.
type Snapshot struct {
	Processes []ProcessRecord
	Added     []int
	Removed   []int
}

// Snapshot copies the current registry state into a Snapshot. added
// and removed are the pid deltas computed by the discovery loop for
// this iteration; Processes is always the full current list, never a
// partial update.
func (r *Registry) Snapshot(added, removed []int) Snapshot {
	procs := make([]ProcessRecord, 0, len(r.byPID))
	for _, rec := range r.All() {
		procs = append(procs, rec.clone())
	}
	return Snapshot{
		Processes: procs,
		Added:     append([]int(nil), added...),
		Removed:   append([]int(nil), removed...),
	}
}
