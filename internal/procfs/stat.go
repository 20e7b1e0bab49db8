package procfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Stat holds the fields of /proc/<pid>/stat that the sampler cares
// about. comm can contain spaces and parentheses, so it must never be
// split on whitespace directly.
type Stat struct {
	PID   int
	Comm  string
	State byte
	UTime uint64
	STime uint64
}

// ReadStat parses /proc/<pid>/stat under procRoot. The kernel wraps
// comm in parentheses and gives no guarantee it doesn't itself contain
// a ")", so the only reliable anchor is the *last* ")" in the line;
// everything after it, split on whitespace, is the fixed-format tail
// starting at state.
func ReadStat(procRoot string, pid int) (Stat, error) {
	path := filepath.Join(procRoot, strconv.Itoa(pid), "stat")
	data, err := os.ReadFile(path)
	if err != nil {
		return Stat{}, err
	}

	line := strings.TrimRight(string(data), "\n")
	open := strings.IndexByte(line, '(')
	shut := strings.LastIndexByte(line, ')')
	if open < 0 || shut < 0 || shut < open {
		return Stat{}, fmt.Errorf("procfs: malformed stat line for pid %d", pid)
	}

	comm := line[open+1 : shut]
	tail := strings.Fields(line[shut+1:])
	// tail[0]=state, tail[11]=utime, tail[12]=stime (0-indexed from
	// state, which is field 3 of the whole record).
	if len(tail) < 13 {
		return Stat{}, fmt.Errorf("procfs: truncated stat line for pid %d", pid)
	}

	st := Stat{PID: pid, Comm: comm}
	if len(tail[0]) > 0 {
		st.State = tail[0][0]
	}
	st.UTime, err = strconv.ParseUint(tail[11], 10, 64)
	if err != nil {
		return Stat{}, fmt.Errorf("procfs: bad utime for pid %d: %w", pid, err)
	}
	st.STime, err = strconv.ParseUint(tail[12], 10, 64)
	if err != nil {
		return Stat{}, fmt.Errorf("procfs: bad stime for pid %d: %w", pid, err)
	}
	return st, nil
}

// ScanPIDs lists the numeric entries directly under procRoot, i.e. the
// candidate process ids currently visible in procfs.
func ScanPIDs(procRoot string) ([]int, error) {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return nil, fmt.Errorf("procfs: scan %s: %w", procRoot, err)
	}

	pids := make([]int, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid < 0 {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}
