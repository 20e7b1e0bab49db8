// Package procfs reads the slice of procfs, sysfs, and /etc/passwd that
// cpulimitd needs: process stat lines, process identity, the system
// aggregate CPU line, and the handful of sysconf-style knobs (clock
// ticks, online CPU count) that the kernel doesn't expose as plain
// files everywhere.
package procfs

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// UserTable maps uid to username, built once from /etc/passwd at
// startup. It is read-only after construction and safe for concurrent
// reads from multiple goroutines without further synchronization.
type UserTable map[int]string

// Lookup returns the username for uid, or "" if uid is not present in
// the table.
func (t UserTable) Lookup(uid int) string {
	return t[uid]
}

// LoadUserTable parses path (normally /etc/passwd) in the standard
// colon-separated format. Lines with fewer than three fields, an empty
// name, or a non-integer or negative uid are skipped. When the same uid
// appears more than once, the last line wins. A failure to open path
// yields an empty table, not an error the caller must special-case —
// callers just get empty usernames back from Lookup.
func LoadUserTable(path string) (UserTable, error) {
	table := make(UserTable)

	f, err := os.Open(path)
	if err != nil {
		return table, nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 3 {
			continue
		}
		name := fields[0]
		if name == "" {
			continue
		}
		uid, err := strconv.Atoi(fields[2])
		if err != nil || uid < 0 {
			continue
		}
		table[uid] = name
	}
	if err := scanner.Err(); err != nil {
		return table, err
	}
	return table, nil
}
