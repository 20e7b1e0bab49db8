package procfs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Identity is the subset of /proc/<pid>/status discovery needs: the
// short command name and the owning uid.
type Identity struct {
	Command string
	UID     int
}

// ReadStatus parses /proc/<pid>/status for the Name: and Uid: lines.
// Uid: carries four whitespace-separated values (real, effective,
// saved, filesystem); only the first (real uid) is used. Lines that
// don't start with a recognized key are ignored, so field order and
// unrelated keys don't matter.
func ReadStatus(procRoot string, pid int) (Identity, error) {
	path := filepath.Join(procRoot, strconv.Itoa(pid), "status")
	f, err := os.Open(path)
	if err != nil {
		return Identity{}, err
	}
	defer f.Close()

	var id Identity
	haveUID := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "Name":
			id.Command = value
		case "Uid":
			fields := strings.Fields(value)
			if len(fields) == 0 {
				continue
			}
			uid, err := strconv.Atoi(fields[0])
			if err != nil {
				continue
			}
			id.UID = uid
			haveUID = true
		}
	}
	if err := scanner.Err(); err != nil {
		return Identity{}, err
	}
	if !haveUID {
		return Identity{}, fmt.Errorf("procfs: no Uid line in %s", path)
	}
	return id, nil
}
