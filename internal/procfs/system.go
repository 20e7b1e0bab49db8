package procfs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	sysconf "github.com/tklauser/go-sysconf"
	"github.com/tklauser/numcpus"
)

// SystemCPUTimes is the aggregate "cpu ..." line of /proc/stat, used by
// utilization formulation (B) (system-jiffy normalization).
type SystemCPUTimes struct {
	User      uint64
	Nice      uint64
	System    uint64
	Idle      uint64
	IOWait    uint64
	IRQ       uint64
	SoftIRQ   uint64
	Steal     uint64
	Guest     uint64
	GuestNice uint64
}

// Total sums every field except Guest and GuestNice. The kernel already
// folds those into User and Nice respectively, so adding them would
// count that time a second time.
func (t SystemCPUTimes) Total() uint64 {
	return t.User + t.Nice + t.System + t.Idle + t.IOWait + t.IRQ + t.SoftIRQ + t.Steal
}

// ReadSystemCPUTimes parses the first "cpu " line of /proc/stat under
// procRoot.
func ReadSystemCPUTimes(procRoot string) (SystemCPUTimes, error) {
	f, err := os.Open(filepath.Join(procRoot, "stat"))
	if err != nil {
		return SystemCPUTimes{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 9 || fields[0] != "cpu" {
			continue
		}
		parse := func(idx int) uint64 {
			if idx >= len(fields) {
				return 0
			}
			v, _ := strconv.ParseUint(fields[idx], 10, 64)
			return v
		}
		return SystemCPUTimes{
			User:      parse(1),
			Nice:      parse(2),
			System:    parse(3),
			Idle:      parse(4),
			IOWait:    parse(5),
			IRQ:       parse(6),
			SoftIRQ:   parse(7),
			Steal:     parse(8),
			Guest:     parse(9),
			GuestNice: parse(10),
		}, nil
	}
	if err := scanner.Err(); err != nil {
		return SystemCPUTimes{}, err
	}
	return SystemCPUTimes{}, fmt.Errorf("procfs: no aggregate cpu line in %s/stat", procRoot)
}

// ClockTicksPerSecond wraps sysconf(_SC_CLK_TCK), the unit that
// utime/stime in /proc/<pid>/stat are expressed in. Falls back to the
// near-universal Linux default of 100 if sysconf is unavailable.
func ClockTicksPerSecond() int64 {
	ticks, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil || ticks <= 0 {
		return 100
	}
	return ticks
}

// OnlineCPUCount reports the number of online logical CPUs. The real
// sysfs surface for this lives under sysRoot/devices/system/cpu/cpu<N>/online,
// which we read through numcpus, falling back to
// sysconf(_SC_NPROCESSORS_ONLN) and finally runtime.NumCPU() if both
// are unavailable (e.g. in a restricted container).
func OnlineCPUCount(sysRoot string) (int, error) {
	if n, err := numcpus.GetOnline(numcpus.WithSysfs(sysRoot)); err == nil && n > 0 {
		return n, nil
	}
	if n, err := sysconf.Sysconf(sysconf.SC_NPROCESSORS_ONLN); err == nil && n > 0 {
		return int(n), nil
	}
	if n := runtime.NumCPU(); n > 0 {
		return n, nil
	}
	return 0, fmt.Errorf("procfs: unable to determine online cpu count")
}
