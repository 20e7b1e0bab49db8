package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/baikal/cpulimitd/internal/engine"
)

// pumpStdinCommands is the simple line protocol both watch and
// headless accept on stdin, so a caller can drive set_limit/clear_limit
// without a separate daemon/IPC surface:
//
//	limit <pid> <percent-of-one-core>
//	clear <pid>
//
// It runs until stdin is closed (or r returns an error) and is meant
// to be started in its own goroutine alongside the engine.
func pumpStdinCommands(r io.Reader, commands chan<- engine.Command) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cmd, err := parseCommandLine(scanner.Text())
		if err != nil {
			log.Printf("cpulimitd: %v", err)
			continue
		}
		if cmd != nil {
			commands <- cmd
		}
	}
}

func parseCommandLine(line string) (engine.Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}

	switch fields[0] {
	case "limit":
		if len(fields) != 3 {
			return nil, fmt.Errorf("usage: limit <pid> <percent>")
		}
		pid, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("limit: bad pid %q: %w", fields[1], err)
		}
		percent, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("limit: bad percent %q: %w", fields[2], err)
		}
		return engine.SetLimit{PID: pid, Fraction: float64(percent) / 100}, nil
	case "clear":
		if len(fields) != 2 {
			return nil, fmt.Errorf("usage: clear <pid>")
		}
		pid, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("clear: bad pid %q: %w", fields[1], err)
		}
		return engine.ClearLimit{PID: pid}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", fields[0])
	}
}
