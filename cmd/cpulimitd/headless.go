package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/baikal/cpulimitd/internal/engine"
	"github.com/baikal/cpulimitd/internal/registry"
	"github.com/baikal/cpulimitd/internal/telemetry"
)

// processView is the JSON shape printed by headless mode, percent-scaled
// for presentation instead of the controller's internal fraction-of-core
// unit.
type processView struct {
	PID         int      `json:"pid"`
	User        string   `json:"user"`
	Command     string   `json:"command"`
	CPUUsagePct float64  `json:"cpu_usage_percent"`
	CPULimitPct *float64 `json:"cpu_limit_percent,omitempty"`
}

type snapshotView struct {
	Timestamp string        `json:"timestamp"`
	Processes []processView `json:"processes"`
	Added     []int         `json:"added_pids"`
	Removed   []int         `json:"removed_pids"`
}

func runHeadless(flags engineFlags, interval time.Duration, prometheusAddr string) error {
	h, err := engine.Start(flags.toConfig())
	if err != nil {
		return fmt.Errorf("cpulimitd: start engine: %w", err)
	}
	defer h.Close()

	go pumpStdinCommands(os.Stdin, h.Commands())

	var exporter *telemetry.Exporter
	if prometheusAddr != "" {
		exporter = telemetry.NewExporter()
		go serveMetrics(prometheusAddr, exporter)
	}

	encoder := json.NewEncoder(os.Stdout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var latest registry.Snapshot
	haveSnapshot := false

	for {
		select {
		case snap, ok := <-h.Snapshots():
			if !ok {
				return nil
			}
			latest = snap
			haveSnapshot = true
			if exporter != nil {
				exporter.Observe(snap)
			}
		case <-ticker.C:
			if !haveSnapshot {
				continue
			}
			if err := encoder.Encode(toSnapshotView(latest)); err != nil {
				fmt.Fprintf(os.Stderr, "cpulimitd: encode snapshot: %v\n", err)
			}
		}
	}
}

func toSnapshotView(snap registry.Snapshot) snapshotView {
	view := snapshotView{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Processes: make([]processView, 0, len(snap.Processes)),
		Added:     snap.Added,
		Removed:   snap.Removed,
	}
	for _, p := range snap.Processes {
		pv := processView{
			PID:         p.PID,
			User:        p.User,
			Command:     p.Command,
			CPUUsagePct: p.CPUUsage * 100,
		}
		if p.Limit.Present {
			pct := p.Limit.Value * 100
			pv.CPULimitPct = &pct
		}
		view.Processes = append(view.Processes, pv)
	}
	return view
}
