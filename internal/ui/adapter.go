// Package ui is the termui-based presentation layer for cpulimitd. It
// is an external collaborator to the engine, not part of THE CORE: it
// only ever touches a registry.Snapshot value copy and sends
// engine.Command values back, exactly like any other consumer of
// Handle.Snapshots()/Handle.Commands() could.
package ui

import (
	"fmt"
	"sort"

	termui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/baikal/cpulimitd/internal/engine"
	"github.com/baikal/cpulimitd/internal/registry"
)

// presetLimits are the quick-assign fractions bound to number keys.
// There's no numeric text-entry widget in this presentation layer, so
// a fixed set of presets covers the common cases.
var presetLimits = map[string]float64{
	"1": 0.10,
	"2": 0.25,
	"3": 0.50,
	"4": 0.75,
	"5": 1.00,
}

// Adapter renders registry snapshots in a scrollable table and turns
// keystrokes into engine commands.
type Adapter struct {
	commands  chan<- engine.Command
	snapshots <-chan registry.Snapshot

	table *widgets.Table
	rows  []registry.ProcessRecord

	clearPending bool
	clearPID     int
}

// NewAdapter builds an Adapter that dispatches commands on commands
// and renders whatever arrives on snapshots. Both channels are owned
// by the caller — typically an engine.Handle's Commands()/Snapshots(),
// possibly fanned out if other consumers (e.g. telemetry) also need
// the snapshot stream.
func NewAdapter(commands chan<- engine.Command, snapshots <-chan registry.Snapshot) *Adapter {
	table := widgets.NewTable()
	table.Title = "cpulimitd"
	table.TextStyle = termui.NewStyle(termui.ColorWhite)
	table.RowSeparator = false
	table.Rows = [][]string{{"PID", "USER", "COMMAND", "CPU%", "LIMIT%"}}

	return &Adapter{
		commands:  commands,
		snapshots: snapshots,
		table:     table,
	}
}

// Run initializes the terminal, pumps snapshots into the table, and
// processes keyboard events until the user quits, the snapshot channel
// closes, or the caller closes stop.
func (a *Adapter) Run(stop <-chan struct{}) error {
	if err := termui.Init(); err != nil {
		return fmt.Errorf("cpulimitd: ui init: %w", err)
	}
	defer termui.Close()

	width, height := termui.TerminalDimensions()
	a.table.SetRect(0, 0, width, height)
	termui.Render(a.table)

	events := termui.PollEvents()
	for {
		select {
		case <-stop:
			return nil
		case snap, ok := <-a.snapshots:
			if !ok {
				return nil
			}
			a.applySnapshot(snap)
			termui.Render(a.table)
		case e := <-events:
			if a.handleEvent(e) {
				return nil
			}
			termui.Render(a.table)
		}
	}
}

func (a *Adapter) applySnapshot(snap registry.Snapshot) {
	rows := append([]registry.ProcessRecord(nil), snap.Processes...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].CPUUsage > rows[j].CPUUsage })
	a.rows = rows

	table := [][]string{{"PID", "USER", "COMMAND", "CPU%", "LIMIT%"}}
	for _, p := range rows {
		limitStr := "none"
		if p.Limit.Present {
			limitStr = fmt.Sprintf("%.0f", p.Limit.Value*100)
		}
		table = append(table, []string{
			fmt.Sprintf("%d", p.PID),
			p.User,
			p.Command,
			fmt.Sprintf("%.1f", p.CPUUsage*100),
			limitStr,
		})
	}
	a.table.Rows = table
}

// handleEvent applies one termui event and reports whether the
// adapter should quit.
func (a *Adapter) handleEvent(e termui.Event) bool {
	if a.clearPending {
		switch e.ID {
		case "y", "Y":
			a.commands <- engine.ClearLimit{PID: a.clearPID}
			a.clearPending = false
		case "n", "N", "<Escape>":
			a.clearPending = false
		}
		return false
	}

	switch e.ID {
	case "q", "<C-c>":
		return true
	case "<Up>", "k":
		if a.table.SelectedRow > 1 {
			a.table.SelectedRow--
		}
	case "<Down>", "j":
		if a.table.SelectedRow < len(a.table.Rows)-1 {
			a.table.SelectedRow++
		}
	case "0":
		if pid, ok := a.selectedPID(); ok {
			a.clearPending = true
			a.clearPID = pid
		}
	default:
		if frac, ok := presetLimits[e.ID]; ok {
			if pid, ok := a.selectedPID(); ok {
				a.commands <- engine.SetLimit{PID: pid, Fraction: frac}
			}
		}
	}
	return false
}

// selectedPID maps the table's selected row back to a pid, accounting
// for the header row at index 0.
func (a *Adapter) selectedPID() (int, bool) {
	idx := a.table.SelectedRow - 1
	if idx < 0 || idx >= len(a.rows) {
		return 0, false
	}
	return a.rows[idx].PID, true
}
