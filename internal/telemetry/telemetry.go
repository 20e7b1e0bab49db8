// Package telemetry exports cpulimitd's registry snapshots as
// Prometheus metrics. It is an ambient observability surface, not part
// of THE CORE: the engine never imports this package, it only feeds it
// snapshots.
package telemetry

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baikal/cpulimitd/internal/registry"
)

// Exporter owns the gauge vectors that mirror the most recent
// snapshot. It is safe for a single goroutine to call Observe
// repeatedly; the underlying GaugeVecs are themselves
// concurrency-safe, matching how client_golang is used elsewhere in
// this corpus.
type Exporter struct {
	cpuUsage   *prometheus.GaugeVec
	cpuLimit   *prometheus.GaugeVec
	sleepTicks *prometheus.GaugeVec
	processes  prometheus.Gauge

	registry *prometheus.Registry
	known    map[int]struct{}
}

// NewExporter constructs an Exporter with its own private Prometheus
// registry (so multiple Exporters never collide on default-registry
// metric names in the same binary).
func NewExporter() *Exporter {
	e := &Exporter{
		cpuUsage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cpulimitd_process_cpu_usage_cores",
			Help: "Smoothed CPU utilization of a tracked process, in fractional cores.",
		}, []string{"pid", "user", "command"}),
		cpuLimit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cpulimitd_process_cpu_limit_cores",
			Help: "Configured CPU limit of a tracked process, in fractional cores. Absent series means unlimited.",
		}, []string{"pid", "user", "command"}),
		sleepTicks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cpulimitd_process_sleep_ticks",
			Help: "Remaining control ticks a process will be held in STOP.",
		}, []string{"pid", "user", "command"}),
		processes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cpulimitd_tracked_processes",
			Help: "Number of processes currently tracked by the registry.",
		}),
		registry: prometheus.NewRegistry(),
		known:    make(map[int]struct{}),
	}
	e.registry.MustRegister(e.cpuUsage, e.cpuLimit, e.sleepTicks, e.processes)
	return e
}

// Observe refreshes every gauge from snap. Processes that left the
// snapshot since the previous call have their label series deleted so
// /metrics doesn't accumulate stale series for pids that no longer
// exist.
func (e *Exporter) Observe(snap registry.Snapshot) {
	seen := make(map[int]struct{}, len(snap.Processes))
	for _, p := range snap.Processes {
		seen[p.PID] = struct{}{}
		labels := prometheus.Labels{
			"pid":     strconv.Itoa(p.PID),
			"user":    p.User,
			"command": p.Command,
		}
		e.cpuUsage.With(labels).Set(p.CPUUsage)
		if p.Limit.Present {
			e.cpuLimit.With(labels).Set(p.Limit.Value)
		} else {
			e.cpuLimit.Delete(labels)
		}
		e.sleepTicks.With(labels).Set(float64(p.SleepTicks))
	}
	e.processes.Set(float64(len(snap.Processes)))

	for pid := range e.known {
		if _, ok := seen[pid]; !ok {
			e.deletePID(pid)
		}
	}
	e.known = seen
}

func (e *Exporter) deletePID(pid int) {
	matcher := prometheus.Labels{"pid": strconv.Itoa(pid)}
	e.cpuUsage.DeletePartialMatch(matcher)
	e.cpuLimit.DeletePartialMatch(matcher)
	e.sleepTicks.DeletePartialMatch(matcher)
}

// Handler returns the HTTP handler to mount at /metrics.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
