package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/baikal/cpulimitd/internal/engine"
	"github.com/baikal/cpulimitd/internal/registry"
	"github.com/baikal/cpulimitd/internal/telemetry"
	"github.com/baikal/cpulimitd/internal/ui"
)

func runWatch(flags engineFlags, prometheusAddr string) error {
	h, err := engine.Start(flags.toConfig())
	if err != nil {
		return fmt.Errorf("cpulimitd: start engine: %w", err)
	}
	defer h.Close()

	go pumpStdinCommands(os.Stdin, h.Commands())

	uiSnapshots := make(chan registry.Snapshot, 4)
	go fanOutSnapshots(h.Snapshots(), uiSnapshots, prometheusAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	adapter := ui.NewAdapter(h.Commands(), uiSnapshots)
	stop := make(chan struct{})
	go func() {
		<-sigCh
		close(stop)
	}()

	return adapter.Run(stop)
}

// fanOutSnapshots reads every snapshot exactly once and republishes it
// to the termui adapter, optionally also feeding a Prometheus exporter
// if prometheusAddr is set. It exits when src closes.
func fanOutSnapshots(src <-chan registry.Snapshot, dst chan<- registry.Snapshot, prometheusAddr string) {
	defer close(dst)

	var exporter *telemetry.Exporter
	if prometheusAddr != "" {
		exporter = telemetry.NewExporter()
		go serveMetrics(prometheusAddr, exporter)
	}

	for snap := range src {
		if exporter != nil {
			exporter.Observe(snap)
		}
		select {
		case dst <- snap:
		default:
			// ui is behind; drop the oldest queued snapshot in favor
			// of the freshest one, same policy as the engine's own
			// publish().
			select {
			case <-dst:
			default:
			}
			dst <- snap
		}
	}
}

func serveMetrics(addr string, exporter *telemetry.Exporter) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("cpulimitd: prometheus server: %v", err)
	}
}
