// cpulimitd — a per-process CPU usage limiter for Linux.
//
// It watches processes through procfs, estimates their CPU utilization
// with an exponentially-smoothed sampler, and enforces a user-chosen
// upper bound on selected processes by pausing and resuming them with
// SIGSTOP/SIGCONT.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/baikal/cpulimitd/internal/engine"
)

var version = "0.1.0"

// engineFlags collects the tunables exposed as configuration, shared
// by every subcommand that starts an engine.
type engineFlags struct {
	procRoot   string
	sysRoot    string
	passwdPath string

	discoveryPeriod   time.Duration
	controlPeriod     time.Duration
	alpha             float64
	minSampleInterval time.Duration
}

func (f engineFlags) toConfig() engine.Config {
	return engine.Config{
		ProcRoot:          f.procRoot,
		SysRoot:           f.sysRoot,
		PasswdPath:        f.passwdPath,
		DiscoveryPeriod:   f.discoveryPeriod,
		ControlPeriod:     f.controlPeriod,
		Alpha:             f.alpha,
		MinSampleInterval: f.minSampleInterval,
	}
}

func main() {
	var flags engineFlags

	rootCmd := &cobra.Command{
		Use:     "cpulimitd",
		Short:   "Per-process CPU usage limiter",
		Version: version,
		Long: `cpulimitd observes Linux processes through procfs, estimates each
process's CPU utilization with an exponentially-smoothed sampler, and
enforces a user-chosen upper bound on selected processes by pausing and
resuming them with SIGSTOP/SIGCONT. It is an approximate duty-cycle
throttle: over each control window a limited process runs for at most
its configured fraction of wall-clock CPU time.`,
	}

	rootCmd.PersistentFlags().StringVar(&flags.procRoot, "proc-root", "/proc", "procfs mount point")
	rootCmd.PersistentFlags().StringVar(&flags.sysRoot, "sys-root", "/sys", "sysfs mount point")
	rootCmd.PersistentFlags().StringVar(&flags.passwdPath, "passwd", "/etc/passwd", "user database path")
	rootCmd.PersistentFlags().DurationVar(&flags.discoveryPeriod, "discovery-period", time.Second, "process discovery interval")
	rootCmd.PersistentFlags().DurationVar(&flags.controlPeriod, "control-period", 25*time.Millisecond, "duty-cycle control interval")
	rootCmd.PersistentFlags().Float64Var(&flags.alpha, "alpha", engine.DefaultAlpha, "IIR smoothing factor for the utilization estimator")
	rootCmd.PersistentFlags().DurationVar(&flags.minSampleInterval, "min-sample-interval", engine.DefaultMinSampleInterval, "minimum wall-clock spacing between utilization samples")

	var watchPrometheusAddr string
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the interactive termui dashboard (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(flags, watchPrometheusAddr)
		},
	}
	watchCmd.Flags().StringVar(&watchPrometheusAddr, "prometheus", "", "address to serve /metrics on, e.g. :9090 (disabled if empty)")

	var headlessInterval time.Duration
	var headlessPrometheusAddr string
	headlessCmd := &cobra.Command{
		Use:   "headless",
		Short: "Print JSON-encoded snapshots to stdout on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeadless(flags, headlessInterval, headlessPrometheusAddr)
		},
	}
	headlessCmd.Flags().DurationVar(&headlessInterval, "interval", time.Second, "snapshot print interval")
	headlessCmd.Flags().StringVar(&headlessPrometheusAddr, "prometheus", "", "address to serve /metrics on, e.g. :9090 (disabled if empty)")

	rootCmd.AddCommand(watchCmd, headlessCmd)
	rootCmd.RunE = watchCmd.RunE // `cpulimitd` with no subcommand behaves like `cpulimitd watch`

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
