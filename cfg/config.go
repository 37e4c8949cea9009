// Copyright 2025 The Ringload Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for one loader process. Every
// Configuration Parameter from spec.md §6 has a field here; the rest are
// ambient knobs (logging, metrics, debug) the loader needs to run as a
// long-lived daemon.
type Config struct {
	Workers WorkersConfig `yaml:"workers"`

	Reorder ReorderConfig `yaml:"reorder"`

	IO IOConfig `yaml:"io"`

	Logging LoggingConfig `yaml:"logging"`

	Metrics MetricsConfig `yaml:"metrics"`

	Debug DebugConfig `yaml:"debug"`
}

// WorkersConfig sizes the per-worker queues.
type WorkersConfig struct {
	// NWorkers is the number of independent worker queues the loader owns.
	NWorkers int `yaml:"n-workers"`

	// QueueDepth is the number of entries per worker queue.
	QueueDepth int `yaml:"queue-depth"`
}

// ReorderConfig controls the optional physical-block-address batching path
// (spec.md §4.6).
type ReorderConfig struct {
	// Enabled turns on the reorder staging path. When false, the reader
	// submits every ready entry directly, in round-robin order.
	Enabled bool `yaml:"enabled"`

	// DispatchN is the batch trigger size.
	DispatchN int `yaml:"dispatch-n"`

	// MaxIdleIters is the idle-drain threshold per worker.
	MaxIdleIters int `yaml:"max-idle-iters"`
}

// IOConfig controls the reader's open/read behavior.
type IOConfig struct {
	// MaxFileSize is the advisory upper bound on a single read, in bytes.
	// This implementation treats it as a hard bound (see SPEC_FULL.md §12):
	// a rounded size that exceeds it is a setup failure.
	MaxFileSize int64 `yaml:"max-file-size"`

	// OpenFlags is OR'd into every open(2) call alongside O_RDONLY.
	OpenFlags OpenFlags `yaml:"open-flags"`
}

// LoggingConfig controls internal/logger.
type LoggingConfig struct {
	Severity LogSeverity `yaml:"severity"`

	Format LogFormat `yaml:"format"`
}

// MetricsConfig controls the Prometheus exporter in internal/metrics.
type MetricsConfig struct {
	// Enabled turns the metrics HTTP listener on.
	Enabled bool `yaml:"enabled"`

	// ListenAddr is the address the Prometheus exporter listens on, e.g.
	// ":9400".
	ListenAddr string `yaml:"listen-addr"`
}

// DebugConfig holds knobs that only matter during development or
// diagnosis.
type DebugConfig struct {
	// ExitOnInvariantViolation is bound from the
	// debug-exit-on-invariant-violation flag, the same name as the teacher's
	// own flag. No code path reads it and the loader does not check its
	// invariants at run time, so setting it changes no behavior.
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation"`

	// LBAPatternFile, if non-empty, makes every drained reorder batch
	// append an ASCII rendering of its physical-block access pattern to
	// this path (see internal/reorder.Visualizer). Empty disables it.
	LBAPatternFile string `yaml:"lba-pattern-file"`
}

// BindFlags registers every Config field as a pflag and binds it into
// viper under the matching dotted key, the same wiring the teacher's
// generated cfg package uses.
func BindFlags(flagSet *pflag.FlagSet) error {
	var err error
	bind := func(flagName, viperKey string) {
		if err != nil {
			return
		}
		err = viper.BindPFlag(viperKey, flagSet.Lookup(flagName))
	}

	flagSet.Int("n-workers", DefaultNWorkers, "Number of independent worker queues.")
	flagSet.Int("queue-depth", DefaultQueueDepth, "Entries per worker queue.")
	flagSet.Bool("reorder-enabled", false, "Stage ready entries and submit them sorted by physical block address.")
	flagSet.Int("dispatch-n", DefaultDispatchN, "Reorder batch trigger size.")
	flagSet.Int("max-idle-iters", DefaultMaxIdleIters, "Idle-drain threshold per worker, in reader iterations.")
	flagSet.Int64("max-file-size", DefaultMaxFileSize, "Advisory upper bound on a single read, in bytes.")
	flagSet.String("open-flags", "", "Comma-separated open(2) flags OR'd into every read (e.g. direct,noatime).")
	flagSet.String("log-severity", string(InfoLogSeverity), "Logging severity: TRACE, DEBUG, INFO, WARNING, ERROR, OFF.")
	flagSet.String("log-format", string(TextLogFormat), "Logging format: text or json.")
	flagSet.Bool("metrics-enabled", true, "Serve Prometheus metrics.")
	flagSet.String("metrics-listen-addr", DefaultMetricsListenAddr, "Address the Prometheus exporter listens on.")
	flagSet.Bool("debug-exit-on-invariant-violation", false, "Stored in the config; no code path reads it.")
	flagSet.String("debug-lba-pattern-file", "", "If set, append an ASCII graph of each drained reorder batch's physical-block access pattern to this file.")

	bind("n-workers", "workers.n-workers")
	bind("queue-depth", "workers.queue-depth")
	bind("reorder-enabled", "reorder.enabled")
	bind("dispatch-n", "reorder.dispatch-n")
	bind("max-idle-iters", "reorder.max-idle-iters")
	bind("max-file-size", "io.max-file-size")
	bind("open-flags", "io.open-flags")
	bind("log-severity", "logging.severity")
	bind("log-format", "logging.format")
	bind("metrics-enabled", "metrics.enabled")
	bind("metrics-listen-addr", "metrics.listen-addr")
	bind("debug-exit-on-invariant-violation", "debug.exit-on-invariant-violation")
	bind("debug-lba-pattern-file", "debug.lba-pattern-file")
	return err
}
