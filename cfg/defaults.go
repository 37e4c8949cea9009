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

// Default values bound as pflag defaults in BindFlags and used directly by
// GetDefaultConfig for callers that construct a Config without going
// through the CLI (e.g. tests, the worker-facing library surface).
const (
	DefaultNWorkers    = 4
	DefaultQueueDepth  = 64
	DefaultDispatchN   = 32
	DefaultMaxIdleIters = 16
	// DefaultMaxFileSize is an 8 GiB advisory ceiling; spec.md §6 leaves the
	// exact value to the implementation.
	DefaultMaxFileSize      = 8 << 30
	DefaultMetricsListenAddr = ":9400"
)

// GetDefaultConfig returns the configuration used during startup before any
// flags or config file have been parsed, mirroring the teacher's
// GetDefaultLoggingConfig entry point.
func GetDefaultConfig() Config {
	return Config{
		Workers: WorkersConfig{
			NWorkers:   DefaultNWorkers,
			QueueDepth: DefaultQueueDepth,
		},
		Reorder: ReorderConfig{
			DispatchN:    DefaultDispatchN,
			MaxIdleIters: DefaultMaxIdleIters,
		},
		IO: IOConfig{
			MaxFileSize: DefaultMaxFileSize,
		},
		Logging: LoggingConfig{
			Severity: InfoLogSeverity,
			Format:   TextLogFormat,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: DefaultMetricsListenAddr,
		},
	}
}
