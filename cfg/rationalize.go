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

// Rationalize updates config fields based on the values of other fields,
// applying derived defaults before Validate runs.
func Rationalize(c *Config) error {
	if !c.Reorder.Enabled {
		// The idle-drain and dispatch thresholds are meaningless when the
		// reorder path never stages anything; zeroing them makes the
		// config's String() form unambiguous about what's actually active.
		c.Reorder.DispatchN = 0
		c.Reorder.MaxIdleIters = 0
	} else {
		if c.Reorder.DispatchN <= 0 {
			c.Reorder.DispatchN = DefaultDispatchN
		}
		if c.Reorder.MaxIdleIters <= 0 {
			c.Reorder.MaxIdleIters = DefaultMaxIdleIters
		}
	}

	if c.Workers.NWorkers <= 0 {
		c.Workers.NWorkers = DefaultNWorkers
	}
	if c.Workers.QueueDepth <= 0 {
		c.Workers.QueueDepth = DefaultQueueDepth
	}
	if c.IO.MaxFileSize == 0 {
		c.IO.MaxFileSize = DefaultMaxFileSize
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = DefaultMetricsListenAddr
	}

	return nil
}
