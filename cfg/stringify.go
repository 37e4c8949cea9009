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

import "fmt"

// String renders a one-line summary of the resolved config, logged once at
// startup so an operator can see what a given process run actually does
// without reading the full YAML.
func (c Config) String() string {
	return fmt.Sprintf(
		"workers=%d queue-depth=%d reorder=%t dispatch-n=%d max-idle-iters=%d max-file-size=%d open-flags=%s severity=%s format=%s metrics=%t@%s",
		c.Workers.NWorkers, c.Workers.QueueDepth,
		c.Reorder.Enabled, c.Reorder.DispatchN, c.Reorder.MaxIdleIters,
		c.IO.MaxFileSize, c.IO.OpenFlags,
		c.Logging.Severity, c.Logging.Format,
		c.Metrics.Enabled, c.Metrics.ListenAddr,
	)
}
