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

import "runtime"

// DefaultNWorkersForHost returns a CPU-scaled worker count for hosts that
// don't pin n-workers explicitly: one worker queue per core, at least 1.
func DefaultNWorkersForHost() int {
	return max(1, runtime.NumCPU())
}

// IsReorderEnabled reports whether the reorder staging path is active.
func IsReorderEnabled(c *Config) bool {
	return c.Reorder.Enabled && c.Reorder.DispatchN > 0
}
