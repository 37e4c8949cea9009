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
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	NWorkersInvalidValueError   = "n-workers must be at least 1"
	QueueDepthInvalidValueError = "queue-depth must be at least 1"
	DispatchNInvalidValueError  = "dispatch-n must be at least 1 when reorder is enabled"
	MaxFileSizeInvalidValueError = "max-file-size must be positive"
	OpenFlagsWriteError         = "open-flags must not include O_WRONLY; the reader never writes"
)

// ValidateConfig returns a non-nil error if the config is self-contradictory
// or out of range. Call after Rationalize.
func ValidateConfig(c *Config) error {
	if c.Workers.NWorkers < 1 {
		return fmt.Errorf(NWorkersInvalidValueError)
	}
	if c.Workers.QueueDepth < 1 {
		return fmt.Errorf(QueueDepthInvalidValueError)
	}
	if c.Reorder.Enabled && c.Reorder.DispatchN < 1 {
		return fmt.Errorf(DispatchNInvalidValueError)
	}
	if c.IO.MaxFileSize <= 0 {
		return fmt.Errorf(MaxFileSizeInvalidValueError)
	}
	if int(c.IO.OpenFlags)&unix.O_WRONLY != 0 {
		return fmt.Errorf(OpenFlagsWriteError)
	}
	if _, ok := severityRanking[c.Logging.Severity]; !ok {
		return fmt.Errorf("invalid logging.severity: %s", c.Logging.Severity)
	}
	if c.Logging.Format != TextLogFormat && c.Logging.Format != JSONLogFormat {
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}
	return nil
}
