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
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// LogSeverity represents the logging severity and can accept the following
// values: "TRACE", "DEBUG", "INFO", "WARNING", "ERROR", "OFF".
type LogSeverity string

// Constants for all supported log severities.
const (
	TraceLogSeverity   LogSeverity = "TRACE"
	DebugLogSeverity   LogSeverity = "DEBUG"
	InfoLogSeverity    LogSeverity = "INFO"
	WarningLogSeverity LogSeverity = "WARNING"
	ErrorLogSeverity   LogSeverity = "ERROR"
	OffLogSeverity     LogSeverity = "OFF"
)

var severityRanking = map[LogSeverity]int{
	TraceLogSeverity:   0,
	DebugLogSeverity:   1,
	InfoLogSeverity:    2,
	WarningLogSeverity: 3,
	ErrorLogSeverity:   4,
	OffLogSeverity:     5,
}

func (l *LogSeverity) UnmarshalText(text []byte) error {
	level := LogSeverity(strings.ToUpper(string(text)))
	if _, ok := severityRanking[level]; !ok {
		return fmt.Errorf("invalid log severity level: %s. Must be one of [TRACE, DEBUG, INFO, WARNING, ERROR, OFF]", text)
	}
	*l = level
	return nil
}

// Rank returns the integer representation of the severity rank. Returns -1
// if the severity is unknown; config validation should make that
// unreachable in practice.
func (l LogSeverity) Rank() int {
	if rank, ok := severityRanking[l]; ok {
		return rank
	}
	return -1
}

// LogFormat selects the slog handler used by internal/logger.
type LogFormat string

const (
	TextLogFormat LogFormat = "text"
	JSONLogFormat LogFormat = "json"
)

func (f *LogFormat) UnmarshalText(text []byte) error {
	v := LogFormat(strings.ToLower(string(text)))
	if v != TextLogFormat && v != JSONLogFormat {
		return fmt.Errorf("invalid log format: %s. Must be one of [text, json]", text)
	}
	*f = v
	return nil
}

// OpenFlags holds the extra bits OR'd into every reader-side open(2) call,
// spec.md §6's `open_flags` parameter. O_RDONLY is always implied and never
// stored here; O_WRONLY is rejected by Validate.
type OpenFlags int

// namedOpenFlags are the flag tokens accepted in the symbolic form the CLI
// takes, e.g. "direct,noatime".
var namedOpenFlags = map[string]int{
	"direct":  unix.O_DIRECT,
	"sync":    unix.O_SYNC,
	"noatime": unix.O_NOATIME,
	"dsync":   unix.O_DSYNC,
}

// UnmarshalText accepts either a comma-separated list of symbolic flag names
// ("direct,noatime") or a numeric octal/decimal mask.
func (f *OpenFlags) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*f = 0
		return nil
	}
	if v, err := strconv.ParseInt(s, 0, 32); err == nil {
		*f = OpenFlags(v)
		return nil
	}
	var mask int
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(strings.ToLower(tok))
		if tok == "" {
			continue
		}
		bit, ok := namedOpenFlags[tok]
		if !ok {
			return fmt.Errorf("invalid open-flag: %s", tok)
		}
		mask |= bit
	}
	*f = OpenFlags(mask)
	return nil
}

func (f OpenFlags) String() string {
	var names []string
	for name, bit := range namedOpenFlags {
		if int(f)&bit != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "0"
	}
	slices.Sort(names)
	return strings.Join(names, ",")
}
