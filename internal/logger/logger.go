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

// Package logger wraps log/slog with the severity levels and package-level
// convenience functions the rest of this repo uses for diagnostics:
// TRACE (below slog's own lowest level), DEBUG, INFO, WARNING, ERROR.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/ringload/ringload/cfg"
)

// Severity levels. slog.LevelDebug is 0's neighbor; TRACE sits one rank
// below it so it can be filtered independently of DEBUG.
const (
	LevelTrace   = slog.Level(-8)
	LevelDebug   = slog.LevelDebug
	LevelInfo    = slog.LevelInfo
	LevelWarning = slog.LevelWarn
	LevelError   = slog.LevelError
)

var levelNames = map[slog.Leveler]string{
	LevelTrace:   "TRACE",
	LevelWarning: "WARNING",
}

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(newLogger(os.Stderr, LevelInfo, cfg.TextLogFormat))
}

func newLogger(w io.Writer, level slog.Level, format cfg.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				a.Key = "severity"
				if name, ok := levelNames[a.Value.Any().(slog.Level)]; ok {
					a.Value = slog.StringValue(name)
				}
			}
			return a
		},
	}
	var h slog.Handler
	if format == cfg.JSONLogFormat {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// severityLevel maps a cfg.LogSeverity to the slog.Level that admits it and
// everything more severe.
func severityLevel(s cfg.LogSeverity) slog.Level {
	switch s {
	case cfg.TraceLogSeverity:
		return LevelTrace
	case cfg.DebugLogSeverity:
		return LevelDebug
	case cfg.WarningLogSeverity:
		return LevelWarning
	case cfg.ErrorLogSeverity:
		return LevelError
	case cfg.OffLogSeverity:
		return slog.Level(1 << 20)
	default:
		return LevelInfo
	}
}

// UpdateDefaultLogger replaces the package-level logger used by
// Tracef/Debugf/Infof/Warnf/Errorf, writing to w at the given severity and
// format. cmd/serve.go calls this once, right after config resolution.
func UpdateDefaultLogger(w io.Writer, severity cfg.LogSeverity, format cfg.LogFormat) {
	defaultLogger.Store(newLogger(w, severityLevel(severity), format))
}

func log(ctx context.Context, level slog.Level, format string, args ...any) {
	l := defaultLogger.Load()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, fmt.Sprintf(format, args...))
}

func Tracef(format string, args ...any) { log(context.Background(), LevelTrace, format, args...) }
func Debugf(format string, args ...any) { log(context.Background(), LevelDebug, format, args...) }
func Infof(format string, args ...any)  { log(context.Background(), LevelInfo, format, args...) }
func Warnf(format string, args ...any)  { log(context.Background(), LevelWarning, format, args...) }
func Errorf(format string, args ...any) { log(context.Background(), LevelError, format, args...) }

// With returns a derived package logger ready for structured attributes,
// e.g. logger.With("worker", id).Infof(...), matching the teacher's
// severity-prefixed-logger pattern but using slog's native attribute model.
func With(args ...any) *slog.Logger {
	return defaultLogger.Load().With(args...)
}
