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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestLogSeverity_UnmarshalText_AcceptsKnownValuesCaseInsensitively(t *testing.T) {
	var s LogSeverity
	require.NoError(t, s.UnmarshalText([]byte("warning")))
	assert.Equal(t, WarningLogSeverity, s)
}

func TestLogSeverity_UnmarshalText_RejectsUnknownValue(t *testing.T) {
	var s LogSeverity
	assert.Error(t, s.UnmarshalText([]byte("VERBOSE")))
}

func TestLogSeverity_Rank_OrdersFromTraceToOff(t *testing.T) {
	assert.Less(t, TraceLogSeverity.Rank(), DebugLogSeverity.Rank())
	assert.Less(t, DebugLogSeverity.Rank(), InfoLogSeverity.Rank())
	assert.Less(t, InfoLogSeverity.Rank(), WarningLogSeverity.Rank())
	assert.Less(t, WarningLogSeverity.Rank(), ErrorLogSeverity.Rank())
	assert.Less(t, ErrorLogSeverity.Rank(), OffLogSeverity.Rank())
}

func TestLogSeverity_Rank_UnknownReturnsNegativeOne(t *testing.T) {
	assert.Equal(t, -1, LogSeverity("BOGUS").Rank())
}

func TestLogFormat_UnmarshalText_RejectsUnknownValue(t *testing.T) {
	var f LogFormat
	assert.Error(t, f.UnmarshalText([]byte("xml")))
}

func TestLogFormat_UnmarshalText_AcceptsJSON(t *testing.T) {
	var f LogFormat
	require.NoError(t, f.UnmarshalText([]byte("JSON")))
	assert.Equal(t, JSONLogFormat, f)
}

func TestOpenFlags_UnmarshalText_Empty(t *testing.T) {
	var f OpenFlags
	require.NoError(t, f.UnmarshalText([]byte("")))
	assert.Equal(t, OpenFlags(0), f)
}

func TestOpenFlags_UnmarshalText_SymbolicList(t *testing.T) {
	var f OpenFlags
	require.NoError(t, f.UnmarshalText([]byte("direct,noatime")))
	assert.Equal(t, OpenFlags(unix.O_DIRECT|unix.O_NOATIME), f)
}

func TestOpenFlags_UnmarshalText_NumericMask(t *testing.T) {
	var f OpenFlags
	require.NoError(t, f.UnmarshalText([]byte("0")))
	assert.Equal(t, OpenFlags(0), f)
}

func TestOpenFlags_UnmarshalText_RejectsUnknownToken(t *testing.T) {
	var f OpenFlags
	assert.Error(t, f.UnmarshalText([]byte("bogus")))
}

func TestOpenFlags_String_RoundTripsSymbolicNames(t *testing.T) {
	var f OpenFlags
	require.NoError(t, f.UnmarshalText([]byte("noatime,direct")))
	assert.Equal(t, "direct,noatime", f.String())
}

func TestOpenFlags_String_ZeroIsLiteralZero(t *testing.T) {
	assert.Equal(t, "0", OpenFlags(0).String())
}

func TestValidateConfig_RejectsZeroWorkers(t *testing.T) {
	c := GetDefaultConfig()
	c.Workers.NWorkers = 0
	assert.EqualError(t, ValidateConfig(&c), NWorkersInvalidValueError)
}

func TestValidateConfig_RejectsZeroQueueDepth(t *testing.T) {
	c := GetDefaultConfig()
	c.Workers.QueueDepth = 0
	assert.EqualError(t, ValidateConfig(&c), QueueDepthInvalidValueError)
}

func TestValidateConfig_RejectsReorderEnabledWithZeroDispatchN(t *testing.T) {
	c := GetDefaultConfig()
	c.Reorder.Enabled = true
	c.Reorder.DispatchN = 0
	assert.EqualError(t, ValidateConfig(&c), DispatchNInvalidValueError)
}

func TestValidateConfig_AllowsZeroDispatchNWhenReorderDisabled(t *testing.T) {
	c := GetDefaultConfig()
	c.Reorder.Enabled = false
	c.Reorder.DispatchN = 0
	assert.NoError(t, ValidateConfig(&c))
}

func TestValidateConfig_RejectsNonPositiveMaxFileSize(t *testing.T) {
	c := GetDefaultConfig()
	c.IO.MaxFileSize = 0
	assert.EqualError(t, ValidateConfig(&c), MaxFileSizeInvalidValueError)
}

func TestValidateConfig_RejectsWriteOpenFlag(t *testing.T) {
	c := GetDefaultConfig()
	c.IO.OpenFlags = OpenFlags(unix.O_WRONLY)
	assert.EqualError(t, ValidateConfig(&c), OpenFlagsWriteError)
}

func TestValidateConfig_RejectsUnknownSeverity(t *testing.T) {
	c := GetDefaultConfig()
	c.Logging.Severity = LogSeverity("NOPE")
	assert.Error(t, ValidateConfig(&c))
}

func TestValidateConfig_RejectsUnknownFormat(t *testing.T) {
	c := GetDefaultConfig()
	c.Logging.Format = LogFormat("yaml")
	assert.Error(t, ValidateConfig(&c))
}

func TestValidateConfig_AcceptsDefaultConfig(t *testing.T) {
	c := GetDefaultConfig()
	assert.NoError(t, ValidateConfig(&c))
}

func TestRationalize_ZeroesReorderKnobsWhenDisabled(t *testing.T) {
	c := Config{Reorder: ReorderConfig{Enabled: false, DispatchN: 99, MaxIdleIters: 99}}
	require.NoError(t, Rationalize(&c))
	assert.Equal(t, 0, c.Reorder.DispatchN)
	assert.Equal(t, 0, c.Reorder.MaxIdleIters)
}

func TestRationalize_FillsReorderDefaultsWhenEnabled(t *testing.T) {
	c := Config{Reorder: ReorderConfig{Enabled: true}}
	require.NoError(t, Rationalize(&c))
	assert.Equal(t, DefaultDispatchN, c.Reorder.DispatchN)
	assert.Equal(t, DefaultMaxIdleIters, c.Reorder.MaxIdleIters)
}

func TestRationalize_PreservesExplicitReorderKnobsWhenEnabled(t *testing.T) {
	c := Config{Reorder: ReorderConfig{Enabled: true, DispatchN: 7, MaxIdleIters: 3}}
	require.NoError(t, Rationalize(&c))
	assert.Equal(t, 7, c.Reorder.DispatchN)
	assert.Equal(t, 3, c.Reorder.MaxIdleIters)
}

func TestRationalize_FillsWorkerAndQueueDefaults(t *testing.T) {
	var c Config
	require.NoError(t, Rationalize(&c))
	assert.Equal(t, DefaultNWorkers, c.Workers.NWorkers)
	assert.Equal(t, DefaultQueueDepth, c.Workers.QueueDepth)
	assert.Equal(t, int64(DefaultMaxFileSize), c.IO.MaxFileSize)
}

func TestRationalize_FillsMetricsListenAddrOnlyWhenEnabled(t *testing.T) {
	c := Config{Metrics: MetricsConfig{Enabled: true}}
	require.NoError(t, Rationalize(&c))
	assert.Equal(t, DefaultMetricsListenAddr, c.Metrics.ListenAddr)

	c2 := Config{Metrics: MetricsConfig{Enabled: false}}
	require.NoError(t, Rationalize(&c2))
	assert.Empty(t, c2.Metrics.ListenAddr)
}

func TestDefaultNWorkersForHost_AtLeastOne(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultNWorkersForHost(), 1)
}

func TestIsReorderEnabled_RequiresBothFlagAndPositiveDispatchN(t *testing.T) {
	assert.False(t, IsReorderEnabled(&Config{Reorder: ReorderConfig{Enabled: false, DispatchN: 10}}))
	assert.False(t, IsReorderEnabled(&Config{Reorder: ReorderConfig{Enabled: true, DispatchN: 0}}))
	assert.True(t, IsReorderEnabled(&Config{Reorder: ReorderConfig{Enabled: true, DispatchN: 10}}))
}

func TestConfig_String_MentionsKeyKnobs(t *testing.T) {
	c := GetDefaultConfig()
	s := c.String()
	assert.Contains(t, s, "workers=4")
	assert.Contains(t, s, "metrics=true")
}
