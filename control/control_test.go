// control/control_test.go
// Author: momentics <momentics@gmail.com>

package control

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AddBytesIn(10)
		m.AddBytesOut(10)
		m.IncFramesIn()
		m.IncFramesOut()
		m.IncChannelsOpened()
		m.IncChannelsClosed("normal")
		m.IncFramingErrors()
		m.IncPartialWrites()
	})
}

func TestMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "hioload")
	m.AddBytesIn(7)
	m.AddBytesIn(3)
	m.IncChannelsOpened()
	m.IncChannelsOpened()
	m.IncChannelsClosed("framing")
	m.IncPartialWrites()

	assert.Equal(t, 10.0, testutil.ToFloat64(m.bytesIn))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.channelsOpen))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.channelsClosed.WithLabelValues("framing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.partialWrites))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	RegisterPlatformProbes(dp)
	dp.RegisterProbe("answer", func() any { return 42 })
	state := dp.DumpState()
	assert.Equal(t, 42, state["answer"])
	assert.Contains(t, state, "platform.cpus")

	var out bytes.Buffer
	dp.LogState(slog.New(slog.NewTextHandler(&out, nil)))
	assert.Contains(t, out.String(), "name=answer value=42")

	dp.UnregisterProbe("answer")
	assert.NotContains(t, dp.DumpState(), "answer")
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, closer, err := NewLogger(LoggingConfig{Level: "WARN", Format: "json", Output: path})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	require.NoError(t, closer.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"shown"`)
	assert.NotContains(t, string(data), "hidden")

	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))

	_, _, err = NewLogger(LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}
