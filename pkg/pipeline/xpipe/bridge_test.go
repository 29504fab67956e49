package xpipe

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/logpipe/pkg/sink/xsink"
)

func TestBridgeTeesHostRecords(t *testing.T) {
	// 接管进程默认 logger，不能并行
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	t.Cleanup(resetActiveFilter)

	rec := &entryRecorder{}
	bridge := NewBridge(rec)

	bridge.Enable()
	bridge.Enable() // 幂等
	assert.True(t, bridge.Enabled())

	slog.Info("cache warmed", "keys", 42)

	entries := rec.snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, xsink.LevelInfo, entries[0].Level)
	assert.Equal(t, "host", entries[0].Group)
	assert.Equal(t, "cache warmed keys=42", entries[0].Message)

	// 低于行级阈值的宿主记录不被桥接
	slog.Debug("noise")
	assert.Len(t, rec.snapshot(), 1)

	bridge.Disable()
	bridge.Disable() // 幂等
	assert.False(t, bridge.Enabled())

	slog.Info("after disable")
	assert.Len(t, rec.snapshot(), 1)
	assert.Same(t, prev, slog.Default())
}

func TestBridgeCarriesAttrsAndGroups(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	t.Cleanup(resetActiveFilter)

	rec := &entryRecorder{}
	bridge := NewBridge(rec)
	bridge.Enable()
	t.Cleanup(bridge.Disable)

	logger := slog.Default().With("svc", "api").WithGroup("db")
	logger.Warn("slow query", "ms", 120)

	entries := rec.snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, xsink.LevelWarn, entries[0].Level)
	assert.Equal(t, "host.db", entries[0].Group)
	assert.Equal(t, "slow query svc=api ms=120", entries[0].Message)
}
