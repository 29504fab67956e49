package xpipe

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/logpipe/pkg/config/xnode"
	"github.com/omeyang/logpipe/pkg/sink/xsink"
)

// ctrlConfig 控制器测试用的可绑定配置。
type ctrlConfig struct {
	Path string `koanf:"Path"`
}

func (c *ctrlConfig) IdentityKey() string { return c.Path }
func (c *ctrlConfig) NewSink() xsink.Sink { return &stubSink{} }

func ctrlRegistry() *xsink.Registry {
	reg := xsink.NewRegistry()
	reg.Register("fake.SpyConfig", func() xsink.Config { return &ctrlConfig{} })
	return reg
}

func ctrlSection(t *testing.T, src string) xnode.Node {
	t.Helper()
	node, err := xnode.NewFromBytes([]byte(src), xnode.FormatYAML)
	require.NoError(t, err)
	return node
}

func newTestController(t *testing.T, target Target, opts ...ControllerOption) *Controller {
	t.Helper()

	spy := &spyCollector{}
	base := []ControllerOption{
		WithControllerCollector(spy),
		WithResolver(xsink.NewResolver(ctrlRegistry(), spy)),
	}
	c, err := NewController(target, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(c.Dispose)
	return c
}

func TestControllerInitialize(t *testing.T) {
	t.Cleanup(resetActiveFilter)

	target := &recordTarget{}
	registrar := &spyRegistrar{}
	c := newTestController(t, target, WithRegistrar(registrar))

	section := ctrlSection(t, `
GlobalDefaultFilter: "warn:debug"
LogUnhandledExceptions: false
Sinks:
  Spy:
    Path: a.log
`)
	require.NoError(t, c.Initialize(section))

	// 过滤阈值最先生效
	assert.Equal(t, Filter{Group: xsink.LevelWarn, Line: xsink.LevelDebug}, ActiveFilter())

	// 首次应用是阻塞式的
	target.mu.Lock()
	require.Len(t, target.applies, 1)
	assert.True(t, target.blocking[0])
	require.Len(t, target.applies[0], 1)
	assert.Equal(t, "a.log", target.applies[0][0].IdentityKey())
	target.mu.Unlock()

	// 开关按配置下发，缺失的键用默认值 true
	unhandled, unobserved := registrar.states()
	assert.Equal(t, []bool{false}, unhandled)
	assert.Equal(t, []bool{true}, unobserved)
}

func TestControllerLifecycleGuards(t *testing.T) {
	t.Cleanup(resetActiveFilter)

	t.Run("缺 target", func(t *testing.T) {
		_, err := NewController(nil)
		assert.ErrorIs(t, err, ErrNilTarget)
	})

	t.Run("重复初始化", func(t *testing.T) {
		c := newTestController(t, &recordTarget{})
		section := ctrlSection(t, `Sinks: {Spy: {Path: a.log}}`)

		require.NoError(t, c.Initialize(section))
		assert.ErrorIs(t, c.Initialize(section), ErrAlreadyInitialized)
	})

	t.Run("销毁后初始化", func(t *testing.T) {
		c := newTestController(t, &recordTarget{})
		c.Dispose()
		err := c.Initialize(ctrlSection(t, `Sinks: {Spy: {Path: a.log}}`))
		assert.ErrorIs(t, err, ErrDisposed)
	})
}

func TestControllerInitializeFatalAllowsRetry(t *testing.T) {
	t.Cleanup(resetActiveFilter)

	target := &recordTarget{applyErr: ErrNoOperationalSink}
	c := newTestController(t, target)
	section := ctrlSection(t, `Sinks: {Spy: {Path: a.log}}`)

	assert.ErrorIs(t, c.Initialize(section), ErrNoOperationalSink)

	// 首次应用致命不改变状态，修复环境后可重试
	target.mu.Lock()
	target.applyErr = nil
	target.mu.Unlock()
	assert.NoError(t, c.Initialize(section))
}

func TestControllerFilterDiffAnnouncement(t *testing.T) {
	t.Cleanup(resetActiveFilter)

	target := &recordTarget{}
	c := newTestController(t, target)
	require.NoError(t, c.Initialize(ctrlSection(t, `
GlobalDefaultFilter: info
Sinks: {Spy: {Path: a.log}}
`)))

	// 第一次变更：恰好一条 Info 通告
	c.onChange(ctrlSection(t, `
GlobalDefaultFilter: error
Sinks: {Spy: {Path: a.log}}
`))
	records := target.selfRecords()
	require.Len(t, records, 1)
	assert.Equal(t, xsink.LevelInfo, records[0].level)
	assert.Contains(t, records[0].message, "INFO:INFO -> ERROR:ERROR")

	// 相同阈值再次投递：不再通告
	c.onChange(ctrlSection(t, `
GlobalDefaultFilter: error
Sinks: {Spy: {Path: b.log}}
`))
	assert.Len(t, target.selfRecords(), 1)

	// 热更新是 fire-and-forget
	target.mu.Lock()
	require.Len(t, target.blocking, 3)
	assert.False(t, target.blocking[1])
	assert.False(t, target.blocking[2])
	target.mu.Unlock()
}

func TestControllerInvalidFilterKeepsCurrent(t *testing.T) {
	t.Cleanup(resetActiveFilter)

	spy := &spyCollector{}
	target := &recordTarget{}
	c, err := NewController(target,
		WithControllerCollector(spy),
		WithResolver(xsink.NewResolver(ctrlRegistry(), spy)),
	)
	require.NoError(t, err)
	t.Cleanup(c.Dispose)

	require.NoError(t, c.Initialize(ctrlSection(t, `
GlobalDefaultFilter: warn
Sinks: {Spy: {Path: a.log}}
`)))

	c.onChange(ctrlSection(t, `
GlobalDefaultFilter: loud
Sinks: {Spy: {Path: a.log}}
`))

	// 非法表达式：上报并保持现行阈值
	assert.Equal(t, Filter{Group: xsink.LevelWarn, Line: xsink.LevelWarn}, ActiveFilter())
	faults := spy.snapshot()
	require.NotEmpty(t, faults)
	assert.ErrorIs(t, faults[len(faults)-1], ErrFilterParse)
}

func TestControllerDeprecatedBridgeKey(t *testing.T) {
	t.Cleanup(resetActiveFilter)

	target := &recordTarget{}
	bridge := NewBridge(&entryRecorder{})
	c := newTestController(t, target, WithBridge(bridge))

	require.NoError(t, c.Initialize(ctrlSection(t, `
HandleAspNetLogs: "false"
Sinks: {Spy: {Path: a.log}}
`)))

	assert.False(t, bridge.Enabled())
	records := target.selfRecords()
	require.Len(t, records, 1)
	assert.Equal(t, xsink.LevelWarn, records[0].level)
	assert.Contains(t, records[0].message, "deprecated")

	// 每次遇到旧键都会再次告警
	c.onChange(ctrlSection(t, `
HandleAspNetLogs: "false"
Sinks: {Spy: {Path: a.log}}
`))
	assert.Len(t, target.selfRecords(), 2)
}

func TestControllerNewKeyShadowsDeprecated(t *testing.T) {
	t.Cleanup(resetActiveFilter)

	target := &recordTarget{}
	bridge := NewBridge(&entryRecorder{})
	c := newTestController(t, target, WithBridge(bridge))
	t.Cleanup(bridge.Disable)

	require.NoError(t, c.Initialize(ctrlSection(t, `
HandleDotNetLogs: "false"
HandleAspNetLogs: "true"
Sinks: {Spy: {Path: a.log}}
`)))

	// 新键在场时旧键被忽略，也没有弃用告警
	assert.False(t, bridge.Enabled())
	assert.Empty(t, target.selfRecords())
}

func TestControllerDispose(t *testing.T) {
	t.Cleanup(resetActiveFilter)

	target := &recordTarget{}
	registrar := &spyRegistrar{}
	c := newTestController(t, target, WithRegistrar(registrar))
	require.NoError(t, c.Initialize(ctrlSection(t, `Sinks: {Spy: {Path: a.log}}`)))

	c.Dispose()
	c.Dispose() // 幂等

	assert.Equal(t, 1, target.disposeCount())
	unhandled, unobserved := registrar.states()
	assert.Equal(t, false, unhandled[len(unhandled)-1])
	assert.Equal(t, false, unobserved[len(unobserved)-1])

	// 销毁后迟到的变更投递被忽略
	c.onChange(ctrlSection(t, `Sinks: {Spy: {Path: b.log}}`))
	assert.Equal(t, 1, target.applyCount())
}

func TestControllerHotReloadFromFile(t *testing.T) {
	t.Cleanup(resetActiveFilter)

	dir := t.TempDir()
	path := filepath.Join(dir, "logging.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
GlobalDefaultFilter: info
Sinks:
  Spy:
    Path: a.log
`), 0o640))

	root, err := xnode.New(path, xnode.WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	target := &recordTarget{}
	c := newTestController(t, target)
	require.NoError(t, c.Initialize(root))
	require.Equal(t, 1, target.applyCount())

	// 第一次热更新
	require.NoError(t, os.WriteFile(path, []byte(`
GlobalDefaultFilter: error
Sinks:
  Spy:
    Path: a.log
`), 0o640))
	require.Eventually(t, func() bool {
		return target.applyCount() >= 2
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, Filter{Group: xsink.LevelError, Line: xsink.LevelError}, ActiveFilter())

	// 订阅被重新武装：第二次写入同样被捕获
	require.NoError(t, os.WriteFile(path, []byte(`
GlobalDefaultFilter: error
Sinks:
  Spy:
    Path: b.log
`), 0o640))
	require.Eventually(t, func() bool {
		return target.applyCount() >= 3
	}, 5*time.Second, 20*time.Millisecond)

	target.mu.Lock()
	last := target.applies[len(target.applies)-1]
	target.mu.Unlock()
	require.Len(t, last, 1)
	assert.Equal(t, "b.log", last[0].IdentityKey())
}
