package xsink

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/logpipe/pkg/config/xnode"
)

// spyCollector 记录上报错误的收集器替身。
type spyCollector struct {
	faults []error
}

func (c *spyCollector) Report(err error, _ string) {
	c.faults = append(c.faults, err)
}

// binderConfig 走 NodeBinder 能力的配置。
type binderConfig struct {
	fakeConfig
	bound xnode.Node
}

func (c *binderConfig) BindNode(node xnode.Node) error {
	c.bound = node
	c.Path = node.GetValue("Target", "")
	return nil
}

// invalidConfig 绑定后校验必然失败的配置。
type invalidConfig struct {
	fakeConfig
}

var errBadConfig = errors.New("bad config")

func (c *invalidConfig) Validate() error { return errBadConfig }

func sectionFromYAML(t *testing.T, src string) xnode.Node {
	t.Helper()
	node, err := xnode.NewFromBytes([]byte(src), xnode.FormatYAML)
	require.NoError(t, err)
	return node
}

func TestResolverResolveAll(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("fake.SpyConfig", factoryNamed("spy"))

	section := sectionFromYAML(t, `
Sinks:
  Console: false
  File:
    Kind: fake.SpyConfig
    Path: a.log
  Broken:
    Kind: nope.Missing
    Path: b.log
  Audit:
    Kind: fake.SpyConfig
    Path: c.log
`)

	spy := &spyCollector{}
	set := NewResolver(reg, spy).ResolveAll(section)

	// 排除与失败条目被跳过，存活条目保持声明顺序
	require.Len(t, set, 2)
	assert.Equal(t, "a.log", set[0].IdentityKey())
	assert.Equal(t, "c.log", set[1].IdentityKey())

	// 未知类型恰好上报一条错误
	require.Len(t, spy.faults, 1)
	assert.ErrorIs(t, spy.faults[0], ErrUnknownKind)
}

func TestResolverKeyNameLookup(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("fake.SpyConfig", factoryNamed("spy"))

	// 条目没有 Kind 属性，键名本身当作类型名解析（含后缀补全）
	section := sectionFromYAML(t, `
Sinks:
  Spy:
    Path: keyed.log
`)

	spy := &spyCollector{}
	set := NewResolver(reg, spy).ResolveAll(section)

	require.Len(t, set, 1)
	assert.Equal(t, "keyed.log", set[0].IdentityKey())
	assert.Empty(t, spy.faults)
}

func TestResolverKindTakesPrecedenceOverKey(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("fake.SpyConfig", factoryNamed("spy"))
	reg.Register("fake.OtherConfig", factoryNamed("other"))

	section := sectionFromYAML(t, `
Sinks:
  Other:
    Kind: fake.SpyConfig
    Path: x.log
`)

	set := NewResolver(reg, &spyCollector{}).ResolveAll(section)
	require.Len(t, set, 1)
	assert.Equal(t, "spy", set[0].(*fakeConfig).name)
}

func TestResolverNodeBinderPreferred(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("fake.BinderConfig", func() Config { return &binderConfig{} })

	section := sectionFromYAML(t, `
Sinks:
  Binder:
    Target: bound.log
`)

	set := NewResolver(reg, &spyCollector{}).ResolveAll(section)
	require.Len(t, set, 1)

	cfg := set[0].(*binderConfig)
	assert.Equal(t, "bound.log", cfg.Path)
	require.NotNil(t, cfg.bound)
	assert.Equal(t, "bound.log", cfg.bound.GetValue("Target", ""))
}

func TestResolverValidationFailureSkipsEntry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("fake.InvalidConfig", func() Config { return &invalidConfig{} })
	reg.Register("fake.SpyConfig", factoryNamed("spy"))

	section := sectionFromYAML(t, `
Sinks:
  Invalid:
    Path: bad.log
  Spy:
    Path: good.log
`)

	spy := &spyCollector{}
	set := NewResolver(reg, spy).ResolveAll(section)

	require.Len(t, set, 1)
	assert.Equal(t, "good.log", set[0].IdentityKey())
	require.Len(t, spy.faults, 1)
	assert.ErrorIs(t, spy.faults[0], ErrBindFailed)
	assert.ErrorIs(t, spy.faults[0], errBadConfig)
}

func TestResolverFallbackWhenSinksMissing(t *testing.T) {
	t.Parallel()

	section := sectionFromYAML(t, `
GlobalDefaultFilter: info
`)

	t.Run("有内置默认", func(t *testing.T) {
		t.Parallel()

		reg := NewRegistry()
		reg.RegisterFallback(factoryNamed("builtin"))

		spy := &spyCollector{}
		set := NewResolver(reg, spy).ResolveAll(section)

		require.Len(t, set, 1)
		assert.Equal(t, "builtin", set[0].(*fakeConfig).name)
		assert.Empty(t, spy.faults)
	})

	t.Run("无内置默认", func(t *testing.T) {
		t.Parallel()

		spy := &spyCollector{}
		set := NewResolver(NewRegistry(), spy).ResolveAll(section)

		assert.Empty(t, set)
		require.Len(t, spy.faults, 1)
		assert.ErrorIs(t, spy.faults[0], ErrNoDefault)
	})
}

func TestResolverIsRepeatable(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("fake.SpyConfig", factoryNamed("spy"))

	section := sectionFromYAML(t, `
Sinks:
  Console: false
  Spy:
    Path: again.log
  Broken:
    Kind: nope.Missing
`)

	spy := &spyCollector{}
	r := NewResolver(reg, spy)

	first := r.ResolveAll(section)
	second := r.ResolveAll(section)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].IdentityKey(), second[0].IdentityKey())
	// 每轮解析各上报一次同样的失败
	assert.Len(t, spy.faults, 2)
}
