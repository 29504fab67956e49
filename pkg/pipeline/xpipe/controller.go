package xpipe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/omeyang/logpipe/pkg/config/xnode"
	"github.com/omeyang/logpipe/pkg/sink/xsink"
)

// 配置节上控制器消费的键名。
const (
	// FilterKey 全局过滤阈值表达式。
	FilterKey = "GlobalDefaultFilter"

	// UnhandledKey 未处理故障捕获开关。
	UnhandledKey = "LogUnhandledExceptions"

	// UnobservedKey 未观察异步故障捕获开关。
	UnobservedKey = "LogUnobservedTaskExceptions"

	// BridgeKey 宿主日志桥接开关。
	BridgeKey = "HandleDotNetLogs"

	// BridgeKeyDeprecated 桥接开关的旧键名，仅在新键缺失时生效，
	// 每次遇到都会产生一条弃用告警。
	BridgeKeyDeprecated = "HandleAspNetLogs"
)

// selfTag 控制器自述记录的来源分组。
const selfTag = "logpipe"

// ctrlState 控制器生命周期状态。
type ctrlState int

const (
	ctrlCreated ctrlState = iota
	ctrlActive
	ctrlDisposed
)

// Controller 重配置控制器。
//
// 持有配置节的单次触发订阅，每次变更投递后：重算全局过滤阈值
// （带 diff 通告）、下发故障捕获与桥接开关、解析 Sinks 子节并以
// fire-and-forget 方式应用到 target，最后重新武装订阅。
//
// 只有 Initialize 的首次应用是阻塞且可致命的；此后任何失败都被
// 吸收并上报收集器。
type Controller struct {
	target    Target
	resolver  *xsink.Resolver
	collector xsink.Collector
	registrar FaultRegistrar
	bridge    *Bridge

	mu    sync.Mutex
	state ctrlState
	sub   *xnode.Subscription
}

// NewController 创建控制器。target 不可为 nil。
func NewController(target Target, opts ...ControllerOption) (*Controller, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	o := newControllerOptions(opts...)
	return &Controller{
		target:    target,
		resolver:  o.resolver,
		collector: o.collector,
		registrar: o.registrar,
		bridge:    o.bridge,
	}, nil
}

// Initialize 用配置节完成首次装配并开始监听变更。
//
// 过滤阈值最先生效（在任何可观察行为之前），随后下发开关、解析
// 并阻塞应用 sink 集。没有任何 sink 激活成功时返回
// [ErrNoOperationalSink]，此时没有可回退的输出端，视为致命。
// 配置来源不支持监听时降级为静态配置，只上报不报错。
func (c *Controller) Initialize(section xnode.Node) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case ctrlActive:
		return ErrAlreadyInitialized
	case ctrlDisposed:
		return ErrDisposed
	}

	c.applyFilter(section, false)
	c.applyToggles(section)

	set := c.resolver.ResolveAll(section)
	if err := c.target.ApplyConfiguration(set, true); err != nil {
		return fmt.Errorf("xpipe: initial sink set failed: %w", err)
	}

	c.arm(section)
	c.state = ctrlActive
	return nil
}

// Dispose 停止监听、关闭所有开关并销毁 target，可安全重复调用。
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == ctrlDisposed {
		return
	}
	c.state = ctrlDisposed

	if c.sub != nil {
		if err := c.sub.Cancel(); err != nil {
			c.collector.Report(fmt.Errorf("cancel subscription: %w", err), "controller")
		}
		c.sub = nil
	}
	c.registrar.SetUnhandled(false)
	c.registrar.SetUnobserved(false)
	if c.bridge != nil {
		c.bridge.Disable()
	}
	c.target.Dispose()
}

// arm 在配置节上武装下一次单次触发订阅。
func (c *Controller) arm(section xnode.Node) {
	sub, err := section.Subscribe(c.onChange)
	if err != nil {
		if errors.Is(err, xnode.ErrNotWatchable) {
			// 字节来源的配置树：静态配置，无热更新
			return
		}
		c.collector.Report(fmt.Errorf("subscribe failed, hot reload disabled: %w", err), "controller")
		return
	}
	c.sub = sub
}

// onChange 处理一次配置变更投递。
// 任何 panic 都被吸收上报：热重配置的失败绝不波及触发方。
func (c *Controller) onChange(section xnode.Node) {
	defer func() {
		if rec := recover(); rec != nil {
			c.collector.Report(fmt.Errorf("reconfiguration panic: %v", rec), "controller")
		}
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ctrlActive {
		return
	}

	c.applyFilter(section, true)
	c.applyToggles(section)

	set := c.resolver.ResolveAll(section)
	if err := c.target.ApplyConfiguration(set, false); err != nil {
		c.collector.Report(fmt.Errorf("apply sink set: %w", err), "controller")
	}

	// 尽早重新武装，缩小单次触发模型固有的漏更新窗口
	c.arm(section)
}

// applyFilter 重算全局过滤阈值。
//
// 键缺失回到默认阈值；表达式非法时上报并保持当前阈值不变。
// announce 为 true 且阈值发生迁移时，经 target 写一条不受过滤
// 约束的 Info 级通告（每次迁移恰好一条，重复值不通告）。
func (c *Controller) applyFilter(section xnode.Node, announce bool) {
	next := defaultFilter
	if expr := section.GetValue(FilterKey, ""); expr != "" {
		parsed, err := ParseFilter(expr)
		if err != nil {
			c.collector.Report(err, "controller")
			return
		}
		next = parsed
	}

	prev := ActiveFilter()
	if next == prev {
		return
	}
	setActiveFilter(next)

	if announce {
		c.target.ExternalLog(
			xsink.LevelInfo,
			fmt.Sprintf("global filter changed: %s -> %s", prev, next),
			selfTag,
		)
	}
}

// applyToggles 下发故障捕获开关与宿主日志桥接开关。
// 注册器与桥自身幂等，重复下发相同值无副作用。
func (c *Controller) applyToggles(section xnode.Node) {
	c.registrar.SetUnhandled(c.boolValue(section, UnhandledKey, true))
	c.registrar.SetUnobserved(c.boolValue(section, UnobservedKey, true))

	if c.bridge == nil {
		return
	}
	enabled := true
	switch {
	case section.GetChild(BridgeKey).Exists():
		enabled = c.boolValue(section, BridgeKey, true)
	case section.GetChild(BridgeKeyDeprecated).Exists():
		enabled = c.boolValue(section, BridgeKeyDeprecated, true)
		c.target.ExternalLog(
			xsink.LevelWarn,
			fmt.Sprintf("config key %q is deprecated, use %q", BridgeKeyDeprecated, BridgeKey),
			selfTag,
		)
	}
	if enabled {
		c.bridge.Enable()
	} else {
		c.bridge.Disable()
	}
}

// boolValue 读取布尔配置键，非法值上报并返回 def。
func (c *Controller) boolValue(section xnode.Node, key string, def bool) bool {
	raw := section.GetValue(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		c.collector.Report(fmt.Errorf("invalid boolean for %s: %q", key, raw), "controller")
		return def
	}
	return v
}
