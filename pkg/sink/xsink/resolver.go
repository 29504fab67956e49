package xsink

import (
	"fmt"
	"strings"

	"github.com/omeyang/logpipe/pkg/config/xnode"
)

// 配置键名约定。
const (
	// SinksKey Sinks 配置子节的键名。
	SinksKey = "Sinks"

	// KindKey 条目上显式指定类型名的属性键。
	KindKey = "Kind"
)

// Resolver 把配置子树解析为有序的 sink 配置集合。
//
// 解析对外部状态是纯的（除错误上报外）：同一棵配置树重复解析，
// 产出的集合与上报的失败都可复现。
type Resolver struct {
	registry  *Registry
	collector Collector
}

// NewResolver 创建解析器。
// registry 为 nil 时使用默认注册表；collector 为 nil 时写 slog。
func NewResolver(registry *Registry, collector Collector) *Resolver {
	if registry == nil {
		registry = Default()
	}
	if collector == nil {
		collector = SlogCollector(nil)
	}
	return &Resolver{registry: registry, collector: collector}
}

// ResolveAll 解析 section 下的 Sinks 子节，返回声明顺序的配置集合。
//
// Sinks 子节缺失时返回内置默认配置的单元素集合，保证 pipeline 不会
// 静默为空。单个条目解析/绑定失败只上报并跳过，绝不中断整次解析。
// 集合内身份键的唯一性不在此处检查：重复路径由后续 sink 激活时以
// 错误形式暴露。
func (r *Resolver) ResolveAll(section xnode.Node) []Config {
	sinks := section.GetChild(SinksKey)
	if !sinks.Exists() {
		return r.fallbackSet()
	}

	var set []Config
	for _, child := range sinks.Children() {
		if IsExcluded(child.Node.Raw()) {
			continue
		}
		cfg := r.resolveEntry(child.Key, child.Node)
		if cfg != nil {
			set = append(set, cfg)
		}
	}
	return set
}

// fallbackSet 返回内置默认配置的单元素集合。
func (r *Resolver) fallbackSet() []Config {
	fallback := r.registry.Fallback()
	if fallback == nil {
		// 默认工厂由内置 sink 包注册；缺失说明装配错误
		r.collector.Report(ErrNoDefault, "resolver")
		return nil
	}
	return []Config{fallback()}
}

// resolveEntry 解析单个条目，失败时上报并返回 nil。
func (r *Resolver) resolveEntry(key string, node xnode.Node) Config {
	factory, tried := r.lookup(key, node)
	if factory == nil {
		r.collector.Report(
			fmt.Errorf("%w: entry %q (tried %s)", ErrUnknownKind, key, strings.Join(tried, ", ")),
			"resolver",
		)
		return nil
	}

	cfg, err := construct(factory, node)
	if err != nil {
		r.collector.Report(
			fmt.Errorf("%w: entry %q: %w", ErrBindFailed, key, err),
			"resolver",
		)
		return nil
	}
	return cfg
}

// lookup 确定目标类型名并解析。
// 优先条目上显式的 Kind 属性，回退到条目自身的键名。
func (r *Resolver) lookup(key string, node xnode.Node) (Factory, []string) {
	var tried []string

	if kind := node.GetValue(KindKey, ""); kind != "" {
		tried = append(tried, kind)
		if f, ok := r.registry.Resolve(kind); ok {
			return f, tried
		}
	}

	tried = append(tried, key)
	if f, ok := r.registry.Resolve(key); ok {
		return f, tried
	}
	return nil, tried
}

// construct 构造配置并绑定字段，构造期 panic 一并转为错误。
// 优先 NodeBinder 能力（需要完整结构化访问的 sink），
// 其次在默认值之上按字段名绑定。
func construct(factory Factory, node xnode.Node) (cfg Config, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			cfg = nil
			err = fmt.Errorf("panic during construction: %v", rec)
		}
	}()

	cfg = factory()

	if binder, ok := cfg.(NodeBinder); ok {
		if err := binder.BindNode(node); err != nil {
			return nil, err
		}
	} else if err := node.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
