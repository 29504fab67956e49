package xsink

import (
	"sort"
	"strings"
	"sync"
)

// ConfigSuffix sink 配置类型名的约定后缀。
// 配置里允许省略该后缀：解析 "TextFile" 会自动重试 "TextFileConfig"。
const ConfigSuffix = "Config"

// qualifierSep 限定引用的限定符分隔符。
// "xfilesink.TextFileConfig, v1.2, internal" 会被弱化为分隔符之前的部分。
const qualifierSep = ","

// Factory 返回一个带默认值的新 Config 实例，供解析器绑定字段。
type Factory func() Config

// Registry 类型名到配置工厂的注册表。
//
// sink 实现包在 init 中以限定名（"<包名>.<配置类型名>"）自注册。
// Resolve 按以下顺序尝试：
//  1. 含限定符分隔符：弱化引用（截断限定符）后按完整名精确查找，
//     未命中且不以 [ConfigSuffix] 结尾时追加后缀重试
//  2. 含 "."：按完整名精确查找，再尝试追加后缀
//  3. 简单名：扫描注册键的末段匹配，再尝试追加后缀
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	fallback  Factory // 内置默认配置（Sinks 节缺失时使用）
}

// NewRegistry 创建空注册表。
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// defaultRegistry 进程级默认注册表，sink 包 init 时自注册。
var defaultRegistry = NewRegistry()

// Default 返回进程级默认注册表。
func Default() *Registry {
	return defaultRegistry
}

// Register 注册配置工厂。同名覆盖。
func (r *Registry) Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// RegisterFallback 注册内置默认配置工厂。
// Sinks 配置节缺失时，解析器用它保证集合非空。
func (r *Registry) RegisterFallback(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = f
}

// Fallback 返回内置默认配置工厂，未注册时为 nil。
func (r *Registry) Fallback() Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback
}

// Resolve 把人工书写的类型名解析为配置工厂。
func (r *Registry) Resolve(name string) (Factory, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}

	// 限定引用：弱化（截断版本等限定符）后按完整名处理
	if i := strings.Index(name, qualifierSep); i >= 0 {
		name = strings.TrimSpace(name[:i])
		if name == "" {
			return nil, false
		}
		return r.lookupFull(name)
	}

	if strings.Contains(name, ".") {
		return r.lookupFull(name)
	}
	return r.lookupSimple(name)
}

// lookupFull 按完整名精确查找，未命中时尝试追加后缀。
func (r *Registry) lookupFull(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.factories[name]; ok {
		return f, true
	}
	if !strings.HasSuffix(name, ConfigSuffix) {
		if f, ok := r.factories[name+ConfigSuffix]; ok {
			return f, true
		}
	}
	return nil, false
}

// lookupSimple 按简单名扫描注册键的末段，未命中时尝试追加后缀。
func (r *Registry) lookupSimple(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.matchLastSegment(name); ok {
		return f, true
	}
	if !strings.HasSuffix(name, ConfigSuffix) {
		if f, ok := r.matchLastSegment(name + ConfigSuffix); ok {
			return f, true
		}
	}
	return nil, false
}

// matchLastSegment 在持读锁的前提下按末段匹配注册键。
// 精确键命中优先；末段扫描按键名排序，歧义时的选取是确定的。
func (r *Registry) matchLastSegment(name string) (Factory, bool) {
	if f, ok := r.factories[name]; ok {
		return f, true
	}
	keys := make([]string, 0, len(r.factories))
	for key := range r.factories {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if key[strings.LastIndex(key, ".")+1:] == name {
			return r.factories[key], true
		}
	}
	return nil, false
}

// Kinds 返回已注册的类型名（无序，仅诊断用途）。
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for name := range r.factories {
		kinds = append(kinds, name)
	}
	return kinds
}
