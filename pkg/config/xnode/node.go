package xnode

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 定义配置文件格式。
type Format string

// 支持的配置格式。
const (
	// FormatYAML YAML 格式（推荐用于 K8s ConfigMap）。
	FormatYAML Format = "yaml"

	// FormatJSON JSON 格式。
	FormatJSON Format = "json"
)

// Child 有序子节点枚举的一项。
type Child struct {
	// Key 子节点在父节点下的键名。
	Key string

	// Node 子节点。
	Node Node
}

// Node 层级配置节点。
//
// 节点是配置树上某个路径的视图：树重载后，既有 Node 句柄自动看到
// 新数据（路径不变，内容可变）。所有方法并发安全。
type Node interface {
	// GetChild 返回指定相对路径的子节点。
	// 子节点不存在时仍返回有效句柄，Exists 为 false。
	GetChild(path string) Node

	// Children 按声明顺序返回直接子节点。
	// 本节点不是映射时返回 nil。
	Children() []Child

	// GetValue 读取相对路径的字符串叶子值，缺失时返回 def。
	// path 为空字符串时读取本节点自身的标量值。
	GetValue(path, def string) string

	// Raw 返回本节点自身的标量值；非标量节点返回空字符串。
	Raw() string

	// Exists 报告本节点在配置树中是否存在。
	Exists() bool

	// Path 返回本节点相对根的点分路径，根节点为空字符串。
	Path() string

	// Unmarshal 将本节点子树反序列化到目标结构体。
	Unmarshal(target any) error

	// Subscribe 订阅配置变更，恰好投递一次后自动失效。
	// 仅文件来源的配置树支持订阅，否则返回 [ErrNotWatchable]。
	Subscribe(fn func(Node)) (*Subscription, error)
}

// tree 配置树共享状态（所有 Node 句柄引用同一棵树）。
type tree struct {
	mu     sync.RWMutex
	k      *koanf.Koanf
	order  map[string][]string // 路径 → 有序子键
	path   string              // 文件路径；字节来源为空
	format Format
	opts   *Options
}

// node 是 Node 的实现：树指针加点分路径。
type node struct {
	t    *tree
	path string
}

// New 从文件路径创建配置树的根节点。
// 根据扩展名自动检测格式（.yaml/.yml 或 .json）。
func New(path string, opts ...Option) (Node, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	k, order, err := loadData(data, format, options.Delim)
	if err != nil {
		return nil, err
	}

	return &node{t: &tree{
		k:      k,
		order:  order,
		path:   path,
		format: format,
		opts:   options,
	}}, nil
}

// NewFromBytes 从字节数据创建配置树的根节点。
// 需要显式指定格式。字节来源的树不支持 Subscribe。
func NewFromBytes(data []byte, format Format, opts ...Option) (Node, error) {
	if !isValidFormat(format) {
		return nil, ErrUnsupportedFormat
	}

	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	k := koanf.New(options.Delim)
	order := map[string][]string{}
	if len(data) > 0 {
		var err error
		k, order, err = loadData(data, format, options.Delim)
		if err != nil {
			return nil, err
		}
	}

	return &node{t: &tree{
		k:      k,
		order:  order,
		format: format,
		opts:   options,
	}}, nil
}

// reload 重新读取文件并整棵替换（仅文件来源）。
func (t *tree) reload() error {
	if t.path == "" {
		return ErrNotWatchable
	}

	data, err := os.ReadFile(t.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	k, order, err := loadData(data, t.format, t.opts.Delim)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.k = k
	t.order = order
	t.mu.Unlock()
	return nil
}

// join 拼接本节点路径与相对路径。
func (n *node) join(path string) string {
	switch {
	case n.path == "":
		return path
	case path == "":
		return n.path
	default:
		return n.path + n.t.opts.Delim + path
	}
}

// GetChild 返回指定相对路径的子节点。
func (n *node) GetChild(path string) Node {
	return &node{t: n.t, path: n.join(path)}
}

// Children 按声明顺序返回直接子节点。
func (n *node) Children() []Child {
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()

	keys := n.t.order[n.path]
	if keys == nil {
		// 顺序索引缺失时按字典序兜底，保证确定性
		m, ok := n.get("").(map[string]any)
		if !ok {
			return nil
		}
		for key := range m {
			keys = append(keys, key)
		}
		sort.Strings(keys)
	}
	if len(keys) == 0 {
		return nil
	}

	children := make([]Child, 0, len(keys))
	for _, key := range keys {
		children = append(children, Child{Key: key, Node: &node{t: n.t, path: n.join(key)}})
	}
	return children
}

// get 在已持读锁的前提下读取相对路径的原始值。
func (n *node) get(path string) any {
	full := n.join(path)
	if full == "" {
		return n.t.k.Raw()
	}
	return n.t.k.Get(full)
}

// GetValue 读取字符串叶子值。
func (n *node) GetValue(path, def string) string {
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()

	s, ok := stringify(n.get(path))
	if !ok {
		return def
	}
	return s
}

// Raw 返回本节点自身的标量值。
func (n *node) Raw() string {
	return n.GetValue("", "")
}

// Exists 报告本节点是否存在。
func (n *node) Exists() bool {
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()

	if n.path == "" {
		return true
	}
	return n.t.k.Exists(n.path)
}

// Path 返回本节点相对根的点分路径。
func (n *node) Path() string {
	return n.path
}

// Unmarshal 将本节点子树反序列化到目标结构体。
func (n *node) Unmarshal(target any) error {
	n.t.mu.RLock()
	defer n.t.mu.RUnlock()

	if err := n.t.k.UnmarshalWithConf(n.path, target, koanf.UnmarshalConf{
		Tag: n.t.opts.Tag,
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

// =============================================================================
// 内部辅助函数
// =============================================================================

// stringify 将标量值转为字符串表示。
// map/slice/nil 不是叶子值，返回 ok=false。
//
// YAML/JSON 的布尔与数字字面量（如 Sinks 子项的 false）也按字符串
// 叶子处理，保证 "false" 排除语义对未加引号的字面量同样生效。
func stringify(v any) (string, bool) {
	switch s := v.(type) {
	case nil, map[string]any, []any:
		return "", false
	case string:
		return s, true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// detectFormat 根据文件扩展名检测配置格式。
func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %s", ErrUnsupportedFormat, ext)
	}
}

// isValidFormat 检查格式是否有效。
func isValidFormat(format Format) bool {
	switch format {
	case FormatYAML, FormatJSON:
		return true
	default:
		return false
	}
}

// loadData 解析数据，返回 koanf 实例与声明顺序索引。
func loadData(data []byte, format Format, delim string) (*koanf.Koanf, map[string][]string, error) {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return nil, nil, ErrUnsupportedFormat
	}

	k := koanf.New(delim)
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	order, err := buildOrderIndex(data, format, delim)
	if err != nil {
		return nil, nil, err
	}
	return k, order, nil
}
