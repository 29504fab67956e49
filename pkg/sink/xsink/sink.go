package xsink

import (
	"strings"
	"time"

	"github.com/omeyang/logpipe/pkg/config/xnode"
)

// Entry 一条待记录的日志条目。
// 落盘编码由各 sink 自行决定，[Entry.Text] 提供默认的单行文本编码。
type Entry struct {
	// Time 条目产生时间。
	Time time.Time

	// Level 条目级别。
	Level Level

	// Group 记录来源分组（logger 名），可为空。
	Group string

	// Message 条目正文。
	Message string
}

// Text 返回条目的单行文本编码（含换行符）。
func (e Entry) Text() string {
	ts := e.Time.Format("2006-01-02T15:04:05.000Z07:00")
	if e.Group == "" {
		return ts + " " + e.Level.String() + " " + e.Message + "\n"
	}
	return ts + " " + e.Level.String() + " [" + e.Group + "] " + e.Message + "\n"
}

// Sink 日志输出端。
//
// 实例一次只绑定一个 [Config]。pipeline 把 Handle/OnTick/Activate/
// Deactivate/ApplyConfiguration 串行化到单一 worker 上执行，
// 实现不会观察到并发调用，无需自带锁。
type Sink interface {
	// Activate 打开（或恢复）输出资源。
	// 失败只影响本 sink，不应拖垮整条 pipeline。
	Activate() error

	// Handle 追加一条条目。
	Handle(e Entry) error

	// OnTick 周期心跳。elapsed 为距上次心跳的时长。
	// 心跳是粗粒度节拍，不与条目一一对应。
	OnTick(elapsed time.Duration)

	// ApplyConfiguration 尝试原地采纳新配置。
	// 仅当新配置的身份键与当前配置一致时返回 true；
	// 返回 false 时实例状态必须保持不变，由调用方换新实例。
	ApplyConfiguration(cfg Config) bool

	// Deactivate 冲刷并释放资源，可安全重复调用。
	Deactivate() error
}

// Config 描述如何构造/重配置一个 sink 的不可变值。
type Config interface {
	// IdentityKey 稳定身份键，用于跨重配置匹配"同一个 sink、新参数"。
	// 文件类 sink 的身份键是目标路径。
	IdentityKey() string

	// NewSink 构造绑定到本配置的 sink 实例。
	NewSink() Sink
}

// NodeBinder 需要完整结构化访问配置节点的 Config 实现此接口。
// 解析器优先走 BindNode，其次按字段名绑定（node.Unmarshal）。
type NodeBinder interface {
	BindNode(node xnode.Node) error
}

// Validator 绑定后需要校验自身的 Config 实现此接口。
type Validator interface {
	Validate() error
}

// IsExcluded 报告配置条目是否被刻意排除。
// 原始标量值为字面 "false"（大小写不敏感）表示排除，不是错误。
func IsExcluded(raw string) bool {
	return strings.EqualFold(raw, "false")
}
