package xfilesink

import (
	"time"

	"github.com/omeyang/logpipe/pkg/sink/xsink"
)

// 默认配置值。
const (
	// DefaultPath Sinks 配置节缺失时内置默认 sink 的目标路径。
	DefaultPath = "logs/app.log"

	// DefaultMaxEntriesPerFile 默认单文件条目上限。
	DefaultMaxEntriesPerFile = 10000

	// DefaultFlushEveryNTicks 默认每几个心跳冲刷一次。
	DefaultFlushEveryNTicks = 3

	// DefaultHousekeepingEveryNTicks 默认每几个心跳执行一次保留清理。
	DefaultHousekeepingEveryNTicks = 60

	// DefaultMinAgeToKeep 默认保护期：新于此年龄的轮转文件不删除。
	DefaultMinAgeToKeep = 24 * time.Hour

	// DefaultMaxTotalKilobytesToKeep 默认轮转文件总量预算（KB，1KB=1000B）。
	DefaultMaxTotalKilobytesToKeep = 102400
)

// TextFileConfig 文本文件 sink 的配置。
// 字段名即配置键名，由解析器按名绑定。
type TextFileConfig struct {
	// Path 目标文件路径，身份键。
	Path string `koanf:"Path"`

	// MaxEntriesPerFile 单文件条目上限，写满先滚动再写入。
	MaxEntriesPerFile int `koanf:"MaxEntriesPerFile"`

	// FlushEveryNTicks 冲刷计数器速率。
	FlushEveryNTicks int `koanf:"FlushEveryNTicks"`

	// HousekeepingEveryNTicks 保留清理计数器速率。
	HousekeepingEveryNTicks int `koanf:"HousekeepingEveryNTicks"`

	// MinAgeToKeep 保护期：新于此年龄的轮转文件永不删除。
	MinAgeToKeep time.Duration `koanf:"MinAgeToKeep"`

	// MaxTotalKilobytesToKeep 轮转文件总量预算（KB，1KB=1000B）。
	MaxTotalKilobytesToKeep int64 `koanf:"MaxTotalKilobytesToKeep"`
}

// 编译时断言：TextFileConfig 满足 xsink 契约。
var (
	_ xsink.Config    = (*TextFileConfig)(nil)
	_ xsink.Validator = (*TextFileConfig)(nil)
)

// newDefaultConfig 返回带默认值的配置（解析器在其上按名绑定覆盖）。
func newDefaultConfig() *TextFileConfig {
	return &TextFileConfig{
		Path:                    DefaultPath,
		MaxEntriesPerFile:       DefaultMaxEntriesPerFile,
		FlushEveryNTicks:        DefaultFlushEveryNTicks,
		HousekeepingEveryNTicks: DefaultHousekeepingEveryNTicks,
		MinAgeToKeep:            DefaultMinAgeToKeep,
		MaxTotalKilobytesToKeep: DefaultMaxTotalKilobytesToKeep,
	}
}

// IdentityKey 返回身份键（目标路径）。
func (c *TextFileConfig) IdentityKey() string {
	return c.Path
}

// NewSink 构造绑定到本配置的 sink 实例。
func (c *TextFileConfig) NewSink() xsink.Sink {
	cfg := *c
	return &TextFileSink{cfg: cfg, state: stateCreated}
}

// Validate 校验配置。
func (c *TextFileConfig) Validate() error {
	if c.Path == "" {
		return ErrEmptyPath
	}
	if c.MaxEntriesPerFile <= 0 {
		return ErrInvalidMaxEntries
	}
	if c.FlushEveryNTicks <= 0 || c.HousekeepingEveryNTicks <= 0 {
		return ErrInvalidTickRate
	}
	if c.MinAgeToKeep < 0 || c.MaxTotalKilobytesToKeep < 0 {
		return ErrInvalidBudget
	}
	return nil
}

// Budget 返回本配置对应的保留预算。
func (c *TextFileConfig) Budget() RetentionBudget {
	return RetentionBudget{
		MinAgeToKeep:  c.MinAgeToKeep,
		MaxTotalBytes: c.MaxTotalKilobytesToKeep * 1000,
	}
}

// init 向默认注册表自注册，同时充当 Sinks 节缺失时的内置默认。
func init() {
	factory := func() xsink.Config { return newDefaultConfig() }
	xsink.Default().Register("xfilesink.TextFileConfig", factory)
	xsink.Default().RegisterFallback(factory)
}
