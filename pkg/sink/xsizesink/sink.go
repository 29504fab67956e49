package xsizesink

import (
	"fmt"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/omeyang/logpipe/pkg/sink/xsink"
	"github.com/omeyang/logpipe/pkg/util/xfile"
)

// 默认配置值（与 lumberjack 常规用法一致）。
const (
	// DefaultMaxSizeMB 默认单文件大小上限（MB）。
	DefaultMaxSizeMB = 100

	// DefaultMaxBackups 默认保留的备份数量。
	DefaultMaxBackups = 7

	// DefaultMaxAgeDays 默认备份保留天数。
	DefaultMaxAgeDays = 30
)

// SizeFileConfig 按大小轮转的文件 sink 配置。
type SizeFileConfig struct {
	// Path 目标文件路径，身份键。
	Path string `koanf:"Path"`

	// MaxSizeMB 单文件大小上限（MB），超过触发轮转。
	MaxSizeMB int `koanf:"MaxSizeMB"`

	// MaxBackups 保留的备份数量，0 表示不按数量清理。
	MaxBackups int `koanf:"MaxBackups"`

	// MaxAgeDays 备份保留天数，0 表示不按天数清理。
	MaxAgeDays int `koanf:"MaxAgeDays"`

	// Compress 是否 gzip 压缩备份。
	Compress bool `koanf:"Compress"`
}

// 编译时断言：满足 xsink 契约。
var (
	_ xsink.Config    = (*SizeFileConfig)(nil)
	_ xsink.Validator = (*SizeFileConfig)(nil)
)

// IdentityKey 返回身份键（目标路径）。
func (c *SizeFileConfig) IdentityKey() string {
	return c.Path
}

// NewSink 构造绑定到本配置的 sink 实例。
func (c *SizeFileConfig) NewSink() xsink.Sink {
	cfg := *c
	return &SizeFileSink{cfg: cfg}
}

// Validate 校验配置。
func (c *SizeFileConfig) Validate() error {
	if c.Path == "" {
		return ErrEmptyPath
	}
	if c.MaxSizeMB <= 0 {
		return ErrInvalidMaxSize
	}
	if c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return ErrInvalidBackups
	}
	return nil
}

// SizeFileSink 基于 lumberjack 的按大小轮转 sink。
// 方法由 pipeline 串行 worker 调用，不会并发。
type SizeFileSink struct {
	cfg         SizeFileConfig
	logger      *lumberjack.Logger
	deactivated bool
}

var _ xsink.Sink = (*SizeFileSink)(nil)

// Activate 校验路径并准备输出流。
// lumberjack 延迟创建文件，首条写入才真正落盘。
func (s *SizeFileSink) Activate() error {
	if s.deactivated {
		return ErrDeactivated
	}
	if s.logger != nil {
		return nil // 幂等
	}

	path, err := xfile.SanitizePath(s.cfg.Path)
	if err != nil {
		return fmt.Errorf("xsizesink: bad path %q: %w", s.cfg.Path, err)
	}
	if err := xfile.EnsureDir(path); err != nil {
		return fmt.Errorf("xsizesink: ensure directory for %q: %w", path, err)
	}

	s.logger = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    s.cfg.MaxSizeMB,
		MaxBackups: s.cfg.MaxBackups,
		MaxAge:     s.cfg.MaxAgeDays,
		Compress:   s.cfg.Compress,
	}
	return nil
}

// Handle 追加一条条目，轮转由 lumberjack 在写入时自动处理。
func (s *SizeFileSink) Handle(e xsink.Entry) error {
	if s.deactivated {
		return ErrDeactivated
	}
	if s.logger == nil {
		return ErrNotActivated
	}
	if _, err := s.logger.Write([]byte(e.Text())); err != nil {
		return fmt.Errorf("xsizesink: write %q: %w", s.cfg.Path, err)
	}
	return nil
}

// OnTick 无周期性动作：lumberjack 无写缓冲，备份清理在轮转时进行。
func (s *SizeFileSink) OnTick(time.Duration) {}

// ApplyConfiguration 原地采纳新参数，仅当路径（身份键）一致。
func (s *SizeFileSink) ApplyConfiguration(cfg xsink.Config) bool {
	next, ok := cfg.(*SizeFileConfig)
	if !ok || next.Path != s.cfg.Path {
		return false
	}

	s.cfg = *next
	if s.logger != nil {
		s.logger.MaxSize = next.MaxSizeMB
		s.logger.MaxBackups = next.MaxBackups
		s.logger.MaxAge = next.MaxAgeDays
		s.logger.Compress = next.Compress
	}
	return true
}

// Deactivate 关闭输出流，可安全重复调用。
func (s *SizeFileSink) Deactivate() error {
	if s.deactivated {
		return nil
	}
	s.deactivated = true

	if s.logger == nil {
		return nil
	}
	if err := s.logger.Close(); err != nil {
		return fmt.Errorf("xsizesink: close %q: %w", s.cfg.Path, err)
	}
	return nil
}

// init 向默认注册表自注册。
func init() {
	xsink.Default().Register("xsizesink.SizeFileConfig", func() xsink.Config {
		return &SizeFileConfig{
			MaxSizeMB:  DefaultMaxSizeMB,
			MaxBackups: DefaultMaxBackups,
			MaxAgeDays: DefaultMaxAgeDays,
		}
	})
}
