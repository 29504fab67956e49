package xsink

import "errors"

// 解析与构造相关错误。
var (
	// ErrUnknownKind 类型名无法在注册表中解析。
	ErrUnknownKind = errors.New("xsink: unknown sink kind")

	// ErrBindFailed 配置绑定或构造失败。
	ErrBindFailed = errors.New("xsink: failed to bind sink configuration")

	// ErrNoDefault 未注册内置默认 sink 配置。
	ErrNoDefault = errors.New("xsink: no default sink configuration registered")

	// ErrInvalidLevel 无法解析的日志级别。
	ErrInvalidLevel = errors.New("xsink: unknown level")
)
