package xsizesink

import "errors"

// 配置校验与运行时错误。
var (
	// ErrEmptyPath 目标路径为空。
	ErrEmptyPath = errors.New("xsizesink: path is required")

	// ErrInvalidMaxSize MaxSizeMB 必须为正数。
	ErrInvalidMaxSize = errors.New("xsizesink: invalid MaxSizeMB")

	// ErrInvalidBackups MaxBackups 与 MaxAgeDays 必须非负。
	ErrInvalidBackups = errors.New("xsizesink: invalid backup policy")

	// ErrNotActivated sink 尚未激活。
	ErrNotActivated = errors.New("xsizesink: sink is not activated")

	// ErrDeactivated sink 已停用。
	ErrDeactivated = errors.New("xsizesink: sink is deactivated")
)
