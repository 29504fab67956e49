package xfilesink

import "errors"

// 配置校验与运行时错误。
var (
	// ErrEmptyPath 目标路径为空。
	ErrEmptyPath = errors.New("xfilesink: path is required")

	// ErrInvalidMaxEntries MaxEntriesPerFile 必须为正数。
	ErrInvalidMaxEntries = errors.New("xfilesink: invalid MaxEntriesPerFile")

	// ErrInvalidTickRate 计数器速率必须为正数。
	ErrInvalidTickRate = errors.New("xfilesink: invalid tick rate")

	// ErrInvalidBudget 保留预算无效（MinAgeToKeep 与 MaxTotalKilobytesToKeep 必须非负）。
	ErrInvalidBudget = errors.New("xfilesink: invalid retention budget")

	// ErrNotActivated sink 尚未激活。
	ErrNotActivated = errors.New("xfilesink: sink is not activated")

	// ErrDeactivated sink 已停用。
	ErrDeactivated = errors.New("xfilesink: sink is deactivated")
)
