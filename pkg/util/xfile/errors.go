package xfile

import "errors"

var (
	// ErrEmptyPath 必需的路径参数为空。
	ErrEmptyPath = errors.New("xfile: path is required")

	// ErrInvalidPath 路径格式无效（目录路径、缺少文件名等）。
	ErrInvalidPath = errors.New("xfile: invalid path")

	// ErrPathTraversal 路径中包含 ".." 独立路径段。
	ErrPathTraversal = errors.New("xfile: path traversal detected")

	// ErrNullByte 路径中包含空字节。Linux 内核在空字节处截断路径，
	// Go 代码与操作系统会看到不一致的路径。
	ErrNullByte = errors.New("xfile: path contains null byte")

	// ErrInvalidPerm 目录权限缺少所有者执行位，目录无法遍历。
	ErrInvalidPerm = errors.New("xfile: invalid directory permission")
)
