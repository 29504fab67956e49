package xfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDirPerm 日志目录的默认权限：所有者读写执行，组读执行。
const DefaultDirPerm = 0750

// EnsureDir 确保文件的父目录存在（已存在时为空操作）。
// 目录以 [DefaultDirPerm] 创建。
func EnsureDir(filename string) error {
	return EnsureDirWithPerm(filename, DefaultDirPerm)
}

// EnsureDirWithPerm 确保文件的父目录存在，使用指定权限创建。
// filename 是文件路径而非目录路径；目录已存在时不修改其权限。
// 不校验 ".." 段，不可信输入应先过 [SanitizePath]。
func EnsureDirWithPerm(filename string, perm os.FileMode) error {
	if filename == "" {
		return fmt.Errorf("filename is required: %w", ErrEmptyPath)
	}
	if containsNullByte(filename) {
		return fmt.Errorf("filename contains null byte: %w", ErrNullByte)
	}
	// 缺少所有者执行位的目录无法进入
	if perm&0100 == 0 {
		return fmt.Errorf("directory permission %04o missing owner execute bit: %w", perm, ErrInvalidPerm)
	}
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, perm)
}
