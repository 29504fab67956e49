package xfile

import (
	"fmt"
	"path/filepath"
	"strings"
)

// containsNullByte 检测路径是否包含空字节。
func containsNullByte(path string) bool {
	return strings.ContainsRune(path, 0)
}

// hasDotDotSegment 检测 ".." 是否作为独立路径段出现。
// '/' 与 '\' 都视为分隔符，Windows 风格的穿越在 Linux 上同样被拒绝。
func hasDotDotSegment(path string) bool {
	i := 0
	for i < len(path) {
		if path[i] == '/' || path[i] == '\\' {
			i++
			continue
		}
		j := i
		for j < len(path) && path[j] != '/' && path[j] != '\\' {
			j++
		}
		if j-i == 2 && path[i] == '.' && path[i+1] == '.' {
			return true
		}
		i = j
	}
	return false
}

// SanitizePath 对配置下发的日志文件路径做格式净化。
//
// 规范化路径（消除 "." 与冗余斜杠），拒绝空路径、空字节、
// 相对路径穿越，以及尾随分隔符的显式目录路径。
//
// 本函数只净化格式，不做目录隔离：绝对路径中的 ".." 由
// filepath.Clean 正常折叠（"/var/log/../etc" 是合法绝对路径）。
// 日志路径属于部署方配置而非对抗性输入，目录隔离交给系统权限。
func SanitizePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required: %w", ErrEmptyPath)
	}
	if containsNullByte(filename) {
		return "", fmt.Errorf("filename contains null byte: %w", ErrNullByte)
	}

	// 尾随分隔符表示目录，要在 Clean 抹掉它之前检查。
	// 反斜杠结尾几乎总是跨平台拼接错误，一并拒绝。
	if strings.HasSuffix(filename, "/") || strings.HasSuffix(filename, "\\") {
		return "", fmt.Errorf("path is a directory: %w", ErrInvalidPath)
	}

	cleaned := filepath.Clean(filename)

	// 按路径段精确判断，避免误伤 "app..2024.log" 这类文件名
	if hasDotDotSegment(cleaned) {
		return "", fmt.Errorf("path traversal in filename: %w", ErrPathTraversal)
	}

	base := filepath.Base(cleaned)
	if base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("no file name specified: %w", ErrInvalidPath)
	}
	return cleaned, nil
}
