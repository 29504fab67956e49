package xfilesink

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RetentionBudget 保留预算。
// 不变量：MaxTotalBytes >= 0；年龄不足 MinAgeToKeep 的文件永不删除，
// 即使总量超出预算（安全优先于空间回收）。
type RetentionBudget struct {
	// MinAgeToKeep 保护期。
	MinAgeToKeep time.Duration

	// MaxTotalBytes 轮转文件累计字节预算。
	MaxTotalBytes int64
}

// RotatedFile 一个已轮转文件的快照。
type RotatedFile struct {
	// Path 文件路径。
	Path string

	// Index 轮转序号（创建顺序）。
	Index int

	// Size 文件字节数。
	Size int64

	// ModTime 最后写入时间，用于年龄判断。
	ModTime time.Time
}

// PlanRetention 计算应删除的文件，纯函数。
//
// files 必须按轮转序号升序（最旧在前）。从最旧开始挑选超龄文件，
// 删到累计大小不超过预算为止；保护期内的文件跳过但继续向后扫描，
// 更旧的可删文件不会因此幸存。
func PlanRetention(files []RotatedFile, now time.Time, budget RetentionBudget) []RotatedFile {
	var total int64
	for _, f := range files {
		total += f.Size
	}

	var doomed []RotatedFile
	for _, f := range files {
		if total <= budget.MaxTotalBytes {
			break
		}
		if now.Sub(f.ModTime) < budget.MinAgeToKeep {
			continue
		}
		doomed = append(doomed, f)
		total -= f.Size
	}
	return doomed
}

// rotatedName 返回指定轮转序号的文件名。
// 序号格式化为定宽数字，字典序即数值序。
func rotatedName(dir, stem, ext string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%08d%s", stem, index, ext))
}

// parseIndex 从文件名中解析轮转序号，不匹配命名方案时返回 false。
func parseIndex(name, stem, ext string) (int, bool) {
	if !strings.HasPrefix(name, stem+".") || !strings.HasSuffix(name, ext) {
		return 0, false
	}
	mid := name[len(stem)+1 : len(name)-len(ext)]
	if mid == "" {
		return 0, false
	}
	for _, r := range mid {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	index, err := strconv.Atoi(mid)
	if err != nil || index <= 0 {
		return 0, false
	}
	return index, true
}

// listRotated 枚举目录下属于本命名方案的轮转文件，按序号升序。
// exceptIndex 指定要排除的序号（当前打开的文件），传 0 表示不排除。
func listRotated(dir, stem, ext string, exceptIndex int) ([]RotatedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []RotatedFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		index, ok := parseIndex(entry.Name(), stem, ext)
		if !ok || index == exceptIndex {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // 并发删除等瞬态失败，下轮清理再看
		}
		files = append(files, RotatedFile{
			Path:    filepath.Join(dir, entry.Name()),
			Index:   index,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Index < files[j].Index })
	return files, nil
}
