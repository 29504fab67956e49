package xpipe

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/omeyang/logpipe/pkg/sink/xsink"
)

// Filter 全局过滤阈值对：组级与行级两个最低严重度。
// 进程级单例，只由 [Controller] 写入，所有发射方读取。
type Filter struct {
	// Group 组级（logger 级）阈值。
	Group xsink.Level

	// Line 行级（单条记录）阈值。
	Line xsink.Level
}

// String 返回 "GROUP:LINE" 形式的表示。
func (f Filter) String() string {
	return f.Group.String() + ":" + f.Line.String()
}

// ParseFilter 解析全局过滤表达式。
//
// 形式为 "<group>" 或 "<group>:<line>"，级别名大小写不敏感
// （debug/info/warn/error）。单值同时设置两个阈值。
func ParseFilter(expr string) (Filter, error) {
	parts := strings.Split(strings.TrimSpace(expr), ":")
	switch len(parts) {
	case 1:
		level, err := xsink.ParseLevel(parts[0])
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %q: %w", ErrFilterParse, expr, err)
		}
		return Filter{Group: level, Line: level}, nil
	case 2:
		group, err := xsink.ParseLevel(parts[0])
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %q: %w", ErrFilterParse, expr, err)
		}
		line, err := xsink.ParseLevel(parts[1])
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %q: %w", ErrFilterParse, expr, err)
		}
		return Filter{Group: group, Line: line}, nil
	default:
		return Filter{}, fmt.Errorf("%w: %q", ErrFilterParse, expr)
	}
}

// defaultFilter 未配置 GlobalDefaultFilter 时的初始阈值。
var defaultFilter = Filter{Group: xsink.LevelInfo, Line: xsink.LevelInfo}

// activeFilter 当前生效的全局过滤阈值。
var activeFilter atomic.Pointer[Filter]

func init() {
	f := defaultFilter
	activeFilter.Store(&f)
}

// ActiveFilter 返回当前生效的全局过滤阈值。
func ActiveFilter() Filter {
	return *activeFilter.Load()
}

// setActiveFilter 替换全局过滤阈值（仅控制器调用）。
func setActiveFilter(f Filter) {
	activeFilter.Store(&f)
}

// resetActiveFilter 恢复默认阈值（仅测试使用）。
func resetActiveFilter() {
	setActiveFilter(defaultFilter)
}

// LineEnabled 报告指定级别的单条记录是否应被构造。
func LineEnabled(level xsink.Level) bool {
	return level >= ActiveFilter().Line
}

// GroupEnabled 报告指定级别的记录组是否启用。
func GroupEnabled(level xsink.Level) bool {
	return level >= ActiveFilter().Group
}
