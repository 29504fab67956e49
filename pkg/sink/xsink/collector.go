package xsink

import (
	"fmt"
	"log/slog"
	"os"
)

// Collector 管线自身错误的带外收集器。
//
// Report 必须是 fire-and-forget 语义：不阻塞调用方、不反向写入
// pipeline（否则解析错误会在输出端递归放大）。
type Collector interface {
	// Report 上报一条错误及其来源描述。
	Report(err error, source string)
}

// CollectorFunc 函数适配器。
type CollectorFunc func(err error, source string)

// Report 实现 [Collector] 接口。
func (f CollectorFunc) Report(err error, source string) {
	f(err, source)
}

// SlogCollector 返回把错误写到 slog 的收集器。
// logger 为 nil 时使用 slog.Default()。
//
// 注意：启用宿主日志桥接时不要用本收集器，否则 pipeline 自身的错误
// 会经由 slog 桥回 pipeline，形成递归写入。桥接场景用 [StderrCollector]。
func SlogCollector(logger *slog.Logger) Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return CollectorFunc(func(err error, source string) {
		logger.Error("logpipe: pipeline fault", "source", source, "error", err)
	})
}

// StderrCollector 返回直写 stderr 的收集器。
// 不经过任何日志库，pipeline 作为日志输出端时不会递归写入自身。
func StderrCollector() Collector {
	return CollectorFunc(func(err error, source string) {
		fmt.Fprintf(os.Stderr, "logpipe: [%s] %v\n", source, err)
	})
}
