package xpipe

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// instrumentationName OTel instrumentation 名称。
const instrumentationName = "github.com/omeyang/logpipe/xpipe"

// pipeMetrics pipeline 的运行计数器。
type pipeMetrics struct {
	entries      metric.Int64Counter // 成功入队的条目
	dropped      metric.Int64Counter // 队列满被丢弃的条目
	reconfigures metric.Int64Counter // 配置应用次数
	sinkFailures metric.Int64Counter // sink 激活/应用失败次数
	ticks        metric.Int64Counter // 心跳次数
}

// newPipeMetrics 基于全局 MeterProvider 创建计数器。
func newPipeMetrics(provider metric.MeterProvider) (*pipeMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentationName)

	m := &pipeMetrics{}
	var err error

	if m.entries, err = meter.Int64Counter(
		"logpipe.entries.total",
		metric.WithDescription("entries accepted by the pipeline"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("xpipe: create counter failed: %w", err)
	}
	if m.dropped, err = meter.Int64Counter(
		"logpipe.entries.dropped",
		metric.WithDescription("entries dropped because the queue was full"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("xpipe: create counter failed: %w", err)
	}
	if m.reconfigures, err = meter.Int64Counter(
		"logpipe.reconfigure.total",
		metric.WithDescription("sink set applications"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("xpipe: create counter failed: %w", err)
	}
	if m.sinkFailures, err = meter.Int64Counter(
		"logpipe.sink.failures",
		metric.WithDescription("sink activation or application failures"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("xpipe: create counter failed: %w", err)
	}
	if m.ticks, err = meter.Int64Counter(
		"logpipe.ticks.total",
		metric.WithDescription("heartbeat ticks delivered to sinks"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("xpipe: create counter failed: %w", err)
	}
	return m, nil
}

// add 空安全的计数辅助。
func (m *pipeMetrics) add(c metric.Int64Counter, n int64) {
	if m == nil || c == nil {
		return
	}
	c.Add(context.Background(), n)
}
