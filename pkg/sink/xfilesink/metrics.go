package xfilesink

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// instrumentationName OTel instrumentation 名称。
const instrumentationName = "github.com/omeyang/logpipe/xfilesink"

// 包级计数器：sink 实例随重配置频繁生灭，计数器跟 meter 走而不跟实例走。
var (
	metricsOnce   sync.Once
	rotationCount metric.Int64Counter
	deleteCount   metric.Int64Counter
)

func sinkMetrics() (rotations, deletions metric.Int64Counter) {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(instrumentationName)

		var err error
		rotationCount, err = meter.Int64Counter(
			"logpipe.file.rotations",
			metric.WithDescription("file rotations triggered by the entry budget"),
			metric.WithUnit("1"),
		)
		if err != nil {
			slog.Warn("xfilesink: create rotation counter failed", "error", err)
		}
		deleteCount, err = meter.Int64Counter(
			"logpipe.file.retention.deleted",
			metric.WithDescription("rotated files removed by retention housekeeping"),
			metric.WithUnit("1"),
		)
		if err != nil {
			slog.Warn("xfilesink: create retention counter failed", "error", err)
		}
	})
	return rotationCount, deleteCount
}

// countRotation 记一次轮转。
func countRotation() {
	if rotations, _ := sinkMetrics(); rotations != nil {
		rotations.Add(context.Background(), 1)
	}
}

// countDeletion 记一次保留清理删除。
func countDeletion() {
	if _, deletions := sinkMetrics(); deletions != nil {
		deletions.Add(context.Background(), 1)
	}
}
