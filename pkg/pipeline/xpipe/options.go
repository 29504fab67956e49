package xpipe

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/logpipe/pkg/sink/xsink"
)

// =====================
// Pipeline 选项
// =====================

// pipelineOptions Pipeline 的可调参数。
type pipelineOptions struct {
	queueSize     int
	tickInterval  time.Duration
	collector     xsink.Collector
	meterProvider metric.MeterProvider
}

// PipelineOption 配置 [NewPipeline]。
type PipelineOption func(*pipelineOptions)

func newPipelineOptions(opts ...PipelineOption) pipelineOptions {
	o := pipelineOptions{
		queueSize:    1024,
		tickInterval: time.Second,
		collector:    xsink.StderrCollector(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithQueueSize 设置串行队列容量。
// 队列满时投递丢弃而非阻塞，容量决定可吸收的突发量。
func WithQueueSize(n int) PipelineOption {
	return func(o *pipelineOptions) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithTickInterval 设置心跳节拍，sink 的冲刷/清理节奏以此为单位。
func WithTickInterval(d time.Duration) PipelineOption {
	return func(o *pipelineOptions) {
		if d > 0 {
			o.tickInterval = d
		}
	}
}

// WithCollector 设置 pipeline 自身错误的收集器。
// 默认直写 stderr，避免经日志库递归回 pipeline。
func WithCollector(c xsink.Collector) PipelineOption {
	return func(o *pipelineOptions) {
		if c != nil {
			o.collector = c
		}
	}
}

// WithMeterProvider 设置 OTel MeterProvider，默认用全局 provider。
func WithMeterProvider(p metric.MeterProvider) PipelineOption {
	return func(o *pipelineOptions) {
		o.meterProvider = p
	}
}

// =====================
// Controller 选项
// =====================

// controllerOptions Controller 的可调参数。
type controllerOptions struct {
	resolver  *xsink.Resolver
	collector xsink.Collector
	registrar FaultRegistrar
	bridge    *Bridge
}

// ControllerOption 配置 [NewController]。
type ControllerOption func(*controllerOptions)

func newControllerOptions(opts ...ControllerOption) controllerOptions {
	o := controllerOptions{
		collector: xsink.StderrCollector(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.resolver == nil {
		o.resolver = xsink.NewResolver(nil, o.collector)
	}
	if o.registrar == nil {
		o.registrar = NopRegistrar()
	}
	return o
}

// WithResolver 设置配置集解析器。
// 默认基于全局注册表与控制器收集器新建。
func WithResolver(r *xsink.Resolver) ControllerOption {
	return func(o *controllerOptions) {
		o.resolver = r
	}
}

// WithControllerCollector 设置控制器自身错误的收集器。
func WithControllerCollector(c xsink.Collector) ControllerOption {
	return func(o *controllerOptions) {
		if c != nil {
			o.collector = c
		}
	}
}

// WithRegistrar 设置进程级故障捕获开关的落点。
// 默认空实现；接入 [xfault.Hub] 用 [HubRegistrar]。
func WithRegistrar(r FaultRegistrar) ControllerOption {
	return func(o *controllerOptions) {
		if r != nil {
			o.registrar = r
		}
	}
}

// WithBridge 设置宿主日志桥。nil 表示不提供桥接能力，
// 相关配置键被静默忽略。
func WithBridge(b *Bridge) ControllerOption {
	return func(o *controllerOptions) {
		o.bridge = b
	}
}
