package xpipe

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/omeyang/logpipe/pkg/sink/xsink"
)

// Target 日志事件与配置集的接收端。
//
// [Controller] 只依赖本接口，测试可以注入记录型替身。
type Target interface {
	// ApplyConfiguration 采纳一个新的 sink 配置集。
	//
	// blocking 为 true 时阻塞到应用完成并返回结果（首次应用路径）；
	// 为 false 时 fire-and-forget，应用期间的失败只上报收集器，
	// 返回值仅表示任务是否成功入队。
	ApplyConfiguration(set []xsink.Config, blocking bool) error

	// ExternalLog 注入一条绕过全局过滤的管线自述记录
	// （过滤阈值变更通告、宿主日志桥接等）。
	ExternalLog(level xsink.Level, message, tag string)

	// Dispose 停止调度并停用所有 sink，可安全重复调用。
	Dispose()
}

// task 串行 worker 的一个工作单元。
// done 非 nil 时 worker 在 fn 返回后关闭它（阻塞式应用的回执）。
type task struct {
	fn   func()
	done chan struct{}
}

// Pipeline 活动 sink 集的调度器，实现 [Target]。
//
// 所有 sink 访问（投递、心跳、配置应用、停用）都经由单一串行
// worker，sinks/order/lastTick 只在 worker 协程内读写，不加锁。
type Pipeline struct {
	id        string
	collector xsink.Collector
	metrics   *pipeMetrics

	queue    chan task
	stopped  chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	cron     *cron.Cron
	interval time.Duration

	// 以下状态仅 worker 协程触碰。
	sinks    map[string]xsink.Sink
	order    []string
	lastTick time.Time
}

var _ Target = (*Pipeline)(nil)

// NewPipeline 创建并启动一个空 pipeline。
//
// 返回时串行 worker 与心跳调度均已运行；在第一次
// ApplyConfiguration 之前投递的条目会被正常消费但无处可写。
func NewPipeline(opts ...PipelineOption) (*Pipeline, error) {
	o := newPipelineOptions(opts...)

	metrics, err := newPipeMetrics(o.meterProvider)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		id:        uuid.NewString(),
		collector: o.collector,
		metrics:   metrics,
		queue:     make(chan task, o.queueSize),
		stopped:   make(chan struct{}),
		cron:      cron.New(),
		interval:  o.tickInterval,
		sinks:     make(map[string]xsink.Sink),
	}

	p.wg.Add(1)
	go p.worker()

	// @every 描述符走 time.ParseDuration，天然支持亚分钟节拍。
	if _, err := p.cron.AddFunc(fmt.Sprintf("@every %s", o.tickInterval), p.submitTick); err != nil {
		p.Dispose()
		return nil, fmt.Errorf("xpipe: schedule heartbeat failed: %w", err)
	}
	p.cron.Start()

	slog.Debug("xpipe: pipeline started", "id", p.id, "tick", o.tickInterval.String())
	return p, nil
}

// ID 返回本 pipeline 实例的唯一标识。
func (p *Pipeline) ID() string {
	return p.id
}

// Handle 投递一条日志条目。
//
// 行级过滤在此兜底执行；队列满或 pipeline 已销毁时条目被丢弃并
// 计数，绝不阻塞发射方。返回条目是否成功入队。
func (p *Pipeline) Handle(e xsink.Entry) bool {
	if !LineEnabled(e.Level) {
		return false
	}
	return p.enqueue(e)
}

// ExternalLog 实现 [Target] 接口。
//
// 管线自述记录不受全局过滤约束：阈值变更通告本身不能被它所
// 通告的阈值拦下。
func (p *Pipeline) ExternalLog(level xsink.Level, message, tag string) {
	p.enqueue(xsink.Entry{
		Time:    time.Now(),
		Level:   level,
		Group:   tag,
		Message: message,
	})
}

func (p *Pipeline) enqueue(e xsink.Entry) bool {
	ok := p.submit(task{fn: func() { p.deliver(e) }})
	if ok {
		p.metrics.add(p.metrics.entries, 1)
	} else {
		p.metrics.add(p.metrics.dropped, 1)
	}
	return ok
}

// ApplyConfiguration 实现 [Target] 接口。
func (p *Pipeline) ApplyConfiguration(set []xsink.Config, blocking bool) error {
	var applyErr error
	t := task{fn: func() { applyErr = p.apply(set) }}
	if blocking {
		t.done = make(chan struct{})
	}
	if !p.submit(t) {
		return ErrDisposed
	}
	if blocking {
		<-t.done
		return applyErr
	}
	return nil
}

// Dispose 实现 [Target] 接口。
//
// 停止心跳，排干队列中已入队的任务，再停用所有 sink。
// worker 已退出，此处可以独占访问 sinks。
func (p *Pipeline) Dispose() {
	p.stopOnce.Do(func() {
		p.cron.Stop()
		close(p.stopped)
		close(p.queue)
		p.wg.Wait()

		for _, key := range p.order {
			if err := p.sinks[key].Deactivate(); err != nil {
				p.collector.Report(fmt.Errorf("deactivate sink %q: %w", key, err), "pipeline-dispose")
			}
		}
		p.sinks = nil
		p.order = nil
		slog.Debug("xpipe: pipeline disposed", "id", p.id)
	})
}

// submit 尝试把任务放入队列。
// 与 Dispose 的 close(queue) 存在先检查后发送的窗口，用 recover
// 吸收向已关闭通道发送的 panic，按投递失败处理。
func (p *Pipeline) submit(t task) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	select {
	case <-p.stopped:
		return false
	default:
	}

	select {
	case p.queue <- t:
		return true
	default:
		return false
	}
}

// submitTick 由 cron 周期触发，把一次心跳排入串行队列。
func (p *Pipeline) submitTick() {
	p.submit(task{fn: p.tick})
}

// worker 串行消费任务。任务内 panic 被隔离并上报，不中断循环。
func (p *Pipeline) worker() {
	defer p.wg.Done()
	for t := range p.queue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.collector.Report(fmt.Errorf("task panic: %v", r), "pipeline-worker")
				}
			}()
			t.fn()
		}()
		if t.done != nil {
			close(t.done)
		}
	}
}

// deliver 把条目写入所有活动 sink。单个 sink 失败不影响其余。
func (p *Pipeline) deliver(e xsink.Entry) {
	for _, key := range p.order {
		if err := p.sinks[key].Handle(e); err != nil {
			p.metrics.add(p.metrics.sinkFailures, 1)
			p.collector.Report(fmt.Errorf("sink %q handle: %w", key, err), "pipeline-deliver")
		}
	}
}

// tick 把一次心跳广播给所有活动 sink。
func (p *Pipeline) tick() {
	now := time.Now()
	elapsed := p.interval
	if !p.lastTick.IsZero() {
		elapsed = now.Sub(p.lastTick)
	}
	p.lastTick = now

	for _, key := range p.order {
		p.sinks[key].OnTick(elapsed)
	}
	p.metrics.add(p.metrics.ticks, 1)
}

// apply 用新配置集调和当前 sink 集。
//
// 按身份键逐条匹配：
//   - 键已存在且实例原地采纳成功 → 复用实例；
//   - 键已存在但实例拒绝（同路径不同类型）→ 停用旧实例、建新实例；
//   - 新键 → 构造并激活，失败只上报并跳过；
//   - 新集合中消失的键 → 停用。
//
// 部分成功即为成功，没有回滚。只有"新集合非空但没有任何 sink
// 激活"才返回错误，供首次应用判定致命。
func (p *Pipeline) apply(set []xsink.Config) error {
	p.metrics.add(p.metrics.reconfigures, 1)

	next := make(map[string]xsink.Sink, len(set))
	order := make([]string, 0, len(set))

	for _, cfg := range set {
		key := cfg.IdentityKey()
		if _, dup := next[key]; dup {
			p.collector.Report(fmt.Errorf("duplicate sink identity %q, later entry ignored", key), "pipeline-apply")
			continue
		}

		if existing, held := p.sinks[key]; held {
			if existing.ApplyConfiguration(cfg) {
				next[key] = existing
				order = append(order, key)
				delete(p.sinks, key)
				continue
			}
			// 同身份键但实例不认：换新。
			if err := existing.Deactivate(); err != nil {
				p.collector.Report(fmt.Errorf("deactivate sink %q: %w", key, err), "pipeline-apply")
			}
			delete(p.sinks, key)
		}

		sink := cfg.NewSink()
		if err := sink.Activate(); err != nil {
			p.metrics.add(p.metrics.sinkFailures, 1)
			p.collector.Report(fmt.Errorf("activate sink %q: %w", key, err), "pipeline-apply")
			continue
		}
		next[key] = sink
		order = append(order, key)
	}

	// 残留在旧集合里的键已不在新配置中，停用。
	for key, sink := range p.sinks {
		if err := sink.Deactivate(); err != nil {
			p.collector.Report(fmt.Errorf("deactivate sink %q: %w", key, err), "pipeline-apply")
		}
	}

	p.sinks = next
	p.order = order

	if len(order) == 0 && len(set) > 0 {
		return ErrNoOperationalSink
	}
	return nil
}
