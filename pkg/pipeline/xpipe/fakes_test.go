package xpipe

import (
	"sync"
	"time"

	"github.com/omeyang/logpipe/pkg/sink/xsink"
)

// spyCollector 并发安全的错误收集替身。
type spyCollector struct {
	mu     sync.Mutex
	faults []error
}

func (c *spyCollector) Report(err error, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults = append(c.faults, err)
}

func (c *spyCollector) snapshot() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.faults...)
}

// stubConfig 可注入行为的 sink 配置替身。
type stubConfig struct {
	key         string
	activateErr error
	acceptApply bool

	mu      sync.Mutex
	created []*stubSink
}

func (c *stubConfig) IdentityKey() string { return c.key }

func (c *stubConfig) NewSink() xsink.Sink {
	s := &stubSink{activateErr: c.activateErr, acceptApply: c.acceptApply}
	c.mu.Lock()
	c.created = append(c.created, s)
	c.mu.Unlock()
	return s
}

func (c *stubConfig) sinks() []*stubSink {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*stubSink(nil), c.created...)
}

// stubSink 记录一切调用的 sink 替身。
// 实际调用发生在 pipeline worker 协程上，用锁保护计数。
type stubSink struct {
	activateErr error
	acceptApply bool

	mu            sync.Mutex
	handled       []xsink.Entry
	ticks         int
	applications  int
	deactivations int
	panicOnHandle bool
}

func (s *stubSink) Activate() error { return s.activateErr }

func (s *stubSink) Handle(e xsink.Entry) error {
	s.mu.Lock()
	if s.panicOnHandle {
		s.mu.Unlock()
		panic("stub sink exploded")
	}
	s.handled = append(s.handled, e)
	s.mu.Unlock()
	return nil
}

func (s *stubSink) OnTick(time.Duration) {
	s.mu.Lock()
	s.ticks++
	s.mu.Unlock()
}

func (s *stubSink) ApplyConfiguration(cfg xsink.Config) bool {
	if _, ok := cfg.(*stubConfig); !ok || !s.acceptApply {
		return false
	}
	s.mu.Lock()
	s.applications++
	s.mu.Unlock()
	return true
}

func (s *stubSink) Deactivate() error {
	s.mu.Lock()
	s.deactivations++
	s.mu.Unlock()
	return nil
}

func (s *stubSink) entries() []xsink.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]xsink.Entry(nil), s.handled...)
}

func (s *stubSink) counts() (ticks, applications, deactivations int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks, s.applications, s.deactivations
}

// selfRecord 一条送入 target 的管线自述记录。
type selfRecord struct {
	level   xsink.Level
	message string
	tag     string
}

// recordTarget 记录一切调用的 Target 替身（控制器测试用）。
type recordTarget struct {
	mu       sync.Mutex
	applies  [][]xsink.Config
	blocking []bool
	records  []selfRecord
	disposed int
	applyErr error // 阻塞式应用的返回值
}

func (f *recordTarget) ApplyConfiguration(set []xsink.Config, blocking bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applies = append(f.applies, set)
	f.blocking = append(f.blocking, blocking)
	if blocking {
		return f.applyErr
	}
	return nil
}

func (f *recordTarget) ExternalLog(level xsink.Level, message, tag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, selfRecord{level: level, message: message, tag: tag})
}

func (f *recordTarget) Dispose() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disposed++
}

func (f *recordTarget) applyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.applies)
}

func (f *recordTarget) selfRecords() []selfRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]selfRecord(nil), f.records...)
}

func (f *recordTarget) disposeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disposed
}

// spyRegistrar 记录开关状态的注册器替身。
type spyRegistrar struct {
	mu         sync.Mutex
	unhandled  []bool
	unobserved []bool
}

func (r *spyRegistrar) SetUnhandled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unhandled = append(r.unhandled, enabled)
}

func (r *spyRegistrar) SetUnobserved(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unobserved = append(r.unobserved, enabled)
}

func (r *spyRegistrar) states() (unhandled, unobserved []bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.unhandled...), append([]bool(nil), r.unobserved...)
}

// entryRecorder 记录桥接条目的 EntryHandler 替身。
type entryRecorder struct {
	mu      sync.Mutex
	entries []xsink.Entry
}

func (r *entryRecorder) Handle(e xsink.Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return true
}

func (r *entryRecorder) snapshot() []xsink.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]xsink.Entry(nil), r.entries...)
}
