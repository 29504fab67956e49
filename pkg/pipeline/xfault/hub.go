package xfault

import (
	"fmt"
	"sync"
)

// Fault 一次进程级故障。
type Fault struct {
	// Err 故障错误值。
	Err error

	// Source 来源描述（goroutine 名、子系统名等）。
	Source string
}

// Handler 故障回调。不得阻塞，不得 panic。
type Handler func(Fault)

// kind 钩子类别。
type kind int

const (
	kindUnhandled kind = iota
	kindUnobserved
)

// Token 一次注册的句柄，用于 Remove。
type Token struct {
	id   int
	kind kind
}

// Hub 进程级故障钩子注册表。所有方法并发安全。
type Hub struct {
	mu         sync.RWMutex
	nextID     int
	unhandled  map[int]Handler
	unobserved map[int]Handler
}

// NewHub 创建独立的故障注册表（测试隔离用途）。
func NewHub() *Hub {
	return &Hub{
		unhandled:  make(map[int]Handler),
		unobserved: make(map[int]Handler),
	}
}

// defaultHub 进程级默认注册表。
var defaultHub = NewHub()

// Default 返回进程级默认注册表。
func Default() *Hub {
	return defaultHub
}

// AddUnhandled 注册未处理故障钩子。
func (h *Hub) AddUnhandled(fn Handler) Token {
	return h.add(kindUnhandled, fn)
}

// AddUnobserved 注册未观察异步故障钩子。
func (h *Hub) AddUnobserved(fn Handler) Token {
	return h.add(kindUnobserved, fn)
}

func (h *Hub) add(k kind, fn Handler) Token {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	tok := Token{id: h.nextID, kind: k}
	switch k {
	case kindUnhandled:
		h.unhandled[tok.id] = fn
	case kindUnobserved:
		h.unobserved[tok.id] = fn
	}
	return tok
}

// Remove 注销钩子。重复注销为空操作。
func (h *Hub) Remove(tok Token) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch tok.kind {
	case kindUnhandled:
		delete(h.unhandled, tok.id)
	case kindUnobserved:
		delete(h.unobserved, tok.id)
	}
}

// ReportUnhandled 投递一次未处理故障。
func (h *Hub) ReportUnhandled(err error, source string) {
	h.dispatch(kindUnhandled, Fault{Err: err, Source: source})
}

// ReportUnobserved 投递一次未观察异步故障。
func (h *Hub) ReportUnobserved(err error, source string) {
	h.dispatch(kindUnobserved, Fault{Err: err, Source: source})
}

// dispatch 在锁外调用钩子，回调 panic 被隔离。
func (h *Hub) dispatch(k kind, f Fault) {
	if f.Err == nil {
		return
	}

	h.mu.RLock()
	var handlers []Handler
	switch k {
	case kindUnhandled:
		handlers = collect(h.unhandled)
	case kindUnobserved:
		handlers = collect(h.unobserved)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		func() {
			defer func() { _ = recover() }()
			fn(f)
		}()
	}
}

func collect(m map[int]Handler) []Handler {
	out := make([]Handler, 0, len(m))
	for _, fn := range m {
		out = append(out, fn)
	}
	return out
}

// Recover 捕获当前 goroutine 的 panic 并作为未处理故障投递。
// 在 goroutine 顶部 defer 使用：
//
//	defer xfault.Default().Recover("worker")
func (h *Hub) Recover(source string) {
	if rec := recover(); rec != nil {
		h.ReportUnhandled(fmt.Errorf("panic: %v", rec), source)
	}
}

// Go 启动一个无人等待结果的 goroutine。
// fn 返回的错误作为未观察异步故障投递，panic 作为未处理故障投递。
func (h *Hub) Go(source string, fn func() error) {
	go func() {
		defer h.Recover(source)
		if err := fn(); err != nil {
			h.ReportUnobserved(err, source)
		}
	}()
}
