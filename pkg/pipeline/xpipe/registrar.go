package xpipe

import (
	"sync"

	"github.com/omeyang/logpipe/pkg/pipeline/xfault"
	"github.com/omeyang/logpipe/pkg/sink/xsink"
)

// FaultRegistrar 进程级故障捕获开关的落点。
// 两个开关相互独立，重复设同一值必须是空操作（配置热更新会
// 反复下发相同开关）。
type FaultRegistrar interface {
	// SetUnhandled 开/关未处理故障的捕获。
	SetUnhandled(enabled bool)

	// SetUnobserved 开/关未观察异步故障的捕获。
	SetUnobserved(enabled bool)
}

// NopRegistrar 返回什么也不做的注册器（默认值，测试替身）。
func NopRegistrar() FaultRegistrar {
	return nopRegistrar{}
}

type nopRegistrar struct{}

func (nopRegistrar) SetUnhandled(bool)  {}
func (nopRegistrar) SetUnobserved(bool) {}

// HubRegistrar 返回接入 [xfault.Hub] 的注册器：开关打开时在 hub
// 上挂钩子，把故障作为 Error 级管线自述记录写入 target。
// hub 为 nil 时使用进程级默认注册表。
func HubRegistrar(hub *xfault.Hub, target Target) FaultRegistrar {
	if hub == nil {
		hub = xfault.Default()
	}
	return &hubRegistrar{hub: hub, target: target}
}

type hubRegistrar struct {
	hub    *xfault.Hub
	target Target

	mu            sync.Mutex
	unhandledTok  *xfault.Token
	unobservedTok *xfault.Token
}

func (r *hubRegistrar) SetUnhandled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case enabled && r.unhandledTok == nil:
		tok := r.hub.AddUnhandled(r.forward("unhandled"))
		r.unhandledTok = &tok
	case !enabled && r.unhandledTok != nil:
		r.hub.Remove(*r.unhandledTok)
		r.unhandledTok = nil
	}
}

func (r *hubRegistrar) SetUnobserved(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case enabled && r.unobservedTok == nil:
		tok := r.hub.AddUnobserved(r.forward("unobserved"))
		r.unobservedTok = &tok
	case !enabled && r.unobservedTok != nil:
		r.hub.Remove(*r.unobservedTok)
		r.unobservedTok = nil
	}
}

// forward 把故障转成 Error 级自述记录。ExternalLog 不回抛错误，
// 满足 Handler 不得阻塞/不得 panic 的约束。
func (r *hubRegistrar) forward(tag string) xfault.Handler {
	return func(f xfault.Fault) {
		msg := f.Err.Error()
		if f.Source != "" {
			msg = f.Source + ": " + msg
		}
		r.target.ExternalLog(xsink.LevelError, msg, tag)
	}
}
