package xpipe

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/omeyang/logpipe/pkg/sink/xsink"
)

// EntryHandler 可接收日志条目的目的地。[Pipeline.Handle] 满足本接口。
type EntryHandler interface {
	Handle(e xsink.Entry) bool
}

// Bridge 宿主日志桥：启用后替换 slog 进程默认 logger 为一个
// tee handler，宿主记录一份走原 handler，一份转成 [xsink.Entry]
// 进入 pipeline。禁用时恢复原默认 logger。
//
// Enable/Disable 幂等，可被配置热更新反复下发。
type Bridge struct {
	dest EntryHandler

	mu      sync.Mutex
	prev    *slog.Logger
	enabled bool
}

// NewBridge 创建指向 dest 的宿主日志桥。
func NewBridge(dest EntryHandler) *Bridge {
	return &Bridge{dest: dest}
}

// Enable 接管 slog 默认 logger。重复启用为空操作。
func (b *Bridge) Enable() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.enabled {
		return
	}
	b.prev = slog.Default()
	slog.SetDefault(slog.New(&teeHandler{
		next: b.prev.Handler(),
		dest: b.dest,
	}))
	b.enabled = true
}

// Disable 恢复接管前的默认 logger。重复禁用为空操作。
func (b *Bridge) Disable() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.enabled {
		return
	}
	slog.SetDefault(b.prev)
	b.prev = nil
	b.enabled = false
}

// Enabled 报告桥当前是否生效。
func (b *Bridge) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// teeHandler 把 slog 记录同时交给原 handler 与 pipeline。
// 宿主记录走 [Pipeline.Handle]，受全局行级过滤约束。
type teeHandler struct {
	next   slog.Handler
	dest   EntryHandler
	attrs  []slog.Attr
	groups []string
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level) || LineEnabled(xsink.Level(level))
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.next.Enabled(ctx, r.Level) {
		err = h.next.Handle(ctx, r)
	}

	h.dest.Handle(xsink.Entry{
		Time:    r.Time,
		Level:   xsink.Level(r.Level),
		Group:   h.group(),
		Message: h.render(r),
	})
	return err
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func (h *teeHandler) group() string {
	if len(h.groups) == 0 {
		return "host"
	}
	return "host." + strings.Join(h.groups, ".")
}

// render 把消息与属性拼成单行文本，属性按 key=value 追加。
func (h *teeHandler) render(r slog.Record) string {
	var sb strings.Builder
	sb.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&sb, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&sb, a)
		return true
	})
	return sb.String()
}

func writeAttr(sb *strings.Builder, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	sb.WriteByte(' ')
	sb.WriteString(a.Key)
	sb.WriteByte('=')
	sb.WriteString(a.Value.String())
}
