package xnode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Subscription 单次触发的变更订阅。
//
// 订阅在文件变更（防抖归并后）时恰好投递一次回调，随后自动失效；
// 持续监听需要在回调内对同一节点重新 Subscribe。
//
// 已知窗口：从本次投递到重新订阅生效之间发生的变更会被漏掉。该窗口
// 由单次触发模型固有决定，调用方应在回调内尽早重新订阅以缩小窗口，
// 而不是假设不存在。
type Subscription struct {
	n        *node
	watcher  *fsnotify.Watcher
	fn       func(Node)
	debounce time.Duration
	ctx      context.Context
	cancel   context.CancelFunc

	mu    sync.Mutex
	timer *time.Timer
	done  bool // 已投递或已取消
}

// Subscribe 订阅配置变更。
// 回调在独立的监视 goroutine 上执行，调用方需要自行把处理逻辑
// 汇入自己的串行化点（如 pipeline 的 worker）。
func (n *node) Subscribe(fn func(Node)) (*Subscription, error) {
	if fn == nil {
		return nil, errors.New("xnode: subscribe callback cannot be nil")
	}
	if n.t.path == "" {
		return nil, ErrNotWatchable
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xnode: failed to create watcher: %w", err)
	}

	// 监视配置文件所在目录（而非文件本身）
	// 编辑器保存时可能先删除再创建，直接监视文件会丢失事件
	dir := filepath.Dir(n.t.path)
	if err := fsWatcher.Add(dir); err != nil {
		closeErr := fsWatcher.Close()
		return nil, errors.Join(
			fmt.Errorf("xnode: failed to watch directory %s: %w", dir, err),
			closeErr,
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		n:        n,
		watcher:  fsWatcher,
		fn:       fn,
		debounce: n.t.opts.Debounce,
		ctx:      ctx,
		cancel:   cancel,
	}

	go s.run(filepath.Base(n.t.path))
	return s, nil
}

// Cancel 取消订阅。已投递或已取消时为空操作。
func (s *Subscription) Cancel() error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil
	}
	s.done = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.cancel()
	return s.watcher.Close()
}

// Active 报告订阅是否仍会投递。
func (s *Subscription) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.done
}

// run 运行监视循环，投递一次后退出。
func (s *Subscription) run(filename string) {
	for {
		select {
		case <-s.ctx.Done():
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event, filename)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("xnode: watch error", "path", s.n.t.path, "error", err)
		}
	}
}

// handleEvent 处理文件系统事件。
func (s *Subscription) handleEvent(event fsnotify.Event, filename string) {
	// 只处理目标配置文件的事件
	if filepath.Base(event.Name) != filename {
		return
	}

	// Write: 直接修改；Create: 新建（部分编辑器）；
	// Rename: 原子写入模式（写临时文件后 rename）
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	// 防抖处理：重置计时器
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.deliver)
}

// deliver 投递唯一一次回调，然后回收监视资源。
func (s *Subscription) deliver() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.mu.Unlock()

	// 重载失败也照常投递：消费方基于旧树重算并重新订阅，
	// 下次写入仍有机会被捕获。吞掉投递会让热更新静默死亡。
	if err := s.n.t.reload(); err != nil {
		slog.Warn("xnode: reload failed on change delivery", "path", s.n.t.path, "error", err)
	}

	s.fn(s.n)

	s.cancel()
	if err := s.watcher.Close(); err != nil {
		slog.Warn("xnode: failed to close watcher", "error", err)
	}
}
