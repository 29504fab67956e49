package xfilesink

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/omeyang/logpipe/pkg/sink/xsink"
	"github.com/omeyang/logpipe/pkg/util/xfile"
)

// 文件打开重试参数。瞬态失败（目录刚创建、NFS 抖动）重试即可恢复，
// 持续失败应尽快上报为激活失败。
const (
	openAttempts = 3
	openDelay    = 50 * time.Millisecond
)

// sinkState sink 生命周期状态。
type sinkState int

const (
	stateCreated sinkState = iota
	stateActivated
	stateRunning
	stateReconfigured
	stateDeactivated
)

// TextFileSink 按条目数轮转的文本文件 sink。
// 方法由 pipeline 串行 worker 调用，不会并发，不自带锁。
type TextFileSink struct {
	cfg   TextFileConfig
	state sinkState

	dir  string // 目标目录
	stem string // 文件名主干
	ext  string // 扩展名（含点）

	index   int // 当前文件的轮转序号
	entries int // 当前文件已写条目数

	file *os.File
	w    *bufio.Writer

	flushIn     int // 冲刷递减计数器
	housekeepIn int // 清理递减计数器
}

// 编译时断言：TextFileSink 满足 Sink 契约。
var _ xsink.Sink = (*TextFileSink)(nil)

// Activate 打开（或恢复）目标路径下的输出流。
// 失败只表示本 sink 未能启动，不应中止整条 pipeline。
func (s *TextFileSink) Activate() error {
	switch s.state {
	case stateDeactivated:
		return ErrDeactivated
	case stateCreated:
		// 继续激活
	default:
		return nil // 已激活，幂等
	}

	path, err := xfile.SanitizePath(s.cfg.Path)
	if err != nil {
		return fmt.Errorf("xfilesink: bad path %q: %w", s.cfg.Path, err)
	}
	if err := xfile.EnsureDir(path); err != nil {
		return fmt.Errorf("xfilesink: ensure directory for %q: %w", path, err)
	}

	s.dir = filepath.Dir(path)
	base := filepath.Base(path)
	s.ext = filepath.Ext(base)
	s.stem = strings.TrimSuffix(base, s.ext)

	// 恢复：接着已有的最高序号写，而不是从头开始
	files, err := listRotated(s.dir, s.stem, s.ext, 0)
	if err != nil {
		return fmt.Errorf("xfilesink: scan %q: %w", s.dir, err)
	}
	s.index = 1
	if len(files) > 0 {
		s.index = files[len(files)-1].Index
	}

	if err := s.open(); err != nil {
		return err
	}

	s.flushIn = s.cfg.FlushEveryNTicks
	s.housekeepIn = s.cfg.HousekeepingEveryNTicks
	s.state = stateActivated
	return nil
}

// open 打开当前序号的文件并恢复条目计数。
func (s *TextFileSink) open() error {
	name := rotatedName(s.dir, s.stem, s.ext, s.index)

	entries, err := countEntries(name)
	if err != nil {
		return fmt.Errorf("xfilesink: resume %q: %w", name, err)
	}

	var file *os.File
	err = retry.New(
		retry.Attempts(openAttempts),
		retry.Delay(openDelay),
		retry.LastErrorOnly(true),
	).Do(func() error {
		var openErr error
		//#nosec G302 G304 -- 路径已经过 SanitizePath，权限为日志文件常规值
		file, openErr = os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
		return openErr
	})
	if err != nil {
		return fmt.Errorf("xfilesink: open %q: %w", name, err)
	}

	s.file = file
	s.w = bufio.NewWriter(file)
	s.entries = entries
	return nil
}

// countEntries 统计已有文件的条目数（行数），文件不存在时为 0。
func countEntries(name string) (int, error) {
	f, err := os.Open(name) //#nosec G304 -- 路径由本包命名方案生成
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close() //nolint:errcheck // 只读句柄

	count := 0
	r := bufio.NewReader(f)
	for {
		chunk, err := r.ReadSlice('\n')
		if len(chunk) > 0 && chunk[len(chunk)-1] == '\n' {
			count++
		}
		if err != nil {
			if err == io.EOF {
				return count, nil
			}
			if err == bufio.ErrBufferFull {
				continue
			}
			return 0, err
		}
	}
}

// Handle 追加一条条目，写满先滚动。
func (s *TextFileSink) Handle(e xsink.Entry) error {
	switch s.state {
	case stateCreated:
		return ErrNotActivated
	case stateDeactivated:
		return ErrDeactivated
	}

	if s.entries >= s.cfg.MaxEntriesPerFile {
		if err := s.roll(); err != nil {
			return err
		}
	}

	if _, err := s.w.WriteString(e.Text()); err != nil {
		return fmt.Errorf("xfilesink: write %q: %w", s.file.Name(), err)
	}
	s.entries++
	s.state = stateRunning
	return nil
}

// roll 滚动到下一个轮转序号。当前文件先冲刷关闭，新旧文件的条目
// 绝不交错。
func (s *TextFileSink) roll() error {
	if err := s.flush(); err != nil {
		return err
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("xfilesink: close %q: %w", s.file.Name(), err)
	}
	s.index++
	countRotation()
	return s.open()
}

// OnTick 周期心跳：驱动冲刷与清理两个独立的递减计数器。
// 只关心归零穿越，下溢不是正确性问题。
func (s *TextFileSink) OnTick(time.Duration) {
	if s.file == nil || s.state == stateDeactivated {
		return
	}

	s.flushIn--
	if s.flushIn <= 0 {
		if err := s.flush(); err != nil {
			slog.Warn("xfilesink: periodic flush failed", "path", s.cfg.Path, "error", err)
		}
		s.flushIn = s.cfg.FlushEveryNTicks
	}

	s.housekeepIn--
	if s.housekeepIn <= 0 {
		s.housekeep()
		s.housekeepIn = s.cfg.HousekeepingEveryNTicks
	}
}

// flush 把缓冲写入推到持久存储。
func (s *TextFileSink) flush() error {
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("xfilesink: flush %q: %w", s.file.Name(), err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("xfilesink: sync %q: %w", s.file.Name(), err)
	}
	return nil
}

// housekeep 执行保留清理：删除超龄且超预算的轮转文件。
// 尽力而为，删除失败记日志后下轮再试。
func (s *TextFileSink) housekeep() {
	files, err := listRotated(s.dir, s.stem, s.ext, s.index)
	if err != nil {
		slog.Warn("xfilesink: housekeeping scan failed", "dir", s.dir, "error", err)
		return
	}

	for _, f := range PlanRetention(files, time.Now(), s.cfg.Budget()) {
		if err := os.Remove(f.Path); err != nil {
			slog.Warn("xfilesink: failed to delete rotated file", "path", f.Path, "error", err)
			continue
		}
		countDeletion()
	}
}

// ApplyConfiguration 原地采纳新参数，仅当路径（身份键）一致。
// 路径不一致时返回 false 且状态完全不变，由调用方换新实例。
func (s *TextFileSink) ApplyConfiguration(cfg xsink.Config) bool {
	next, ok := cfg.(*TextFileConfig)
	if !ok || next.Path != s.cfg.Path {
		return false
	}

	s.cfg = *next
	s.flushIn = s.cfg.FlushEveryNTicks
	s.housekeepIn = s.cfg.HousekeepingEveryNTicks

	if s.file != nil && s.state != stateDeactivated {
		if err := s.flush(); err != nil {
			slog.Warn("xfilesink: flush on reconfigure failed", "path", s.cfg.Path, "error", err)
		}
		s.state = stateReconfigured
	}
	return true
}

// Deactivate 冲刷并关闭当前文件，可安全重复调用。
func (s *TextFileSink) Deactivate() error {
	if s.state == stateDeactivated {
		return nil
	}
	s.state = stateDeactivated

	if s.file == nil {
		return nil
	}
	flushErr := s.flush()
	closeErr := s.file.Close()
	s.file = nil
	s.w = nil

	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return fmt.Errorf("xfilesink: close on deactivate: %w", closeErr)
	}
	return nil
}

// Config 返回当前生效的配置副本（诊断与测试用途）。
func (s *TextFileSink) Config() TextFileConfig {
	return s.cfg
}
