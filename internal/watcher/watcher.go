package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"linuxFileSentry/internal/logger"
)

// ==========================================
// 目录树监听器
// ==========================================

// Event 一个已稳定、可以送去扫描的文件
type Event struct {
	Path string
}

// Watcher 递归监听目录树，内核事件经过防抖后才对外吐出
// 大文件写入会产生一串 Write 事件，直接扫描只会读到半截内容
type Watcher struct {
	fsWatcher *fsnotify.Watcher

	watchDirs   []string
	excludeDirs []string
	debounce    time.Duration

	// 状态表: 路径 -> 最后一次写事件时间
	state   map[string]time.Time
	stateMu sync.Mutex

	events chan Event

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New 创建监听器
// queueSize: 事件通道容量，消费端短暂卡顿时的缓冲
func New(watchDirs, excludeDirs []string, debounce time.Duration, queueSize int) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher:   fsWatcher,
		watchDirs:   watchDirs,
		excludeDirs: excludeDirs,
		debounce:    debounce,
		state:       make(map[string]time.Time),
		events:      make(chan Event, queueSize),
		done:        make(chan struct{}),
	}, nil
}

// Events 返回稳定文件事件通道
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start 注册全部监听目录并启动事件与防抖两个循环
func (w *Watcher) Start() error {
	for _, dir := range w.watchDirs {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		if err := w.addDirTree(absDir); err != nil {
			return err
		}
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()

	logger.Info("Watcher started",
		"dirs", strings.Join(w.watchDirs, ","),
		"debounce", w.debounce.String(),
	)
	return nil
}

// Stop 停止监听并关闭事件通道
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
		w.wg.Wait()
		close(w.events)
	})
	return err
}

// addDirTree 递归注册目录树
// fsnotify 不支持递归监听，每层子目录都要单独 Add
func (w *Watcher) addDirTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// 个别子目录没权限不该让整棵树失败
			logger.Warn("Skipping unreadable path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.isExcluded(path) {
			return filepath.SkipDir
		}
		if addErr := w.fsWatcher.Add(path); addErr != nil {
			logger.Warn("Failed to watch directory", "path", path, "err", addErr)
		}
		return nil
	})
}

// isExcluded 路径本身或任一祖先命中排除目录即为排除
func (w *Watcher) isExcluded(path string) bool {
	for _, ex := range w.excludeDirs {
		absEx, err := filepath.Abs(ex)
		if err != nil {
			continue
		}
		if path == absEx || strings.HasPrefix(path, absEx+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

// eventLoop 消费内核事件，只更新状态表，不做任何 IO 重活
func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if w.isExcluded(event.Name) {
				continue
			}

			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}

			// 新出现的子目录补注册，否则里面的文件写入全部漏掉
			if info.IsDir() {
				if event.Op&fsnotify.Create != 0 {
					if err := w.addDirTree(event.Name); err != nil {
						logger.Warn("Failed to watch new directory", "path", event.Name, "err", err)
					}
				}
				continue
			}

			w.stateMu.Lock()
			w.state[event.Name] = time.Now()
			w.stateMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error", "err", err)
		}
	}
}

// debounceLoop 周期性扫描状态表，把已稳定的文件吐给消费端
func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	// tick 间隔取防抖窗口的一半，保证延迟上界在 1.5 个窗口以内
	tick := w.debounce / 2
	if tick < 50*time.Millisecond {
		tick = 50 * time.Millisecond
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case now := <-ticker.C:
			w.flushStable(now)
		}
	}
}

// flushStable 找出防抖窗口内无新写入的文件并出队
func (w *Watcher) flushStable(now time.Time) {
	threshold := now.Add(-w.debounce)

	var stable []string
	w.stateMu.Lock()
	for path, lastMod := range w.state {
		if lastMod.Before(threshold) {
			stable = append(stable, path)
			delete(w.state, path)
		}
	}
	w.stateMu.Unlock()

	for _, path := range stable {
		select {
		case w.events <- Event{Path: path}:
		case <-w.done:
			return
		default:
			// 消费端堆积时把事件退回状态表，下一轮再试
			logger.Warn("Event queue full, deferring file", "path", path)
			w.stateMu.Lock()
			w.state[path] = now
			w.stateMu.Unlock()
		}
	}
}
