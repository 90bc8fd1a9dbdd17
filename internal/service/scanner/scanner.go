package scanner

import (
	"context"
	"errors"
	"sync"

	"linuxFileSentry/internal/alert"
	"linuxFileSentry/internal/config"
	"linuxFileSentry/internal/detector"
	"linuxFileSentry/internal/extractor"
	"linuxFileSentry/internal/logger"
	"linuxFileSentry/internal/model"
	"linuxFileSentry/internal/postmanager"
)

// ==========================================
// 文件扫描服务
// ==========================================

// pathState 单个路径的扫描状态
type pathState int

const (
	stateIdle pathState = iota
	stateScanning
)

// ScannerService 扫描工作池
// 监听层吐出的路径经任务合并后交给固定数量的 worker 处理，
// 同一路径扫描期间再次提交只置 pending 位，扫完补一轮
type ScannerService struct {
	extractor *extractor.Service
	engine    *detector.Engine
	post      *postmanager.PostManager
	deviceID  func() string

	workers   int
	ioRetries int

	tasks chan string

	mu      sync.Mutex
	states  map[string]pathState
	pending map[string]bool

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScannerService(
	ext *extractor.Service,
	engine *detector.Engine,
	post *postmanager.PostManager,
	deviceID func() string,
	cfg *config.ScannerConfig,
) *ScannerService {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}

	return &ScannerService{
		extractor: ext,
		engine:    engine,
		post:      post,
		deviceID:  deviceID,
		workers:   workers,
		ioRetries: cfg.IORetries,
		tasks:     make(chan string, cfg.QueueSize),
		states:    make(map[string]pathState),
		pending:   make(map[string]bool),
		stopChan:  make(chan struct{}),
	}
}

// Start 启动工作池
func (s *ScannerService) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	logger.Info("Scanner service started", "workers", s.workers)
}

// Stop 停止接收新任务并等待在途扫描结束
func (s *ScannerService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	logger.Info("Scanner service stopped")
}

// SubmitTask 提交一个待扫描路径
// 同一路径的重复提交会被合并，任务队列满时丢弃并告警
func (s *ScannerService) SubmitTask(path string) {
	s.mu.Lock()
	if s.states[path] == stateScanning {
		// 扫描进行中，记一笔待重扫
		s.pending[path] = true
		s.mu.Unlock()
		return
	}
	s.states[path] = stateScanning
	s.mu.Unlock()

	select {
	case s.tasks <- path:
	case <-s.stopChan:
		s.clearState(path)
	default:
		logger.Warn("Scan queue full, dropping task", "path", path)
		s.clearState(path)
	}
}

// worker 扫描循环
func (s *ScannerService) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return
		case path := <-s.tasks:
			s.scanPath(path)
			s.finishTask(path)
		}
	}
}

// finishTask 扫描收尾：有 pending 标记就立刻重新入队
func (s *ScannerService) finishTask(path string) {
	s.mu.Lock()
	rescan := s.pending[path]
	delete(s.pending, path)
	delete(s.states, path)
	s.mu.Unlock()

	if rescan {
		s.SubmitTask(path)
	}
}

func (s *ScannerService) clearState(path string) {
	s.mu.Lock()
	delete(s.states, path)
	delete(s.pending, path)
	s.mu.Unlock()
}

// scanPath 单文件完整流水线：提取 -> 检测 -> 上报
func (s *ScannerService) scanPath(path string) {
	ctx := context.Background()

	content, err := s.extractWithRetry(ctx, path)
	if err != nil {
		s.logExtractFailure(path, err)
		return
	}

	findings := s.engine.Detect(ctx, content)
	if len(findings) == 0 {
		logger.Debug("File clean", "path", path, "format", content.Format.String())
		return
	}

	logger.Info("Sensitive content detected",
		"path", path, "format", content.Format.String(), "findings", len(findings))

	for _, f := range findings {
		a := alert.Build(f, s.deviceID())
		if err := s.post.Deliver(ctx, a); err != nil {
			// 落盘都失败的告警只剩日志，继续处理其余命中
			logger.Error("Alert dropped", "alert_id", a.ID, "rule", a.RuleName, "err", err)
		}
	}
}

// extractWithRetry IO 类错误有限次重试，编辑器原子改名造成的瞬时 ENOENT 很常见
func (s *ScannerService) extractWithRetry(ctx context.Context, path string) (*model.ScannedContent, error) {
	for attempt := 0; ; attempt++ {
		c, extractErr := s.extractor.Extract(ctx, path)
		if extractErr == nil {
			return c, nil
		}
		if !errors.Is(extractErr, extractor.ErrIO) || attempt >= s.ioRetries {
			return nil, extractErr
		}
		logger.Debug("Extract IO error, retrying", "path", path, "attempt", attempt+1)
	}
}

// logExtractFailure 按错误类别分级记录
func (s *ScannerService) logExtractFailure(path string, err error) {
	switch {
	case errors.Is(err, extractor.ErrUnsupportedFormat):
		logger.Debug("Skipping unsupported file", "path", path, "err", err)
	case errors.Is(err, extractor.ErrArchiveDepth):
		logger.Warn("Archive nesting too deep", "path", path)
	case errors.Is(err, extractor.ErrCorrupt), errors.Is(err, extractor.ErrEncoding):
		logger.Warn("File unreadable", "path", path, "err", err)
	default:
		logger.Warn("Extract failed", "path", path, "err", err)
	}
}
