package scanner

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"linuxFileSentry/internal/config"
	"linuxFileSentry/internal/detector"
	"linuxFileSentry/internal/extractor"
	"linuxFileSentry/internal/model"
	"linuxFileSentry/internal/postmanager"
	"linuxFileSentry/internal/storage"
	"linuxFileSentry/internal/transport"
)

// ==========================================
// 测试脚手架：完整流水线 + 模拟采集端
// ==========================================

type sink struct {
	mu       sync.Mutex
	received []model.Alert
}

func (s *sink) handler(w http.ResponseWriter, r *http.Request) {
	var a model.Alert
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.received = append(s.received, a)
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *sink) alerts() []model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Alert, len(s.received))
	copy(out, s.received)
	return out
}

// waitFor 轮询等待条件成立
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func newPipeline(t *testing.T, serverURL string, workers int) *ScannerService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "scan.db")), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	queue, err := storage.NewQueueStore(db)
	if err != nil {
		t.Fatal(err)
	}
	history, err := storage.NewHybridStore[model.Alert](db, 10, "storage_alert_history")
	if err != nil {
		t.Fatal(err)
	}
	stores := &storage.Stores{Queue: queue, AlertHistory: history}

	client, err := transport.NewClient(&config.ServerConfig{
		URL:     serverURL,
		Timeout: 5 * time.Second,
	}, "test-agent")
	if err != nil {
		t.Fatal(err)
	}
	pm := postmanager.NewPostManager(client, stores, &config.RetryConfig{
		SweepInterval: time.Hour,
		BackoffBase:   time.Second,
		BackoffMax:    time.Minute,
	})

	registry, err := detector.NewRegistry(nil)
	if err != nil {
		t.Fatal(err)
	}
	engine := detector.NewEngine(registry, 500*time.Millisecond)
	ext := extractor.NewService(&config.ExtractorConfig{
		MaxFileSize:     10 * 1024 * 1024,
		MaxArchiveDepth: 3,
		MaxEntrySize:    1024 * 1024,
	})

	svc := NewScannerService(ext, engine, pm, func() string { return "dev-test" }, &config.ScannerConfig{
		Workers:   workers,
		QueueSize: 32,
		IORetries: 1,
	})
	svc.Start()
	t.Cleanup(svc.Stop)
	return svc
}

// ==========================================
// 用例
// ==========================================

func TestScanPipelineDeliversAlert(t *testing.T) {
	srv := &sink{}
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	svc := newPipeline(t, ts.URL, 2)

	dir := t.TempDir()
	path := filepath.Join(dir, "leak.txt")
	if err := os.WriteFile(path, []byte("contact alice@example.com asap"), 0644); err != nil {
		t.Fatal(err)
	}

	svc.SubmitTask(path)

	if !waitFor(t, 3*time.Second, func() bool { return len(srv.alerts()) >= 1 }) {
		t.Fatal("超时未收到告警")
	}

	a := srv.alerts()[0]
	if a.RuleName != "email" {
		t.Errorf("RuleName = %q, want email", a.RuleName)
	}
	if a.FilePath != path {
		t.Errorf("FilePath = %q, want %q", a.FilePath, path)
	}
	if a.DeviceID != "dev-test" {
		t.Errorf("DeviceID = %q", a.DeviceID)
	}
	if a.MatchedSnippet != "alice@example.com" {
		t.Errorf("MatchedSnippet = %q", a.MatchedSnippet)
	}
	if a.ID == "" {
		t.Error("告警缺少 ID")
	}
}

func TestScanPipelineCleanFile(t *testing.T) {
	srv := &sink{}
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	svc := newPipeline(t, ts.URL, 2)

	dir := t.TempDir()
	path := filepath.Join(dir, "clean.txt")
	if err := os.WriteFile(path, []byte("nothing to see here"), 0644); err != nil {
		t.Fatal(err)
	}

	svc.SubmitTask(path)

	// 干净文件不应产生任何上报
	time.Sleep(500 * time.Millisecond)
	if got := srv.alerts(); len(got) != 0 {
		t.Errorf("干净文件产生了告警: %v", got)
	}
}

// gatedSink 第一次上报会卡在响应前，用于人为拉长扫描在途时间
type gatedSink struct {
	sink
	release chan struct{}
}

func (g *gatedSink) handler(w http.ResponseWriter, r *http.Request) {
	var a model.Alert
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	g.mu.Lock()
	g.received = append(g.received, a)
	g.mu.Unlock()

	<-g.release
	w.WriteHeader(http.StatusOK)
}

func TestScanPipelineCoalescesBusyPath(t *testing.T) {
	srv := &gatedSink{release: make(chan struct{})}
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	svc := newPipeline(t, ts.URL, 1)

	dir := t.TempDir()
	path := filepath.Join(dir, "busy.txt")
	if err := os.WriteFile(path, []byte("contact alice@example.com asap"), 0644); err != nil {
		t.Fatal(err)
	}

	svc.SubmitTask(path)

	// 等首次扫描进入投递阶段 (采集端收到但尚未应答，路径处于 Scanning)
	if !waitFor(t, 3*time.Second, func() bool { return len(srv.alerts()) == 1 }) {
		t.Fatal("首次扫描未到达采集端")
	}

	// 在途期间连续提交同一路径，应全部合并成一次待重扫
	for i := 0; i < 5; i++ {
		svc.SubmitTask(path)
	}

	// 首次扫描还卡着，不允许出现并发重复扫描
	time.Sleep(200 * time.Millisecond)
	if got := len(srv.alerts()); got != 1 {
		t.Fatalf("在途期间出现了重复扫描: 收到 %d 次上报", got)
	}

	// 放行后应恰好补扫一轮，不多不少
	close(srv.release)
	if !waitFor(t, 3*time.Second, func() bool { return len(srv.alerts()) == 2 }) {
		t.Fatalf("合并后的补扫未执行: 收到 %d 次上报", len(srv.alerts()))
	}

	time.Sleep(300 * time.Millisecond)
	if got := len(srv.alerts()); got != 2 {
		t.Errorf("补扫应只有一轮: 收到 %d 次上报", got)
	}
}

func TestScanPipelineMissingFileNoAlert(t *testing.T) {
	srv := &sink{}
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	svc := newPipeline(t, ts.URL, 2)

	svc.SubmitTask(filepath.Join(t.TempDir(), "vanished.txt"))

	time.Sleep(500 * time.Millisecond)
	if got := srv.alerts(); len(got) != 0 {
		t.Errorf("不存在的文件产生了告警: %v", got)
	}
}
