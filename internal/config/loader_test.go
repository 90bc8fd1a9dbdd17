package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadConfig_Integration 是一个综合集成测试
// 它会创建一个临时配置文件，设置环境变量，然后加载配置并验证结果
func TestLoadConfig_Integration(t *testing.T) {
	// 1. 准备测试数据 (YAML 内容)
	// 故意漏掉 scanner.workers 和 retry 段，测试默认值是否生效
	// 故意写一个 server.url，稍后用环境变量覆盖它
	yamlContent := []byte(`
agent:
  log_level: "warn"
  data_dir: "/tmp/lfs_data"

server:
  url: "https://original-url.com"
  timeout: "5s"

scanner:
  watch_dirs:
    - "/home/user"
    - "/srv/share"
  debounce: "200ms"

detector:
  rules:
    - name: "project_code"
      regex: '\bPRJ-\d{6}\b'
`)

	// 2. 创建临时配置文件
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config_test.yaml")
	if err := os.WriteFile(tmpFile, yamlContent, 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	// 3. 设置环境变量 (测试 Viper 的 Env 覆盖能力)
	// server.url -> LFS_SERVER_URL
	os.Setenv("LFS_SERVER_URL", "https://env-override.com")
	defer os.Unsetenv("LFS_SERVER_URL")

	// 4. 执行加载
	// 注意：loader.go 使用了 sync.Once，这个函数在整个测试包中只能有效运行一次
	if err := LoadConfig(tmpFile); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	cfg := Get()

	// ==========================================
	// 断言验证
	// ==========================================

	// 验证 A: 配置文件中的值是否正确读取
	if cfg.Agent.LogLevel != "warn" {
		t.Errorf("Expected Agent.LogLevel 'warn', got '%s'", cfg.Agent.LogLevel)
	}
	if len(cfg.Scanner.WatchDirs) != 2 || cfg.Scanner.WatchDirs[0] != "/home/user" {
		t.Errorf("WatchDirs 读取错误: %v", cfg.Scanner.WatchDirs)
	}
	if cfg.Scanner.Debounce != 200*time.Millisecond {
		t.Errorf("Expected Scanner.Debounce 200ms, got %v", cfg.Scanner.Debounce)
	}
	if len(cfg.Detector.Rules) != 1 || cfg.Detector.Rules[0].Name != "project_code" {
		t.Errorf("自定义规则读取错误: %+v", cfg.Detector.Rules)
	}

	// 验证 B: 默认值是否生效 (文件里没写的字段走 setDefaults)
	if cfg.Scanner.Workers != 2 {
		t.Errorf("Expected Scanner.Workers default 2, got %d", cfg.Scanner.Workers)
	}
	if cfg.Retry.SweepInterval != 30*time.Second {
		t.Errorf("Expected Retry.SweepInterval default 30s, got %v", cfg.Retry.SweepInterval)
	}
	if cfg.Retry.MaxAttempts != 0 {
		t.Errorf("Expected Retry.MaxAttempts default 0, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Extractor.MaxArchiveDepth != 3 {
		t.Errorf("Expected Extractor.MaxArchiveDepth default 3, got %d", cfg.Extractor.MaxArchiveDepth)
	}
	if cfg.Database.JournalMode != "WAL" {
		t.Errorf("Expected Database.JournalMode default WAL, got %s", cfg.Database.JournalMode)
	}

	// 验证 C: 环境变量是否覆盖了配置文件
	// Viper 的优先级：Env > ConfigFile > Default
	if cfg.Server.URL != "https://env-override.com" {
		t.Errorf("Env override failed, got %s", cfg.Server.URL)
	}

	// 验证 D: 配置文件显式写的 timeout 生效
	if cfg.Server.Timeout != 5*time.Second {
		t.Errorf("Expected Server.Timeout 5s, got %v", cfg.Server.Timeout)
	}
}
