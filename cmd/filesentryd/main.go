package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"linuxFileSentry/internal/config"
	"linuxFileSentry/internal/detector"
	"linuxFileSentry/internal/extractor"
	"linuxFileSentry/internal/identity"
	"linuxFileSentry/internal/logger"
	"linuxFileSentry/internal/postmanager"
	scannerservice "linuxFileSentry/internal/service/scanner"
	"linuxFileSentry/internal/storage"
	"linuxFileSentry/internal/transport"
	"linuxFileSentry/internal/watcher"
)

// ==========================================
// 全局服务实例
// ==========================================

var (
	httpClient *transport.Client
	postMgr    *postmanager.PostManager
	scannerSvc *scannerservice.ScannerService
	fsWatcher  *watcher.Watcher
)

// ==========================================
// 参数解析
// ==========================================

// parseArgs 解析命令行参数
func parseArgs() string {
	configPath := flag.String("c", "configs/config.yml", "配置文件路径")
	flag.Parse()
	return *configPath
}

// ==========================================
// 配置加载
// ==========================================

// loadConfig 加载配置文件
func loadConfig(configPath string) error {
	fmt.Printf("正在加载配置文件: %s\n", configPath)
	if err := config.LoadConfig(configPath); err != nil {
		return fmt.Errorf("加载配置文件失败: %v", err)
	}
	fmt.Printf("配置文件加载成功: %s\n", configPath)
	return nil
}

// ==========================================
// 基础设施初始化
// ==========================================

// initLogger 初始化日志系统
func initLogger() error {
	cfg := config.Get()
	fmt.Println("正在初始化日志系统...")
	if err := logger.Setup(logger.Options{
		Level:      cfg.Agent.LogLevel,
		FilePath:   cfg.Agent.LogFile,
		MaxSize:    cfg.Agent.LogMaxSize,
		MaxBackups: cfg.Agent.LogMaxBackups,
		MaxAge:     cfg.Agent.LogMaxAge,
		Compress:   cfg.Agent.LogCompress,
		Stdout:     cfg.Agent.LogStdout,
	}); err != nil {
		return fmt.Errorf("日志系统初始化失败: %w", err)
	}
	logger.Info("Agent initialized", "version", config.Version)
	return nil
}

// initDatabase 初始化数据库
func initDatabase() error {
	fmt.Println("正在初始化数据库...")
	cfg := config.Get()
	dbCfg := cfg.Database

	if err := storage.Setup(storage.Options{
		DataDir:         cfg.Agent.DataDir,
		FileName:        dbCfg.FileName,
		LogLevel:        dbCfg.LogLevel,
		MaxOpenConns:    dbCfg.MaxOpenConns,
		MaxIdleConns:    dbCfg.MaxIdleConns,
		ConnMaxLifetime: dbCfg.ConnMaxLifetime,
		JournalMode:     dbCfg.JournalMode,
		Synchronous:     dbCfg.Synchronous,
		TempStore:       dbCfg.TempStore,
	}); err != nil {
		return fmt.Errorf("database setup failed: %w", err)
	}
	logger.Info("数据库初始化成功")
	return nil
}

// initStores 初始化存储实例
func initStores() error {
	fmt.Println("正在初始化存储实例...")
	cfg := config.Get()

	db, err := storage.GetDB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	if err := storage.SetupStores(db, storage.StoresOptions{
		AlertHistoryMemoryLimit: cfg.Storage.AlertHistoryMemoryLimit,
	}); err != nil {
		return fmt.Errorf("failed to setup stores: %w", err)
	}
	logger.Info("存储实例初始化成功")
	return nil
}

// ==========================================
// 业务模块初始化
// ==========================================

// initTransport 初始化与采集端的 HTTPS 客户端
func initTransport() error {
	fmt.Println("正在初始化传输客户端...")
	cfg := config.Get()

	client, err := transport.NewClient(&cfg.Server, identity.GetUserAgent())
	if err != nil {
		return fmt.Errorf("传输客户端初始化失败: %w", err)
	}
	httpClient = client

	logger.Info("传输客户端初始化成功", "server", cfg.Server.URL)
	return nil
}

// initIdentity 加载身份档案，未注册则立即注册
func initIdentity() error {
	fmt.Println("正在初始化身份信息...")
	cfg := config.Get()

	if err := identity.Init(cfg.Agent.DataDir); err != nil {
		return fmt.Errorf("身份信息初始化失败: %w", err)
	}

	if !identity.IsRegistered() {
		fmt.Println("本机未注册，正在向平台注册...")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()

		if err := identity.Register(ctx, httpClient, &cfg.Registration); err != nil {
			return fmt.Errorf("设备注册失败: %w", err)
		}
	}

	id := identity.Get()
	httpClient.SetUserAgent(identity.GetUserAgent())
	logger.Info("身份信息加载完成", "device_id", id.DeviceID)
	return nil
}

// initPostManager 初始化告警投递管理器
func initPostManager() {
	fmt.Println("正在初始化投递管理器...")
	cfg := config.Get()
	postMgr = postmanager.NewPostManager(httpClient, storage.GetStores(), &cfg.Retry)
	logger.Info("投递管理器初始化成功")
}

// initScannerService 初始化扫描服务
func initScannerService() error {
	fmt.Println("正在初始化扫描服务...")
	cfg := config.Get()

	registry, err := detector.NewRegistry(cfg.Detector.Rules)
	if err != nil {
		return fmt.Errorf("检测规则编译失败: %w", err)
	}
	engine := detector.NewEngine(registry, cfg.Detector.RuleTimeout)
	ext := extractor.NewService(&cfg.Extractor)

	deviceID := func() string {
		if p := identity.Get(); p != nil {
			return p.DeviceID
		}
		return ""
	}

	scannerSvc = scannerservice.NewScannerService(ext, engine, postMgr, deviceID, &cfg.Scanner)
	logger.Info("扫描服务初始化成功", "rules", len(registry.Rules()))
	return nil
}

// initWatcher 初始化目录监听
func initWatcher() error {
	fmt.Println("正在初始化目录监听...")
	cfg := config.Get()

	w, err := watcher.New(
		cfg.Scanner.WatchDirs,
		cfg.Scanner.ExcludeDirs,
		cfg.Scanner.Debounce,
		cfg.Scanner.QueueSize,
	)
	if err != nil {
		return fmt.Errorf("目录监听初始化失败: %w", err)
	}
	fsWatcher = w
	return nil
}

// ==========================================
// 服务启动
// ==========================================

// startServices 按依赖顺序拉起全部后台服务
func startServices() error {
	fmt.Println("正在启动扫描服务...")
	scannerSvc.Start()

	fmt.Println("正在启动投递管理器...")
	postMgr.Start()

	fmt.Println("正在启动目录监听...")
	if err := fsWatcher.Start(); err != nil {
		return fmt.Errorf("目录监听启动失败: %w", err)
	}

	// 监听事件接入扫描队列
	go func() {
		for ev := range fsWatcher.Events() {
			scannerSvc.SubmitTask(ev.Path)
		}
	}()

	return nil
}

// startInitialScan 启动时的全量扫描 (可选)
// 监听只覆盖启动之后的变更，存量文件靠这一轮兜底
func startInitialScan() {
	cfg := config.Get()
	if !cfg.Scanner.ScanOnStart {
		return
	}

	go func() {
		logger.Info("Initial scan started", "dirs", len(cfg.Scanner.WatchDirs))

		for _, dir := range cfg.Scanner.WatchDirs {
			err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil || info.IsDir() {
					return nil
				}
				scannerSvc.SubmitTask(path)
				time.Sleep(10 * time.Millisecond)
				return nil
			})
			if err != nil {
				logger.Error("Initial scan walk failed", "dir", dir, "error", err)
			}
		}

		logger.Info("Initial scan finished")
	}()
}

// ==========================================
// 服务停止
// ==========================================

// stopServices 逆序停止：先断事件源，再清扫描池，最后停投递
func stopServices() {
	if fsWatcher != nil {
		fmt.Println("正在停止目录监听...")
		if err := fsWatcher.Stop(); err != nil {
			logger.Error("Failed to stop watcher", "error", err)
		}
	}

	if scannerSvc != nil {
		fmt.Println("正在停止扫描服务...")
		scannerSvc.Stop()
	}

	if postMgr != nil {
		fmt.Println("正在停止投递管理器...")
		postMgr.Stop()
	}
}

// flushStorage 刷新存储
func flushStorage() {
	fmt.Println("正在刷新存储...")
	if err := storage.FlushAll(); err != nil {
		logger.Error("Failed to flush stores", "error", err)
	} else {
		logger.Info("存储刷新完成")
	}

	if err := storage.CloseDB(); err != nil {
		logger.Error("Failed to close database", "error", err)
	}
}

// ==========================================
// 主入口
// ==========================================

func main() {
	// ==========================================
	// 阶段 1: 参数解析与配置加载
	// ==========================================
	configPath := parseArgs()

	if err := loadConfig(configPath); err != nil {
		panic(fmt.Sprintf("配置加载失败: %v", err))
	}

	// ==========================================
	// 阶段 2: 基础设施初始化
	// ==========================================
	if err := initLogger(); err != nil {
		panic(fmt.Sprintf("日志系统初始化失败: %v", err))
	}

	if err := initDatabase(); err != nil {
		panic(fmt.Sprintf("数据库初始化失败: %v", err))
	}

	if err := initStores(); err != nil {
		panic(fmt.Sprintf("存储实例初始化失败: %v", err))
	}

	// ==========================================
	// 阶段 3: 业务模块初始化
	// ==========================================
	if err := initTransport(); err != nil {
		panic(fmt.Sprintf("传输客户端初始化失败: %v", err))
	}

	if err := initIdentity(); err != nil {
		panic(fmt.Sprintf("身份信息初始化失败: %v", err))
	}

	initPostManager()

	if err := initScannerService(); err != nil {
		panic(fmt.Sprintf("扫描服务初始化失败: %v", err))
	}

	if err := initWatcher(); err != nil {
		panic(fmt.Sprintf("目录监听初始化失败: %v", err))
	}

	// ==========================================
	// 阶段 4: 服务启动
	// ==========================================
	if err := startServices(); err != nil {
		stopServices()
		panic(fmt.Sprintf("服务启动失败: %v", err))
	}
	startInitialScan()

	// ==========================================
	// 阶段 5: 运行中
	// ==========================================
	fmt.Println("=== 应用已完全启动 (按 Ctrl+C 停止) ===")
	logger.Info("应用启动完成")

	// ==========================================
	// 阶段 6: 优雅退出
	// ==========================================
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	fmt.Printf("\n[Main] 收到信号: %v，正在关闭服务...\n", sig)

	stopServices()
	flushStorage()

	fmt.Println("[Main] 已安全退出")
	logger.Info("应用已退出")
}
