package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// GlobalConfig 全局配置单例
// 在调用 LoadConfig 成功后，该变量会被填充，后续模块直接读取即可
var (
	GlobalConfig *AppConfig
	loadOnce     sync.Once
)

// LoadConfig 加载配置
// configPath: 配置文件路径 (e.g., "/etc/linuxFileSentry/config.yml")
// 如果传入空字符串，Viper 会尝试在默认路径搜索
func LoadConfig(configPath string) error {
	var err error

	loadOnce.Do(func() {
		v := viper.New()

		// 1. 设置默认值 (兜底策略)
		setDefaults(v)

		// 2. 配置读取规则
		if configPath != "" {
			// 如果指定了具体文件，直接读取
			v.SetConfigFile(configPath)
		} else {
			// 否则在常见目录搜索名为 "config" 的文件
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath("/etc/linuxFileSentry/") // 生产环境标准路径
			v.AddConfigPath(".")                     // 当前目录 (开发调试用)
		}

		// 3. 配置环境变量覆盖
		// 允许通过环境变量 LFS_SERVER_URL 来覆盖 server.url
		v.SetEnvPrefix("LFS")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		// 4. 读取配置文件
		if err = v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				err = fmt.Errorf("config file not found: %v", err)
				return
			}
			err = fmt.Errorf("failed to read config file: %v", err)
			return
		}

		// 5. 反序列化到结构体
		var config AppConfig
		if err = v.Unmarshal(&config); err != nil {
			err = fmt.Errorf("failed to unmarshal config: %v", err)
			return
		}

		// 6. 赋值给全局单例
		GlobalConfig = &config
		fmt.Printf("[Config] Loaded successfully from: %s\n", v.ConfigFileUsed())
	})

	return err
}

// setDefaults 定义配置文件的“默认行为”
func setDefaults(v *viper.Viper) {
	// Agent 基础
	v.SetDefault("agent.log_level", "info")
	v.SetDefault("agent.log_file", "/var/log/linuxFileSentry/agent.log")
	v.SetDefault("agent.data_dir", "/var/lib/linuxFileSentry") // 数据存储目录默认值
	v.SetDefault("agent.log_max_size", 100)                    // 100MB 切割
	v.SetDefault("agent.log_max_backups", 5)                   // 保留最近 5 个
	v.SetDefault("agent.log_max_age", 30)                      // 保留 30 天
	v.SetDefault("agent.log_compress", true)                   // 默认压缩旧日志
	v.SetDefault("agent.log_stdout", false)                    // 生产环境默认不打控制台

	// Server 通信
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("server.max_idle_conns", 10)
	v.SetDefault("server.idle_conn_timeout", "30s")

	// Scanner 扫描策略 (保守默认值)
	v.SetDefault("scanner.watch_dirs", []string{"/home"}) // 默认只扫 home
	v.SetDefault("scanner.workers", 2)
	v.SetDefault("scanner.debounce", "500ms")
	v.SetDefault("scanner.queue_size", 256)
	v.SetDefault("scanner.io_retries", 2)

	// Extractor 提取器
	v.SetDefault("extractor.max_file_size", 50*1024*1024) // 50MB
	v.SetDefault("extractor.max_archive_depth", 3)
	v.SetDefault("extractor.max_entry_size", 10*1024*1024) // 10MB

	// Detector 检测规则
	v.SetDefault("detector.rule_timeout", "500ms")

	// Retry 补发策略
	v.SetDefault("retry.sweep_interval", "30s")
	v.SetDefault("retry.backoff_base", "30s")
	v.SetDefault("retry.backoff_max", "30m")
	v.SetDefault("retry.max_attempts", 0) // 默认不因次数放弃

	// Database 数据库配置
	v.SetDefault("database.file_name", "agent.db")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.journal_mode", "WAL")
	v.SetDefault("database.synchronous", "NORMAL")
	v.SetDefault("database.temp_store", "MEMORY")

	// Storage 存储引擎配置
	v.SetDefault("storage.alert_history_memory_limit", 100) // 告警历史内存限制：100条

	// Registration 注册信息
	v.SetDefault("registration.environment", "production")
}

// Get 获取配置的安全访问器
func Get() *AppConfig {
	if GlobalConfig == nil {
		// 未初始化就取配置属于编码错误，直接 panic 暴露出来
		panic("Config not initialized! Call LoadConfig() first.")
	}
	return GlobalConfig
}
