// Package config
package config

import "time"

// Version 当前 Agent 版本号，随发布更新
const Version = "1.0.0"

// ==========================================
// 顶层配置结构
// ==========================================

type AppConfig struct {
	Agent        AgentConfig        `mapstructure:"agent" yaml:"agent"`
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Scanner      ScannerConfig      `mapstructure:"scanner" yaml:"scanner"`
	Extractor    ExtractorConfig    `mapstructure:"extractor" yaml:"extractor"`
	Detector     DetectorConfig     `mapstructure:"detector" yaml:"detector"`
	Retry        RetryConfig        `mapstructure:"retry" yaml:"retry"`
	Database     DatabaseConfig     `mapstructure:"database" yaml:"database"`
	Storage      StorageConfig      `mapstructure:"storage" yaml:"storage"`
	Registration RegistrationConfig `mapstructure:"registration" yaml:"registration"`
}

// ==========================================
// 1. 基础配置
// ==========================================

type AgentConfig struct {
	// 日志级别: debug, info, warn, error
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// 日志文件路径
	LogFile string `mapstructure:"log_file" yaml:"log_file"`
	// 数据存储目录 (身份档案、本地数据库)
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	// 日志轮转配置
	LogMaxSize    int  `mapstructure:"log_max_size" yaml:"log_max_size"`       // MB
	LogMaxBackups int  `mapstructure:"log_max_backups" yaml:"log_max_backups"` // 个数
	LogMaxAge     int  `mapstructure:"log_max_age" yaml:"log_max_age"`         // 天数
	LogCompress   bool `mapstructure:"log_compress" yaml:"log_compress"`       // 是否压缩
	LogStdout     bool `mapstructure:"log_stdout" yaml:"log_stdout"`           // 是否打印到控制台
}

// ==========================================
// 2. 通信配置
// ==========================================

type ServerConfig struct {
	// 采集平台地址 (e.g., https://10.0.0.1:8443)
	URL string `mapstructure:"url" yaml:"url"`
	// CA 根证书路径 (可选，走系统信任链时留空)
	CACert string `mapstructure:"ca_cert" yaml:"ca_cert"`
	// 客户端证书路径 (可选，双向认证时使用)
	ClientCert string `mapstructure:"client_cert" yaml:"client_cert"`
	// 客户端私钥路径
	ClientKey string `mapstructure:"client_key" yaml:"client_key"`
	// HTTP 请求超时
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// 最大空闲连接数
	MaxIdleConns int `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	// 空闲连接超时
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
}

// ==========================================
// 3. 扫描策略
// ==========================================

type ScannerConfig struct {
	// 监控目录列表
	WatchDirs []string `mapstructure:"watch_dirs" yaml:"watch_dirs"`
	// 排除目录列表
	ExcludeDirs []string `mapstructure:"exclude_dirs" yaml:"exclude_dirs"`
	// 并发 Worker 数
	Workers int `mapstructure:"workers" yaml:"workers"`
	// 事件去抖窗口：同一文件在窗口内的多次变更合并为一次扫描
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	// 任务队列长度
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
	// IO 错误的即时重试次数
	IORetries int `mapstructure:"io_retries" yaml:"io_retries"`
	// 启动时是否对监控目录做一次全量扫描
	ScanOnStart bool `mapstructure:"scan_on_start" yaml:"scan_on_start"`
}

// ==========================================
// 4. 提取器配置
// ==========================================

type ExtractorConfig struct {
	// 单文件大小上限 (字节)，超出直接跳过
	MaxFileSize int64 `mapstructure:"max_file_size" yaml:"max_file_size"`
	// 压缩包嵌套深度上限，防解压炸弹
	MaxArchiveDepth int `mapstructure:"max_archive_depth" yaml:"max_archive_depth"`
	// 压缩包单条目解压上限 (字节)
	MaxEntrySize int64 `mapstructure:"max_entry_size" yaml:"max_entry_size"`
}

// ==========================================
// 5. 检测规则配置
// ==========================================

type DetectorConfig struct {
	// 单条规则的匹配耗时预算，超时按未命中处理
	RuleTimeout time.Duration `mapstructure:"rule_timeout" yaml:"rule_timeout"`
	// 自定义规则，与内置规则合并；重名视为配置错误
	Rules []RuleConfig `mapstructure:"rules" yaml:"rules"`
}

type RuleConfig struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Regex string `mapstructure:"regex" yaml:"regex"`
}

// ==========================================
// 6. 补发重试策略
// ==========================================

type RetryConfig struct {
	// 补发扫描周期
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	// 退避基数：第 n 次失败后等待 base * 2^(n-1)
	BackoffBase time.Duration `mapstructure:"backoff_base" yaml:"backoff_base"`
	// 退避上限
	BackoffMax time.Duration `mapstructure:"backoff_max" yaml:"backoff_max"`
	// 最大尝试次数，0 表示不放弃
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// ==========================================
// 7. 数据库配置
// ==========================================

type DatabaseConfig struct {
	// 数据库文件名
	FileName string `mapstructure:"file_name" yaml:"file_name"`
	// GORM 日志级别: silent, error, warn, info
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// 最大打开连接数 (SQLite 建议 1)
	MaxOpenConns int `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	// 最大空闲连接数 (SQLite 建议 1)
	MaxIdleConns int `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	// SQLite Journal 模式: WAL, DELETE, TRUNCATE, PERSIST, MEMORY
	JournalMode string `mapstructure:"journal_mode" yaml:"journal_mode"`
	// SQLite 同步模式: FULL, NORMAL, OFF
	Synchronous string `mapstructure:"synchronous" yaml:"synchronous"`
	// SQLite 临时存储: MEMORY, FILE
	TempStore string `mapstructure:"temp_store" yaml:"temp_store"`
}

// ==========================================
// 8. 存储引擎配置
// ==========================================

type StorageConfig struct {
	// 已发送告警历史的内存上限，超出溢写到磁盘
	AlertHistoryMemoryLimit int `mapstructure:"alert_history_memory_limit" yaml:"alert_history_memory_limit"`
}

// ==========================================
// 9. 注册信息
// ==========================================

type RegistrationConfig struct {
	DeviceName   string `mapstructure:"device_name" yaml:"device_name"`
	Organization string `mapstructure:"organization" yaml:"organization"`
	Environment  string `mapstructure:"environment" yaml:"environment"`
	Location     string `mapstructure:"location" yaml:"location"`
	AdminEmail   string `mapstructure:"admin_email" yaml:"admin_email"`
	PolicyGroup  string `mapstructure:"policy_group" yaml:"policy_group"`
	LicenseKey   string `mapstructure:"license_key" yaml:"license_key"`
}
