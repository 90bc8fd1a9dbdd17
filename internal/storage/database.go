package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"linuxFileSentry/internal/logger"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Options 数据库初始化选项
type Options struct {
	DataDir         string
	FileName        string
	LogLevel        string        // silent, error, warn, info
	MaxOpenConns    int           // 推荐: 1
	MaxIdleConns    int           // 推荐: 1
	ConnMaxLifetime time.Duration // 推荐: 1h
	JournalMode     string        // WAL
	Synchronous     string        // NORMAL
	TempStore       string        // MEMORY
}

// Setup 初始化本地 SQLite 数据库
// 重试队列的持久性建立在 WAL + synchronous=NORMAL 之上，进程崩溃不丢已提交行
func Setup(opts Options) error {
	var err error

	once.Do(func() {
		if mkErr := os.MkdirAll(opts.DataDir, 0755); mkErr != nil {
			err = fmt.Errorf("failed to create db dir %s: %w", opts.DataDir, mkErr)
			logger.Error("DB Setup Error", "details", err)
			return
		}

		dbPath := filepath.Join(opts.DataDir, opts.FileName)

		var gormLogLevel gormlogger.LogLevel
		switch strings.ToLower(opts.LogLevel) {
		case "silent":
			gormLogLevel = gormlogger.Silent
		case "error":
			gormLogLevel = gormlogger.Error
		case "info":
			gormLogLevel = gormlogger.Info
		default:
			gormLogLevel = gormlogger.Warn
		}

		gormConfig := &gorm.Config{
			Logger:                 gormlogger.Default.LogMode(gormLogLevel),
			PrepareStmt:            true,
			SkipDefaultTransaction: true, // 禁用默认事务，避免事务冲突
		}

		dbConn, openErr := gorm.Open(sqlite.Open(dbPath), gormConfig)
		if openErr != nil {
			err = fmt.Errorf("failed to open sqlite %s: %w", dbPath, openErr)
			logger.Error("DB Setup Error", "details", err)
			return
		}

		sqlDB, sqlErr := dbConn.DB()
		if sqlErr != nil {
			err = fmt.Errorf("failed to get sql.DB: %w", sqlErr)
			return
		}

		// SQLite 单写者，连接数锁 1，连接级 PRAGMA 只需执行一次
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

		pragmas := []string{
			fmt.Sprintf("PRAGMA journal_mode = %s;", opts.JournalMode),
			fmt.Sprintf("PRAGMA synchronous = %s;", opts.Synchronous),
			fmt.Sprintf("PRAGMA temp_store = %s;", opts.TempStore),
		}

		for _, p := range pragmas {
			if execErr := dbConn.Exec(p).Error; execErr != nil {
				err = fmt.Errorf("failed to exec pragma %s: %w", p, execErr)
				logger.Error("DB Setup Error", "details", err)
				return
			}
		}

		db = dbConn

		logger.Info("Database initialized",
			"path", dbPath,
			"journal_mode", opts.JournalMode,
		)
	})

	return err
}

// GetDB 获取数据库实例
func GetDB() (*gorm.DB, error) {
	if db == nil {
		return nil, fmt.Errorf("database not initialized! call Setup() first")
	}
	return db, nil
}

// CloseDB 关闭数据库连接
// 用于测试结束时释放资源
func CloseDB() error {
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get sql.DB: %w", err)
		}
		return sqlDB.Close()
	}
	return nil
}
