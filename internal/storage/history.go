package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"linuxFileSentry/internal/logger"
)

// DiskRecord 溢出落盘的物理表结构
// 业务对象统一序列化成 JSON 存 blob，表结构不随业务字段变化
type DiskRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Data      []byte `gorm:"type:blob"`
	CreatedAt int64  `gorm:"autoCreateTime"` // 用于调试查看写入时间
}

// HybridStore 混合存储引擎
// 热数据留内存，超过上限的部分溢出到 SQLite，退出时强制刷盘
type HybridStore[T any] struct {
	db        *gorm.DB
	tableName string // 对应的数据库表名 (e.g., "storage_alert_history")

	memStore []T
	memLimit int
	mu       sync.RWMutex
}

// NewHybridStore 初始化
// tableName: 必须指定，不同业务类型各占一张表
func NewHybridStore[T any](db *gorm.DB, limit int, tableName string) (*HybridStore[T], error) {
	if !db.Migrator().HasTable(tableName) {
		if err := db.Table(tableName).AutoMigrate(&DiskRecord{}); err != nil {
			logger.Error("Failed to create table", "table", tableName, "error", err)
			return nil, err
		}
		logger.Info("Created table successfully", "table", tableName)
	} else {
		logger.Debug("Table already exists", "table", tableName)
	}

	return &HybridStore[T]{
		db:        db,
		tableName: tableName,
		memStore:  make([]T, 0, limit),
		memLimit:  limit,
	}, nil
}

// Push 写入数据，内存满了就溢出落盘
func (s *HybridStore[T]) Push(item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.memStore) < s.memLimit {
		s.memStore = append(s.memStore, item)
		return nil
	}

	return s.persistToDisk([]T{item})
}

// Recent 返回内存中最近的 n 条记录，调试工具用
func (s *HybridStore[T]) Recent(n int) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.memStore) {
		n = len(s.memStore)
	}
	out := make([]T, n)
	copy(out, s.memStore[len(s.memStore)-n:])
	return out
}

// PopAll 取出并清空内存与磁盘中的全部记录
func (s *HybridStore[T]) PopAll() ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []T

	if len(s.memStore) > 0 {
		result = append(result, s.memStore...)
		s.memStore = make([]T, 0, s.memLimit)
	}

	var diskRecords []DiskRecord
	err := s.db.Table(s.tableName).Find(&diskRecords).Error
	if err != nil {
		return nil, fmt.Errorf("read disk failed: %v", err)
	}

	if len(diskRecords) > 0 {
		for _, rec := range diskRecords {
			var item T
			if err := json.Unmarshal(rec.Data, &item); err != nil {
				// 坏记录跳过，不阻塞其余数据
				logger.Error("Storage decode error", "id", rec.ID, "error", err)
				continue
			}
			result = append(result, item)
		}

		if err := s.db.Table(s.tableName).Unscoped().Where("1 = 1").Delete(&DiskRecord{}).Error; err != nil {
			return nil, fmt.Errorf("clean disk failed: %v", err)
		}
	}

	return result, nil
}

// FlushMemoryToDisk 强制刷盘 (程序退出时用)
func (s *HybridStore[T]) FlushMemoryToDisk() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.memStore) == 0 {
		return nil
	}

	if err := s.persistToDisk(s.memStore); err != nil {
		return err
	}

	flushedCount := len(s.memStore)
	s.memStore = make([]T, 0, s.memLimit)
	logger.Info("Storage flushed items to disk", "count", flushedCount, "table", s.tableName)
	return nil
}

// persistToDisk 将一组业务对象序列化写入磁盘
func (s *HybridStore[T]) persistToDisk(items []T) error {
	diskRecords := make([]DiskRecord, 0, len(items))

	for _, item := range items {
		jsonBytes, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("json marshal failed: %v", err)
		}
		diskRecords = append(diskRecords, DiskRecord{Data: jsonBytes})
	}

	if !s.db.Migrator().HasTable(s.tableName) {
		if err := s.db.Table(s.tableName).AutoMigrate(&DiskRecord{}); err != nil {
			return fmt.Errorf("create table failed: %v", err)
		}
	}

	// 批量插入，不走事务，避免和单连接 SQLite 的写锁冲突
	return s.db.Table(s.tableName).CreateInBatches(diskRecords, 100).Error
}
