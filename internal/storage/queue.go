package storage

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"linuxFileSentry/internal/logger"
)

// ==========================================
// 告警重试持久队列
// ==========================================

// QueuedAlertRow 持久队列的物理表结构
// Payload 存告警完整 JSON，队列不关心业务字段，重投时原样回放
type QueuedAlertRow struct {
	ID            string    `gorm:"type:varchar(36);primaryKey"`
	Payload       []byte    `gorm:"type:blob;not null"`
	AttemptCount  int       `gorm:"not null;default:0"`
	FirstQueuedAt time.Time `gorm:"not null"`
	NextRetryAt   time.Time `gorm:"not null;index"`
}

func (QueuedAlertRow) TableName() string {
	return "queued_alerts"
}

// QueueStore 投递失败告警的落盘队列
// 每次状态变更都直接写库，进程重启后从库里恢复待投记录
type QueueStore struct {
	db *gorm.DB
}

func NewQueueStore(db *gorm.DB) (*QueueStore, error) {
	if err := db.AutoMigrate(&QueuedAlertRow{}); err != nil {
		logger.Error("Failed to migrate queue table", "error", err)
		return nil, fmt.Errorf("migrate queued_alerts: %w", err)
	}
	return &QueueStore{db: db}, nil
}

// Enqueue 入队一条投递失败的告警
// 同 ID 重复入队按已存在处理，不报错也不重置重试状态
func (s *QueueStore) Enqueue(id string, payload []byte, nextRetryAt time.Time) error {
	row := QueuedAlertRow{
		ID:            id,
		Payload:       payload,
		AttemptCount:  1,
		FirstQueuedAt: time.Now().UTC(),
		NextRetryAt:   nextRetryAt,
	}

	err := s.db.Create(&row).Error
	if err != nil && isDuplicateKey(err) {
		logger.Debug("Alert already queued", "alert_id", id)
		return nil
	}
	return err
}

// DrainDue 取出全部到期待投的记录，按入队先后排序
// 只读不删，投递成功后由调用方 Ack
func (s *QueueStore) DrainDue(now time.Time) ([]QueuedAlertRow, error) {
	var rows []QueuedAlertRow
	err := s.db.
		Where("next_retry_at <= ?", now).
		Order("first_queued_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("drain due alerts: %w", err)
	}
	return rows, nil
}

// Ack 投递成功，从队列里物理删除
func (s *QueueStore) Ack(id string) error {
	return s.db.Unscoped().Delete(&QueuedAlertRow{}, "id = ?", id).Error
}

// Fail 投递再次失败，累加尝试次数并推迟下次重试时间
func (s *QueueStore) Fail(id string, attemptCount int, nextRetryAt time.Time) error {
	return s.db.Model(&QueuedAlertRow{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempt_count": attemptCount,
			"next_retry_at": nextRetryAt,
		}).Error
}

// PendingCount 当前队列深度，调试工具用
func (s *QueueStore) PendingCount() (int64, error) {
	var count int64
	err := s.db.Model(&QueuedAlertRow{}).Count(&count).Error
	return count, err
}

// isDuplicateKey SQLite 主键冲突的错误文本判断
// 驱动没有导出专门的错误类型，按关键字匹配兜底
func isDuplicateKey(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY")
}
