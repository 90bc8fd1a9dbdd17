package storage

import (
	"sync"

	"gorm.io/gorm"

	"linuxFileSentry/internal/model"
)

var (
	stores     *Stores
	storesOnce sync.Once
)

// Stores 存储实例集合
// 集中管理进程内全部存储引擎，启动时一次性初始化
// 使用方式：storage.GetStores().Queue.Enqueue(...)
type Stores struct {
	// Queue 投递失败告警的持久重试队列
	Queue *QueueStore

	// AlertHistory 已成功上报的告警留痕，供本机排查
	AlertHistory *HybridStore[model.Alert]
}

// StoresOptions 存储实例配置选项
type StoresOptions struct {
	AlertHistoryMemoryLimit int // 告警留痕内存存储上限
}

// SetupStores 初始化所有存储实例
// db 必须已由 Setup 成功打开；sync.Once 保证只执行一次
func SetupStores(db *gorm.DB, opts StoresOptions) error {
	var err error

	storesOnce.Do(func() {
		queueStore, queueErr := NewQueueStore(db)
		if queueErr != nil {
			err = queueErr
			return
		}

		historyStore, historyErr := NewHybridStore[model.Alert](
			db,
			opts.AlertHistoryMemoryLimit,
			"storage_alert_history",
		)
		if historyErr != nil {
			err = historyErr
			return
		}

		stores = &Stores{
			Queue:        queueStore,
			AlertHistory: historyStore,
		}
	})

	return err
}

// GetStores 获取存储实例管理器
// 必须先调用 SetupStores 初始化，否则返回 nil
func GetStores() *Stores {
	return stores
}

// FlushAll 退出前把所有内存数据刷到磁盘
// 使用方式：defer storage.FlushAll()
func FlushAll() error {
	if stores == nil {
		return nil
	}
	return stores.AlertHistory.FlushMemoryToDisk()
}
