package postmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"linuxFileSentry/internal/config"
	"linuxFileSentry/internal/logger"
	"linuxFileSentry/internal/model"
	"linuxFileSentry/internal/storage"
	"linuxFileSentry/internal/transport"
)

// ==========================================
// 告警投递管理器
// ==========================================

// alertRoute 采集端的告警上报路径
const alertRoute = "/alerts"

// PostManager 负责告警的首次投递与失败重试
// 投递失败的告警先落盘再返回，进程崩溃也不会丢失记录
type PostManager struct {
	client  *transport.Client
	queue   *storage.QueueStore
	history *storage.HybridStore[model.Alert]

	sweepInterval time.Duration
	backoffBase   time.Duration
	backoffMax    time.Duration
	maxAttempts   int // 0 表示不设上限

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewPostManager(client *transport.Client, stores *storage.Stores, cfg *config.RetryConfig) *PostManager {
	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = 30 * time.Second
	}
	backoffBase := cfg.BackoffBase
	if backoffBase <= 0 {
		backoffBase = 30 * time.Second
	}
	backoffMax := cfg.BackoffMax
	if backoffMax <= 0 {
		backoffMax = 30 * time.Minute
	}
	if backoffMax < backoffBase {
		backoffMax = backoffBase
	}
	return &PostManager{
		client:        client,
		queue:         stores.Queue,
		history:       stores.AlertHistory,
		sweepInterval: sweepInterval,
		backoffBase:   backoffBase,
		backoffMax:    backoffMax,
		maxAttempts:   cfg.MaxAttempts,
		stopChan:      make(chan struct{}),
	}
}

// Deliver 投递一条新告警
// 发送失败时必须先成功入队才返回，队列写入失败要大声报错，
// 此时这条告警只活在日志里
func (m *PostManager) Deliver(ctx context.Context, a model.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert %s: %w", a.ID, err)
	}

	if err := m.post(ctx, payload); err != nil {
		logger.Warn("Alert delivery failed, queueing for retry",
			"alert_id", a.ID, "rule", a.RuleName, "err", err)

		nextRetry := time.Now().UTC().Add(m.backoff(1))
		if qErr := m.queue.Enqueue(a.ID, payload, nextRetry); qErr != nil {
			logger.Error("ALERT LOST: failed to queue undelivered alert",
				"alert_id", a.ID, "payload", string(payload), "err", qErr)
			return fmt.Errorf("queue alert %s: %w", a.ID, qErr)
		}
		return nil
	}

	m.recordDelivered(a)
	return nil
}

// Start 启动后台重试循环
func (m *PostManager) Start() {
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()

		// 随机抖动，防止多台设备重启后在同一秒冲击服务端
		jitter := time.Duration(rand.Int63n(int64(m.sweepInterval)))
		select {
		case <-m.stopChan:
			return
		case <-time.After(jitter):
		}

		logger.Info("Retry sweeper started", "interval", m.sweepInterval)

		ticker := time.NewTicker(m.sweepInterval)
		defer ticker.Stop()

		m.sweep()
		for {
			select {
			case <-m.stopChan:
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

// Stop 停止重试循环并等待当前一轮扫描结束
func (m *PostManager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	m.wg.Wait()
}

// Sweep 立即执行一轮重试，调试工具用
func (m *PostManager) Sweep() {
	m.sweep()
}

// sweep 单轮重试：捞出全部到期记录，逐条重放
func (m *PostManager) sweep() {
	rows, err := m.queue.DrainDue(time.Now().UTC())
	if err != nil {
		logger.Error("Retry sweep failed to read queue", "err", err)
		return
	}
	if len(rows) == 0 {
		return
	}

	logger.Info("Retrying queued alerts", "count", len(rows))

	ctx, cancel := context.WithTimeout(context.Background(), m.sweepInterval)
	defer cancel()

	for _, row := range rows {
		select {
		case <-m.stopChan:
			return
		default:
		}
		m.retryOne(ctx, row)
	}
}

// retryOne 重放一条队列记录
func (m *PostManager) retryOne(ctx context.Context, row storage.QueuedAlertRow) {
	err := m.post(ctx, row.Payload)
	if err == nil {
		if ackErr := m.queue.Ack(row.ID); ackErr != nil {
			// Ack 失败会导致下一轮重复投递，服务端按 ID 去重兜底
			logger.Error("Failed to ack delivered alert", "alert_id", row.ID, "err", ackErr)
		}
		var a model.Alert
		if jsonErr := json.Unmarshal(row.Payload, &a); jsonErr == nil {
			m.recordDelivered(a)
		}
		logger.Info("Queued alert delivered", "alert_id", row.ID, "attempts", row.AttemptCount)
		return
	}

	attempts := row.AttemptCount + 1
	if m.maxAttempts > 0 && attempts > m.maxAttempts {
		logger.Error("Alert abandoned after max attempts",
			"alert_id", row.ID, "attempts", row.AttemptCount, "payload", string(row.Payload))
		if ackErr := m.queue.Ack(row.ID); ackErr != nil {
			logger.Error("Failed to remove abandoned alert", "alert_id", row.ID, "err", ackErr)
		}
		return
	}

	nextRetry := time.Now().UTC().Add(m.backoff(attempts))
	if failErr := m.queue.Fail(row.ID, attempts, nextRetry); failErr != nil {
		logger.Error("Failed to update queued alert", "alert_id", row.ID, "err", failErr)
		return
	}
	logger.Warn("Queued alert retry failed",
		"alert_id", row.ID, "attempts", attempts, "next_retry", nextRetry.Format(time.RFC3339), "err", err)
}

// post 单次投递，2xx 即成功
func (m *PostManager) post(ctx context.Context, payload []byte) error {
	_, err := m.client.PostJSON(ctx, alertRoute, payload)
	return err
}

// backoff 指数退避：base * 2^(attempts-1)，封顶 backoffMax
func (m *PostManager) backoff(attempts int) time.Duration {
	d := m.backoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= m.backoffMax {
			return m.backoffMax
		}
	}
	if d > m.backoffMax {
		return m.backoffMax
	}
	return d
}

// recordDelivered 成功投递后本机留痕，留痕失败只记日志
func (m *PostManager) recordDelivered(a model.Alert) {
	if m.history == nil {
		return
	}
	if err := m.history.Push(a); err != nil {
		logger.Warn("Failed to record delivered alert", "alert_id", a.ID, "err", err)
	}
}
