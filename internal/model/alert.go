package model

import "time"

// ==========================================
// 告警记录 - 数据模型
// ==========================================

// Alert 敏感信息告警完整格式
// 上报接口的请求体即本结构体的 JSON 序列化结果
type Alert struct {
	// 告警id，UUID 格式，全局唯一
	// 重要：同一条告警在整个重试生命周期内 ID 不变，服务端依赖该字段去重
	ID string `json:"id" gorm:"type:varchar(36);primaryKey;uniqueIndex"`
	// 设备唯一标识，注册时由平台下发
	DeviceID string `json:"device_id" gorm:"type:varchar(64);index"`
	// 命中文件绝对路径
	FilePath string `json:"file_path" gorm:"type:text"`
	// 命中的检测规则名 (e.g., "email", "credit_card")
	RuleName string `json:"rule_name" gorm:"type:varchar(64);index"`
	// 命中文本片段，最长512字节，超出截断
	MatchedSnippet string `json:"matched_snippet" gorm:"type:varchar(512)"`
	// 检出时间 (UTC)
	DetectedAt time.Time `json:"detected_at" gorm:"index"`
}

// TableName 自定义表名
func (Alert) TableName() string {
	return "alert_records"
}
