package alert

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"linuxFileSentry/internal/model"
)

// snippetLimit 上报片段的最大字节数，足够人工核对又不至于整段泄漏原文
const snippetLimit = 512

// Build 把一次规则命中组装成待上报的告警记录
// ID 此刻生成且终身不变，重试投递携带同一 ID，服务端据此去重
func Build(finding model.Finding, deviceID string) model.Alert {
	return model.Alert{
		ID:             uuid.NewString(),
		DeviceID:       deviceID,
		FilePath:       finding.FilePath,
		RuleName:       finding.RuleName,
		MatchedSnippet: truncateSnippet(finding.MatchedText, snippetLimit),
		DetectedAt:     time.Now().UTC(),
	}
}

// truncateSnippet 按字节上限截断，回退到最近的完整 UTF-8 字符边界
func truncateSnippet(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
