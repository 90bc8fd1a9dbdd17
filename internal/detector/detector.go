package detector

import (
	"context"
	"time"

	"linuxFileSentry/internal/logger"
	"linuxFileSentry/internal/model"
)

// ==========================================
// 敏感内容匹配引擎
// ==========================================

// Engine 在已提取的纯文本上执行规则匹配
type Engine struct {
	registry    *Registry
	ruleTimeout time.Duration
}

func NewEngine(registry *Registry, ruleTimeout time.Duration) *Engine {
	if ruleTimeout <= 0 {
		ruleTimeout = 500 * time.Millisecond
	}
	return &Engine{
		registry:    registry,
		ruleTimeout: ruleTimeout,
	}
}

// Detect 对一份文本跑全部规则，每条规则至多产出一个命中
// 同一规则在文件里命中多处只取第一处，重复上报只会淹没服务端
func (e *Engine) Detect(ctx context.Context, content *model.ScannedContent) []model.Finding {
	var findings []model.Finding

	for _, rule := range e.registry.Rules() {
		select {
		case <-ctx.Done():
			logger.Warn("Detection cancelled", "path", content.Path, "pending_rule", rule.Name)
			return findings
		default:
		}

		matched, ok := e.matchWithTimeout(rule, content.Text)
		if !ok {
			continue
		}
		findings = append(findings, model.Finding{
			RuleName:    rule.Name,
			MatchedText: matched,
			FilePath:    content.Path,
		})
	}

	return findings
}

// matchWithTimeout 单条规则限时匹配
// 正则在病态输入上可能跑飞，超时只跳过该条规则，其余规则照常执行
func (e *Engine) matchWithTimeout(rule Rule, text string) (string, bool) {
	type result struct {
		matched string
		ok      bool
	}

	done := make(chan result, 1)
	go func() {
		m := rule.Pattern.FindString(text)
		done <- result{matched: m, ok: m != ""}
	}()

	timer := time.NewTimer(e.ruleTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.matched, r.ok
	case <-timer.C:
		logger.Warn("Rule match timed out", "rule", rule.Name, "timeout", e.ruleTimeout.String())
		return "", false
	}
}
