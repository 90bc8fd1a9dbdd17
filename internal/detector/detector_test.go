package detector

import (
	"context"
	"strings"
	"testing"
	"time"

	"linuxFileSentry/internal/config"
	"linuxFileSentry/internal/model"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	registry, err := NewRegistry(nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewEngine(registry, 500*time.Millisecond)
}

func detectText(t *testing.T, text string) []model.Finding {
	t.Helper()
	return testEngine(t).Detect(context.Background(), &model.ScannedContent{
		Path:   "/tmp/test.txt",
		Text:   text,
		Format: model.FormatPlainText,
	})
}

// findRule 在结果里找指定规则的命中
func findRule(findings []model.Finding, rule string) (model.Finding, bool) {
	for _, f := range findings {
		if f.RuleName == rule {
			return f, true
		}
	}
	return model.Finding{}, false
}

func TestDetectBuiltinRules(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantRule  string
		wantMatch string
	}{
		// 1. 邮箱 (大小写都要能命中)
		{"Email_Lower", "contact alice@example.com for details", "email", "alice@example.com"},
		{"Email_Upper", "SEND TO BOB@CORP.ORG NOW", "email", "BOB@CORP.ORG"},

		// 2. 社保号
		{"SSN", "ssn: 123-45-6789 on file", "ssn", "123-45-6789"},

		// 3. 银行卡
		{"CreditCard_Dashes", "card 4111-1111-1111-1111 ok", "credit_card", "4111-1111-1111-1111"},
		{"CreditCard_Spaces", "card 4111 1111 1111 1111 ok", "credit_card", "4111 1111 1111 1111"},

		// 4. 密码赋值
		{"Password_Assign", "PASSWORD = hunter2", "password", "PASSWORD = hunter2"},

		// 5. API 密钥赋值
		{"APIKey_Assign", "api_key = sk-abcdef123456", "api_key", "api_key = sk-abcdef123456"},
		{"SecretKey_Assign", "SECRET-KEY=topsecret", "api_key", "SECRET-KEY=topsecret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := detectText(t, tt.input)
			f, ok := findRule(findings, tt.wantRule)
			if !ok {
				t.Fatalf("规则 %s 未命中, findings = %v", tt.wantRule, findings)
			}
			if f.MatchedText != tt.wantMatch {
				t.Errorf("命中文本 = %q, want %q", f.MatchedText, tt.wantMatch)
			}
			if f.FilePath != "/tmp/test.txt" {
				t.Errorf("FilePath = %q", f.FilePath)
			}
		})
	}
}

func TestDetectNoMatch(t *testing.T) {
	findings := detectText(t, "nothing interesting in this file at all")
	if len(findings) != 0 {
		t.Errorf("干净文本不应有命中: %v", findings)
	}
}

func TestDetectFirstMatchPerRule(t *testing.T) {
	// 同一规则命中多处只报第一处
	findings := detectText(t, "a@x.com then b@y.com then c@z.com")

	f, ok := findRule(findings, "email")
	if !ok {
		t.Fatal("email 规则未命中")
	}
	if f.MatchedText != "a@x.com" {
		t.Errorf("应取第一处命中, got %q", f.MatchedText)
	}

	count := 0
	for _, got := range findings {
		if got.RuleName == "email" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("email 规则命中 %d 次, want 1", count)
	}
}

func TestDetectIdempotent(t *testing.T) {
	// 同一内容扫两遍，结果一致
	input := "ssn 123-45-6789 and email x@y.org"
	first := detectText(t, input)
	second := detectText(t, input)

	if len(first) != len(second) {
		t.Fatalf("两次检测数量不同: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("第 %d 条不一致: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestDetectRuleTimeoutSkipsRule(t *testing.T) {
	// 超时的规则按未命中处理，其余规则不受影响
	registry, err := NewRegistry([]config.RuleConfig{
		// 大计数重复撑大正则程序体积，配合长输入让单次匹配远超预算
		{Name: "pathological", Regex: `(?:a|aa){1000}b`},
	})
	if err != nil {
		t.Fatal(err)
	}
	engine := NewEngine(registry, 50*time.Millisecond)

	text := "contact alice@example.com " + strings.Repeat("a", 1<<20)
	findings := engine.Detect(context.Background(), &model.ScannedContent{
		Path:   "/tmp/big.txt",
		Text:   text,
		Format: model.FormatPlainText,
	})

	if _, ok := findRule(findings, "pathological"); ok {
		t.Error("超时规则不应出现在结果里")
	}
	if _, ok := findRule(findings, "email"); !ok {
		t.Errorf("其余规则应正常命中: %v", findings)
	}
}

func TestRegistryCustomRules(t *testing.T) {
	registry, err := NewRegistry([]config.RuleConfig{
		{Name: "project_code", Regex: `\bPRJ-\d{6}\b`},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}

	engine := NewEngine(registry, 500*time.Millisecond)
	findings := engine.Detect(context.Background(), &model.ScannedContent{
		Path: "/tmp/a.txt",
		Text: "see PRJ-123456 for details",
	})

	if _, ok := findRule(findings, "project_code"); !ok {
		t.Errorf("自定义规则未命中: %v", findings)
	}
}

func TestRegistryRejectsBadRules(t *testing.T) {
	tests := []struct {
		name  string
		rules []config.RuleConfig
	}{
		{"Duplicate_Builtin_Name", []config.RuleConfig{{Name: "email", Regex: `x`}}},
		{"Empty_Name", []config.RuleConfig{{Name: "", Regex: `x`}}},
		{"Bad_Regex", []config.RuleConfig{{Name: "broken", Regex: `([`}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.rules); err == nil {
				t.Error("非法规则应拒绝编译")
			}
		})
	}
}
