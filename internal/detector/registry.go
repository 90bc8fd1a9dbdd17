package detector

import (
	"fmt"
	"regexp"

	"linuxFileSentry/internal/config"
)

// ==========================================
// 检测规则注册表
// ==========================================

// Rule 一条已编译的敏感内容检测规则
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Registry 持有全部生效规则，进程启动时构建，此后只读
type Registry struct {
	rules []Rule
}

// 内置规则集，配置文件可追加但不可覆盖同名规则
// 邮箱规则大小写不敏感，实际文件里小写地址占绝大多数
var builtinRules = []struct {
	name    string
	pattern string
}{
	{"email", `(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`},
	{"ssn", `\b\d{3}-\d{2}-\d{4}\b`},
	{"credit_card", `\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`},
	{"password", `(?i)password.*=.*`},
	{"card_digits", `\b(?:\d[ -]*?){13,16}\b`},
	{"api_key", `(?i)(api[_-]?key|secret[_-]?key).*=.*`},
}

// NewRegistry 编译内置规则与配置追加的自定义规则
// 任何一条规则编译失败或重名都直接报错，带病启动不如不启动
func NewRegistry(custom []config.RuleConfig) (*Registry, error) {
	seen := make(map[string]bool, len(builtinRules)+len(custom))
	rules := make([]Rule, 0, len(builtinRules)+len(custom))

	for _, b := range builtinRules {
		re, err := regexp.Compile(b.pattern)
		if err != nil {
			return nil, fmt.Errorf("compile builtin rule %q: %w", b.name, err)
		}
		seen[b.name] = true
		rules = append(rules, Rule{Name: b.name, Pattern: re})
	}

	for _, c := range custom {
		if c.Name == "" {
			return nil, fmt.Errorf("custom rule with empty name")
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate rule name %q", c.Name)
		}
		re, err := regexp.Compile(c.Regex)
		if err != nil {
			return nil, fmt.Errorf("compile custom rule %q: %w", c.Name, err)
		}
		seen[c.Name] = true
		rules = append(rules, Rule{Name: c.Name, Pattern: re})
	}

	return &Registry{rules: rules}, nil
}

// Rules 返回规则切片，调用方不得修改
func (r *Registry) Rules() []Rule {
	return r.rules
}
