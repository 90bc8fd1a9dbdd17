// Package main 提供提取与检测流水线的独立调试工具
// 用于单独测试和排查 internal/extractor 与 internal/detector 的逻辑问题
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"linuxFileSentry/internal/config"
	"linuxFileSentry/internal/detector"
	"linuxFileSentry/internal/extractor"
	"linuxFileSentry/internal/logger"
)

// ==========================================
// 全局变量和配置
// ==========================================

var (
	// 版本信息
	version = "1.0.0"
	appName = "sentry-scan"

	// 命令行参数
	maxFileSize  int64
	maxDepth     int
	maxEntrySize int64
	ruleTimeout  time.Duration
	previewLen   int
	verboseMode  bool

	// 颜色输出
	colorRed    = color.New(color.FgRed, color.Bold)
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorYellow = color.New(color.FgYellow)
	colorCyan   = color.New(color.FgCyan)
	colorWhite  = color.New(color.FgWhite)
)

// ==========================================
// 主入口
// ==========================================

func main() {
	// 调试工具的内部日志直接打到控制台
	_ = logger.Setup(logger.Options{Level: "warn", Stdout: true})

	if err := rootCmd.Execute(); err != nil {
		colorRed.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// ==========================================
// 根命令
// ==========================================

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "文件提取与敏感内容检测调试工具",
	Long: `文件提取与敏感内容检测流水线的独立调试工具。

用于单独测试和排查提取/检测逻辑，支持：
  - 文本提取：对单个文件执行格式识别与文本提取
  - 规则检测：提取后跑完整内置规则集并显示命中
  - 规则清单：列出当前生效的全部检测规则

示例:
  # 提取文件文本并预览
  sentry-scan extract --file /tmp/report.pdf

  # 对文件执行完整检测
  sentry-scan detect --file /tmp/export.xlsx

  # 查看内置规则
  sentry-scan rules
`,
	Version: version,
}

// ==========================================
// extract 命令 - 文本提取
// ==========================================

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "对单个文件执行格式识别与文本提取",
	Long: `识别文件格式并提取全部可检测文本。

压缩包会按配置的深度上限递归展开，xlsx 按工作表拼接。`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	printBanner()

	target, err := resolveTarget()
	if err != nil {
		return err
	}

	colorCyan.Printf("📁 目标文件: %s\n", target)
	printSeparator()

	svc := newExtractor()

	colorYellow.Println("🔄 正在提取文本...")
	startTime := time.Now()

	content, err := svc.Extract(context.Background(), target)
	if err != nil {
		colorRed.Printf("❌ 提取失败: %v\n", err)
		return err
	}

	elapsed := time.Since(startTime)

	colorGreen.Println("✅ 提取完成!")
	fmt.Println()
	colorWhite.Printf("   识别格式 : %s\n", content.Format.String())
	colorWhite.Printf("   文本长度 : %d 字符\n", len([]rune(content.Text)))
	colorWhite.Printf("   提取耗时 : %v\n", elapsed)

	printSeparator()
	colorCyan.Println("📋 文本预览:")
	fmt.Println(preview(content.Text, previewLen))

	return nil
}

// ==========================================
// detect 命令 - 完整检测
// ==========================================

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "提取文本并执行完整规则检测",
	Args:  cobra.NoArgs,
	RunE:  runDetect,
}

func runDetect(cmd *cobra.Command, args []string) error {
	printBanner()

	target, err := resolveTarget()
	if err != nil {
		return err
	}

	colorCyan.Printf("📁 目标文件: %s\n", target)
	printSeparator()

	svc := newExtractor()
	registry, err := detector.NewRegistry(nil)
	if err != nil {
		return err
	}
	engine := detector.NewEngine(registry, ruleTimeout)

	startTime := time.Now()

	content, err := svc.Extract(context.Background(), target)
	if err != nil {
		colorRed.Printf("❌ 提取失败: %v\n", err)
		return err
	}

	findings := engine.Detect(context.Background(), content)
	elapsed := time.Since(startTime)

	colorWhite.Printf("   识别格式 : %s\n", content.Format.String())
	colorWhite.Printf("   检测耗时 : %v\n", elapsed)
	printSeparator()

	if len(findings) == 0 {
		colorGreen.Println("📋 检测结果: 未发现敏感内容")
		return nil
	}

	colorRed.Printf("⚠️  命中 %d 条规则:\n", len(findings))
	fmt.Println()
	for i, f := range findings {
		colorRed.Printf("   [%d] 规则: %s\n", i+1, f.RuleName)
		colorWhite.Printf("       片段: %s\n", preview(f.MatchedText, 80))
	}

	return nil
}

// ==========================================
// rules 命令 - 规则清单
// ==========================================

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "列出当前生效的全部检测规则",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := detector.NewRegistry(nil)
		if err != nil {
			return err
		}

		colorCyan.Println("📋 内置规则清单:")
		printSeparator()
		for _, r := range registry.Rules() {
			colorWhite.Printf("   %-12s %s\n", r.Name, r.Pattern.String())
		}
		return nil
	},
}

// ==========================================
// 辅助函数
// ==========================================

var targetFile string

// newExtractor 按命令行参数组装提取服务
func newExtractor() *extractor.Service {
	return extractor.NewService(&config.ExtractorConfig{
		MaxFileSize:     maxFileSize,
		MaxArchiveDepth: maxDepth,
		MaxEntrySize:    maxEntrySize,
	})
}

// resolveTarget 解析目标文件路径
func resolveTarget() (string, error) {
	if targetFile == "" {
		return "", fmt.Errorf("必须通过 --file 指定目标文件")
	}
	absPath, err := filepath.Abs(targetFile)
	if err != nil {
		return "", fmt.Errorf("无法解析路径: %v", err)
	}
	return absPath, nil
}

// preview 截取文本预览，超长部分省略
func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// printBanner 打印工具标题
func printBanner() {
	fmt.Println()
	colorCyan.Println("╔════════════════════════════════════════════════════════╗")
	colorCyan.Println("║        文件提取与检测调试工具 (Sentry Scan)             ║")
	colorCyan.Printf("║                      Version %s                       ║\n", version)
	colorCyan.Println("╚════════════════════════════════════════════════════════╝")
	fmt.Println()
}

// printSeparator 打印分隔线
func printSeparator() {
	colorWhite.Println("────────────────────────────────────────────────────────────")
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&targetFile, "file", "f", "", "要处理的目标文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verboseMode, "verbose", "v", false, "启用详细输出模式")

	// 提取参数
	rootCmd.PersistentFlags().Int64Var(&maxFileSize, "max-size", 50*1024*1024, "单文件大小上限 (字节)")
	rootCmd.PersistentFlags().IntVar(&maxDepth, "max-depth", 3, "压缩包嵌套深度上限")
	rootCmd.PersistentFlags().Int64Var(&maxEntrySize, "max-entry-size", 10*1024*1024, "压缩包单条目解压上限 (字节)")

	// 检测参数
	detectCmd.Flags().DurationVar(&ruleTimeout, "rule-timeout", 500*time.Millisecond, "单条规则匹配超时")

	// 输出参数
	extractCmd.Flags().IntVar(&previewLen, "preview", 400, "文本预览长度 (字符)")

	// 注册子命令
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(rulesCmd)
}
