// Package main 重试队列检查调试工具
// 用于独立查看本机持久队列里积压的告警
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"linuxFileSentry/internal/logger"
	"linuxFileSentry/internal/model"
	"linuxFileSentry/internal/storage"
)

// ==========================================
// 命令行参数
// ==========================================

var (
	dataDir  string // 数据目录 (含 agent.db)
	fileName string // 数据库文件名
	showAll  bool   // 显示未到期的记录
	asJSON   bool   // JSON 输出

	showHelp bool
)

const (
	toolName    = "queue-inspect"
	toolVersion = "1.0.0"
)

func init() {
	flag.StringVar(&dataDir, "data-dir", "./data", "数据目录路径")
	flag.StringVar(&dataDir, "d", "./data", "数据目录路径（简写）")
	flag.StringVar(&fileName, "db", "agent.db", "数据库文件名")
	flag.BoolVar(&showAll, "all", false, "包含尚未到期的记录")
	flag.BoolVar(&asJSON, "json", false, "以 JSON 输出")
	flag.BoolVar(&showHelp, "h", false, "显示帮助")
}

func main() {
	flag.Parse()

	if showHelp {
		fmt.Printf("%s v%s - 重试队列检查工具\n\n", toolName, toolVersion)
		flag.PrintDefaults()
		return
	}

	// 日志静默，只看查询结果
	_ = logger.Setup(logger.Options{Level: "error", Stdout: true})

	if err := storage.Setup(storage.Options{
		DataDir:         dataDir,
		FileName:        fileName,
		LogLevel:        "silent",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		JournalMode:     "WAL",
		Synchronous:     "NORMAL",
		TempStore:       "MEMORY",
	}); err != nil {
		color.Red("打开数据库失败: %v", err)
		os.Exit(1)
	}
	defer storage.CloseDB()

	db, err := storage.GetDB()
	if err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}

	queue, err := storage.NewQueueStore(db)
	if err != nil {
		color.Red("打开队列失败: %v", err)
		os.Exit(1)
	}

	cutoff := time.Now().UTC()
	if showAll {
		// 把截止时间推到足够远，捞出全部记录
		cutoff = cutoff.Add(100 * 365 * 24 * time.Hour)
	}

	rows, err := queue.DrainDue(cutoff)
	if err != nil {
		color.Red("读取队列失败: %v", err)
		os.Exit(1)
	}

	if asJSON {
		printJSON(rows)
		return
	}
	printTable(rows)
}

func printTable(rows []storage.QueuedAlertRow) {
	if len(rows) == 0 {
		color.Green("队列为空")
		return
	}

	color.Cyan("积压告警 %d 条:", len(rows))
	fmt.Println()

	for _, row := range rows {
		var a model.Alert
		rule := "?"
		path := "?"
		if err := json.Unmarshal(row.Payload, &a); err == nil {
			rule = a.RuleName
			path = a.FilePath
		}

		color.Yellow("  [%s]", row.ID)
		fmt.Printf("      规则: %s\n", rule)
		fmt.Printf("      文件: %s\n", path)
		fmt.Printf("      已尝试: %d 次，首次入队 %s，下次重试 %s\n",
			row.AttemptCount,
			row.FirstQueuedAt.Local().Format("2006-01-02 15:04:05"),
			row.NextRetryAt.Local().Format("2006-01-02 15:04:05"),
		)
		fmt.Println()
	}
}

func printJSON(rows []storage.QueuedAlertRow) {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		var a model.Alert
		_ = json.Unmarshal(row.Payload, &a)
		out = append(out, map[string]any{
			"id":              row.ID,
			"rule_name":       a.RuleName,
			"file_path":       a.FilePath,
			"attempt_count":   row.AttemptCount,
			"first_queued_at": row.FirstQueuedAt,
			"next_retry_at":   row.NextRetryAt,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
