package model

// ==========================================
// 扫描流水线中间数据
// ==========================================

// FormatKind 文件格式枚举
// 提取器支持的格式是一个封闭集合，新增格式需同步扩展 extractor 的分发逻辑
type FormatKind int

const (
	FormatUnknown     FormatKind = iota // 无法识别
	FormatPlainText                     // 纯文本 (含 HTML/XML 等标记文本)
	FormatPDF                           // PDF 文档
	FormatSpreadsheet                   // OOXML 电子表格 (xlsx)
	FormatArchive                       // Zip 压缩包
)

// String 返回格式名，用于日志输出
func (k FormatKind) String() string {
	switch k {
	case FormatPlainText:
		return "plain_text"
	case FormatPDF:
		return "pdf"
	case FormatSpreadsheet:
		return "spreadsheet"
	case FormatArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// ScannedContent 单次提取的归一化文本
// 生命周期仅限一次扫描，检测完成后即丢弃
type ScannedContent struct {
	Path   string
	Text   string
	Format FormatKind
}

// Finding 单条模式命中结果
// 同一文件内同一规则只产生一条 Finding（取首个命中位置），避免告警风暴
type Finding struct {
	RuleName    string
	MatchedText string
	FilePath    string
}
