package parser

import "errors"

// ==========================================
// 提取错误分类
// ==========================================

// 调用方通过 errors.Is 区分处理策略：
// 不支持/过大 → 跳过；损坏/编码异常 → 放弃本次扫描；IO 错误 → 可有限次重试
var (
	// ErrUnsupportedFormat 无法识别的文件格式，跳过即可，不算故障
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrCorrupt 解析中途失败，已提取的部分文本一并丢弃
	ErrCorrupt = errors.New("corrupt file")

	// ErrArchiveDepth 压缩包嵌套超过深度上限
	ErrArchiveDepth = errors.New("archive nesting depth exceeded")

	// ErrEncoding 文本无法按已知编码解码，拒绝输出乱码
	ErrEncoding = errors.New("undecodable text encoding")

	// ErrIO 文件读取失败，可能是瞬时问题，允许调用方有限次重试
	ErrIO = errors.New("file io error")
)
