package extractor

import "linuxFileSentry/internal/extractor/parser"

// 错误定义在 parser 子包，这里转发给上层调用方统一引用
var (
	ErrUnsupportedFormat = parser.ErrUnsupportedFormat
	ErrCorrupt           = parser.ErrCorrupt
	ErrArchiveDepth      = parser.ErrArchiveDepth
	ErrEncoding          = parser.ErrEncoding
	ErrIO                = parser.ErrIO
)
