package format

import (
	"bytes"
	"strings"

	"github.com/h2non/filetype"

	"linuxFileSentry/internal/model"
)

// IdentifyKind 根据文件头识别格式，魔数优先，扩展名兜底
// 注意：xlsx 和普通 zip 的魔数相同 (PK..)，这里统一返回 FormatArchive，
// 由 extractor 在打开 zip 后根据是否存在 xl/workbook.xml 再细分
func IdentifyKind(header []byte, ext string) model.FormatKind {
	if len(header) >= 5 {
		// 1. PDF
		// %PDF-
		if bytes.HasPrefix(header, []byte{0x25, 0x50, 0x44, 0x46, 0x2D}) {
			return model.FormatPDF
		}

		// 2. Zip 家族 (zip / xlsx / docx / jar ...)
		// PK.. (0x50 0x4B 0x03 0x04)
		if bytes.HasPrefix(header, []byte{0x50, 0x4B, 0x03, 0x04}) {
			return model.FormatArchive
		}

		// 3. filetype 库二次确认 (容错变体魔数)
		if kind, err := filetype.Match(header); err == nil {
			switch kind.MIME.Value {
			case "application/pdf":
				return model.FormatPDF
			case "application/zip",
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
				return model.FormatArchive
			}
		}
	}

	// 4. 文本特征
	if isText(header) {
		return model.FormatPlainText
	}

	// 5. 魔数无法判断时回退扩展名
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "txt", "text", "md", "log", "csv", "json", "yaml", "yml", "html", "htm", "xml":
		return model.FormatPlainText
	case "pdf":
		return model.FormatPDF
	case "xlsx":
		return model.FormatSpreadsheet
	case "zip":
		return model.FormatArchive
	}

	return model.FormatUnknown
}

// isText 判断头部字节是否像文本
func isText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		data = data[3:]
	}
	// UTF-16 BOM 也按文本处理，解码交给 text 解析器
	if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		return true
	}
	n := 0
	for _, b := range data {
		if n > 256 {
			break
		}
		if b == 0 {
			return false
		}
		if b < 32 && b != 9 && b != 10 && b != 13 {
			return false
		}
		n++
	}
	return true
}
