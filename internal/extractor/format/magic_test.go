package format

import (
	"encoding/hex"
	"testing"

	"linuxFileSentry/internal/model"
)

func TestIdentifyKind(t *testing.T) {
	tests := []struct {
		name   string
		hexStr string // 模拟文件头的 Hex 字符串
		ext    string
		want   model.FormatKind
	}{
		// 25 50 44 46 2D -> %PDF-
		{"PDF_Header", "255044462d312e35", "pdf", model.FormatPDF},
		{"PDF_Header_WrongExt", "255044462d312e37", "txt", model.FormatPDF},

		// 50 4B 03 04 -> PK 容器，魔数层面只能判到 Archive
		{"Zip_Header", "504b030414000600", "zip", model.FormatArchive},
		{"Xlsx_Header", "504b030414000600", "xlsx", model.FormatArchive},

		// 纯文本 (ASCII)
		{"TXT_ASCII", "48656c6c6f20576f726c64", "txt", model.FormatPlainText}, // "Hello World"
		{"CSV_ASCII", "612c622c630a312c322c33", "csv", model.FormatPlainText}, // "a,b,c\n1,2,3"

		// UTF-8 BOM 开头的文本
		{"TXT_UTF8_BOM", "efbbbf48656c6c6f", "txt", model.FormatPlainText},

		// UTF-16 LE BOM
		{"TXT_UTF16LE_BOM", "fffe480065006c00", "txt", model.FormatPlainText},

		// 含空字节的二进制，扩展名也认不出
		{"Binary_Unknown", "7f454c4602010100", "bin", model.FormatUnknown},

		// 魔数认不出时退回扩展名
		{"Ext_Fallback_Log", "", "log", model.FormatPlainText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, _ := hex.DecodeString(tt.hexStr)
			if got := IdentifyKind(header, tt.ext); got != tt.want {
				t.Errorf("IdentifyKind() = %v, want %v", got, tt.want)
			}
		})
	}
}
