package parser

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDecodeContent(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    string
		wantErr bool
	}{
		// 1. 常规 UTF-8
		{"Plain_ASCII", []byte("hello world"), "hello world", false},
		{"UTF8_Chinese", []byte("你好世界"), "你好世界", false},

		// 2. BOM 处理
		{"UTF8_BOM", append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello")...), "hello", false},
		{"UTF16LE_BOM", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, "hi", false},
		{"UTF16BE_BOM", []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, "hi", false},

		// BMP 之外的字符走代理对，U+1F600 = D83D DE00
		{"UTF16LE_SurrogatePair", []byte{0xFF, 0xFE, 0x3D, 0xD8, 0x00, 0xDE}, "\U0001F600", false},
		{"UTF16BE_SurrogatePair", []byte{0xFE, 0xFF, 0xD8, 0x3D, 0xDE, 0x00}, "\U0001F600", false},

		// 3. GBK 探测
		// "你好" 的 GBK 编码：C4 E3 BA C3
		{"GBK_Chinese", []byte{0xC4, 0xE3, 0xBA, 0xC3}, "你好", false},

		// 4. 无法解码的内容拒绝输出
		{"Invalid_Bytes", []byte{0xFF, 0x00, 0x81}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeContent(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrEncoding) {
					t.Errorf("decodeContent() err = %v, want ErrEncoding", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeContent() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("decodeContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextScannerExtractHTML(t *testing.T) {
	// script/style 里的内容不该出现在提取结果里
	content := `<html><head><style>body{color:red}</style></head>` +
		`<body><p>contact: alice@example.com</p><script>var x=1;</script></body></html>`

	s := NewTextScanner()
	text, err := s.Extract(context.Background(), bytes.NewReader([]byte(content)), int64(len(content)), "html")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if !strings.Contains(text, "alice@example.com") {
		t.Errorf("HTML 文本未提取到正文: %q", text)
	}
	if strings.Contains(text, "color:red") || strings.Contains(text, "var x=1") {
		t.Errorf("script/style 内容泄漏到提取结果: %q", text)
	}
}

func TestTextScannerExtractXML(t *testing.T) {
	content := `<root><user email="x">bob@example.com</user></root>`

	s := NewTextScanner()
	text, err := s.Extract(context.Background(), bytes.NewReader([]byte(content)), int64(len(content)), "xml")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if !strings.Contains(text, "bob@example.com") {
		t.Errorf("XML 标签剥离后丢失正文: %q", text)
	}
	if strings.Contains(text, "<root>") {
		t.Errorf("提取结果仍含标签: %q", text)
	}
}
