package parser

import (
	"bytes"
	"context"
	"io"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// TextScanner 文本类文件提取器
// 负责编码探测与解码；HTML/XML 额外做标签剥离，避免模式被标签截断
type TextScanner struct{}

func NewTextScanner() *TextScanner {
	return &TextScanner{}
}

// Extract 读取全文并解码为合法 UTF-8 字符串
// ext: 文件扩展名 (不含点)，用于决定是否走标记文本剥离
func (s *TextScanner) Extract(ctx context.Context, reader io.ReaderAt, size int64, ext string) (string, error) {
	buf := make([]byte, size)
	if _, err := reader.ReadAt(buf, 0); err != nil && err != io.EOF {
		return "", ErrIO
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	text, err := decodeContent(buf)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(ext) {
	case "html", "htm":
		return stripHTML(text), nil
	case "xml":
		return stripXMLTags(text), nil
	}
	return text, nil
}

// decodeContent 检测并解码字节内容
// 顺序: BOM -> UTF-8 校验 -> GBK 探测；全部失败返回 ErrEncoding 而非输出乱码
func decodeContent(content []byte) (string, error) {
	// 1. BOM 检查
	if len(content) >= 3 && bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}) {
		content = content[3:]
		if !utf8.Valid(content) {
			return "", ErrEncoding
		}
		return string(content), nil
	}
	if len(content) >= 2 {
		if content[0] == 0xFF && content[1] == 0xFE {
			return decodeUTF16LE(content[2:]), nil
		}
		if content[0] == 0xFE && content[1] == 0xFF {
			return decodeUTF16BE(content[2:]), nil
		}
	}

	// 2. 尝试作为 UTF-8 解析
	if utf8.Valid(content) {
		return string(content), nil
	}

	// 3. 自动探测 GBK 编码 (国内 Windows 导出的文本常见)
	// 解码器对非法字节只会替换成 U+FFFD 不报错，出现替换符就按解码失败算
	if decoded, err := decodeGBK(content); err == nil &&
		utf8.ValidString(decoded) && !strings.ContainsRune(decoded, utf8.RuneError) {
		return decoded, nil
	}

	return "", ErrEncoding
}

// decodeGBK 解码 GBK 编码
func decodeGBK(data []byte) (string, error) {
	reader := transform.NewReader(bytes.NewReader(data), simplifiedchinese.GBK.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// decodeUTF16LE 解码 UTF-16 LE
// 代理对必须成对还原，否则 BMP 之外的字符 (emoji 等) 会退化成替换符
func decodeUTF16LE(data []byte) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i < len(data); i += 2 {
		units = append(units, uint16(data[i])|uint16(data[i+1])<<8)
	}
	return string(utf16.Decode(units))
}

// decodeUTF16BE 解码 UTF-16 BE
func decodeUTF16BE(data []byte) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i < len(data); i += 2 {
		units = append(units, uint16(data[i])<<8|uint16(data[i+1]))
	}
	return string(utf16.Decode(units))
}

// stripHTML 解析 HTML 并提取纯文本
func stripHTML(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		// 解析失败直接返回原文，正则仍能在源码上工作
		return content
	}
	var sb strings.Builder
	extractTextFromNode(doc, &sb)
	return sb.String()
}

// extractTextFromNode 从 HTML 节点递归提取文本
func extractTextFromNode(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	}

	// 跳过 script 和 style 标签
	if n.Type == html.ElementNode {
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractTextFromNode(c, sb)
	}
}

// stripXMLTags 移除 XML 标签，保留文本内容
func stripXMLTags(content string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range content {
		switch r {
		case '<':
			inTag = true
			sb.WriteRune(' ')
		case '>':
			inTag = false
		default:
			if !inTag {
				sb.WriteRune(r)
			}
		}
	}
	return sb.String()
}
