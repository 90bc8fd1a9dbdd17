package parser

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFScanner 使用 ledongthuc/pdf 库进行纯文本提取
type PDFScanner struct{}

func NewPDFScanner() *PDFScanner {
	return &PDFScanner{}
}

// Extract 按页序提取全文，页与页之间用换页符分隔
// 任何解析错误都按文件损坏处理，不输出半截文本
func (s *PDFScanner) Extract(ctx context.Context, reader io.ReaderAt, size int64) (string, error) {
	pdfReader, err := pdf.NewReader(reader, size)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	totalPage := pdfReader.NumPage()
	var sb strings.Builder

	for i := 1; i <= totalPage; i++ {
		// 检查 context 取消
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrCorrupt, i, err)
		}

		if sb.Len() > 0 {
			sb.WriteString("\n\f")
		}
		sb.WriteString(content)
	}

	return sb.String(), nil
}
