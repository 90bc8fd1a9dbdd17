package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// RecurseFunc 由 extractor 服务注入的回调：按格式提取一段内存中的内容
// 压缩包条目自身可能又是 PDF/表格/压缩包，分发逻辑统一收口在服务层
type RecurseFunc func(ctx context.Context, reader io.ReaderAt, size int64, ext string, depth int) (string, error)

// ArchiveScanner Zip 压缩包提取器
// 逐条目递归提取，嵌套深度超限立即失败，防解压炸弹拖垮进程
type ArchiveScanner struct {
	maxDepth     int
	maxEntrySize int64
}

func NewArchiveScanner(maxDepth int, maxEntrySize int64) *ArchiveScanner {
	return &ArchiveScanner{
		maxDepth:     maxDepth,
		maxEntrySize: maxEntrySize,
	}
}

// Extract 展开压缩包，每个条目前加路径头，便于告警定位到包内文件
// depth: 当前压缩包所处的嵌套层级 (最外层文件为 0)
func (s *ArchiveScanner) Extract(ctx context.Context, reader io.ReaderAt, size int64, depth int, recurse RecurseFunc) (string, error) {
	if depth >= s.maxDepth {
		return "", ErrArchiveDepth
	}

	zipReader, err := zip.NewReader(reader, size)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var sb strings.Builder
	for _, f := range zipReader.File {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		if f.FileInfo().IsDir() {
			continue
		}
		// 解压后尺寸超限的条目跳过，不让单个大文件吃光内存
		if f.UncompressedSize64 > uint64(s.maxEntrySize) {
			continue
		}

		data, err := readEntry(f, s.maxEntrySize)
		if err != nil {
			// 单条目损坏不拖累整包
			continue
		}

		ext := strings.TrimPrefix(path.Ext(f.Name), ".")
		text, err := recurse(ctx, bytes.NewReader(data), int64(len(data)), ext, depth+1)
		if err != nil {
			// 深度超限必须向上冒泡，其余条目级错误跳过
			if errors.Is(err, ErrArchiveDepth) {
				return "", err
			}
			continue
		}
		if text == "" {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("== entry: ")
		sb.WriteString(f.Name)
		sb.WriteString(" ==\n")
		sb.WriteString(text)
	}

	return sb.String(), nil
}

// readEntry 读取单个条目到内存，读取量双保险限制
func readEntry(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return nil, err
	}
	return data, nil
}
