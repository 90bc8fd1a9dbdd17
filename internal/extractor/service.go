package extractor

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"linuxFileSentry/internal/config"
	"linuxFileSentry/internal/extractor/format"
	"linuxFileSentry/internal/extractor/parser"
	"linuxFileSentry/internal/logger"
	"linuxFileSentry/internal/model"
)

// ==========================================
// 内容提取服务
// ==========================================

// headerSize 嗅探文件头的字节数，覆盖 filetype 库要求的最大魔数长度
const headerSize = 261

// Service 按文件格式分发到具体提取器，输出纯文本供检测层匹配
type Service struct {
	maxFileSize int64

	textScanner    *parser.TextScanner
	pdfScanner     *parser.PDFScanner
	sheetScanner   *parser.SheetScanner
	archiveScanner *parser.ArchiveScanner
}

func NewService(cfg *config.ExtractorConfig) *Service {
	return &Service{
		maxFileSize:    cfg.MaxFileSize,
		textScanner:    parser.NewTextScanner(),
		pdfScanner:     parser.NewPDFScanner(),
		sheetScanner:   parser.NewSheetScanner(),
		archiveScanner: parser.NewArchiveScanner(cfg.MaxArchiveDepth, cfg.MaxEntrySize),
	}
}

// Extract 打开文件并提取全部可检测文本
// 顶层文件深度为 0，压缩包条目逐层 +1
func (s *Service) Extract(ctx context.Context, path string) (*model.ScannedContent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, path, err)
	}
	size := info.Size()
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return nil, fmt.Errorf("%w: file size %d exceeds limit %d", ErrUnsupportedFormat, size, s.maxFileSize)
	}

	ext := normalizeExt(path)
	kind, err := s.identify(f, size, ext)
	if err != nil {
		return nil, err
	}

	text, err := s.extractByKind(ctx, f, size, ext, kind, 0)
	if err != nil {
		return nil, err
	}

	return &model.ScannedContent{
		Path:   path,
		Text:   text,
		Format: kind,
	}, nil
}

// identify 魔数优先识别格式；PK 容器再嗅探 workbook 区分 xlsx 与普通 Zip
func (s *Service) identify(reader io.ReaderAt, size int64, ext string) (model.FormatKind, error) {
	header := make([]byte, headerSize)
	n, err := reader.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		return model.FormatUnknown, fmt.Errorf("%w: read header: %v", ErrIO, err)
	}

	kind := format.IdentifyKind(header[:n], ext)
	if kind == model.FormatArchive && hasWorkbook(reader, size) {
		kind = model.FormatSpreadsheet
	}
	return kind, nil
}

// extractByKind 分发到对应提取器，同时作为压缩包条目的递归入口
// 提取器内部 panic 统一按文件损坏吞掉，不拖垮整个扫描进程
func (s *Service) extractByKind(ctx context.Context, reader io.ReaderAt, size int64, ext string, kind model.FormatKind, depth int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Extractor panic recovered", "format", kind.String(), "panic", fmt.Sprint(r))
			text = ""
			err = fmt.Errorf("%w: parser panic: %v", ErrCorrupt, r)
		}
	}()

	switch kind {
	case model.FormatPlainText:
		return s.textScanner.Extract(ctx, reader, size, ext)
	case model.FormatPDF:
		return s.pdfScanner.Extract(ctx, reader, size)
	case model.FormatSpreadsheet:
		return s.sheetScanner.Extract(ctx, reader, size)
	case model.FormatArchive:
		return s.archiveScanner.Extract(ctx, reader, size, depth, s.recurseEntry)
	default:
		return "", fmt.Errorf("%w: ext=%q", ErrUnsupportedFormat, ext)
	}
}

// recurseEntry 压缩包条目的回调：条目内容已在内存中，重新走一遍格式识别与分发
func (s *Service) recurseEntry(ctx context.Context, reader io.ReaderAt, size int64, ext string, depth int) (string, error) {
	header := make([]byte, headerSize)
	n, err := reader.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("%w: read entry header: %v", ErrIO, err)
	}

	kind := format.IdentifyKind(header[:n], ext)
	if kind == model.FormatArchive && hasWorkbook(reader, size) {
		kind = model.FormatSpreadsheet
	}
	return s.extractByKind(ctx, reader, size, ext, kind, depth)
}

// hasWorkbook 检查 PK 容器内是否存在 xl/workbook.xml
// xlsx 本质是 Zip，仅靠魔数区分不开
func hasWorkbook(reader io.ReaderAt, size int64) bool {
	zr, err := zip.NewReader(io.NewSectionReader(reader, 0, size), size)
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if f.Name == "xl/workbook.xml" {
			return true
		}
	}
	return false
}

func normalizeExt(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
