package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"linuxFileSentry/internal/config"
	"linuxFileSentry/internal/model"
)

func testService(maxSize int64) *Service {
	return NewService(&config.ExtractorConfig{
		MaxFileSize:     maxSize,
		MaxArchiveDepth: 3,
		MaxEntrySize:    10 * 1024 * 1024,
	})
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func zipBytes(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestServiceExtractPlainText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "note.txt", []byte("reach me at alice@example.com"))

	content, err := testService(0).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if content.Format != model.FormatPlainText {
		t.Errorf("format = %v, want FormatPlainText", content.Format)
	}
	if !strings.Contains(content.Text, "alice@example.com") {
		t.Errorf("文本内容丢失: %q", content.Text)
	}
	if content.Path != path {
		t.Errorf("path = %q, want %q", content.Path, path)
	}
}

func TestServiceExtractArchive(t *testing.T) {
	dir := t.TempDir()
	data := zipBytes(t, map[string][]byte{
		"inner/secret.txt": []byte("card: 4111 1111 1111 1111"),
	})
	path := writeFile(t, dir, "bundle.zip", data)

	content, err := testService(0).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if content.Format != model.FormatArchive {
		t.Errorf("format = %v, want FormatArchive", content.Format)
	}
	if !strings.Contains(content.Text, "4111 1111 1111 1111") {
		t.Errorf("压缩包条目内容丢失: %q", content.Text)
	}
}

func TestServiceXlsxPromotion(t *testing.T) {
	// 带 xl/workbook.xml 的 PK 容器按电子表格处理，而不是普通压缩包
	dir := t.TempDir()
	data := zipBytes(t, map[string][]byte{
		"xl/workbook.xml": []byte(`<?xml version="1.0"?><workbook/>`),
		"xl/worksheets/sheet1.xml": []byte(`<worksheet><sheetData>` +
			`<row><c t="inlineStr"><is><t>dave@example.com</t></is></c></row>` +
			`</sheetData></worksheet>`),
	})
	path := writeFile(t, dir, "report.xlsx", data)

	content, err := testService(0).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if content.Format != model.FormatSpreadsheet {
		t.Errorf("format = %v, want FormatSpreadsheet", content.Format)
	}
	if !strings.Contains(content.Text, "dave@example.com") {
		t.Errorf("表格内容丢失: %q", content.Text)
	}
}

func TestServiceSizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.txt", bytes.Repeat([]byte("A"), 4096))

	// 上限 1KB
	_, err := testService(1024).Extract(context.Background(), path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("超限文件应按不支持跳过, got %v", err)
	}
}

func TestServiceUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	// ELF 头 + 空字节，扩展名也认不出
	path := writeFile(t, dir, "prog.bin", []byte{0x7F, 0x45, 0x4C, 0x46, 0x02, 0x00, 0x00, 0x00})

	_, err := testService(0).Extract(context.Background(), path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("未知格式应返回 ErrUnsupportedFormat, got %v", err)
	}
}

func TestServiceMissingFile(t *testing.T) {
	_, err := testService(0).Extract(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	if !errors.Is(err, ErrIO) {
		t.Errorf("文件不存在应返回 ErrIO, got %v", err)
	}
}
