package parser

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// SheetScanner 针对 OOXML 电子表格 (xlsx)
// xlsx 本质是 Zip 包：单元格文本分散在 sharedStrings.xml 和各 sheet XML 中，
// 这里按 工作表 -> 行 -> 列 的顺序还原文本；单元格之间用空格分隔、行之间用
// 换行分隔，避免相邻单元格的内容被错误拼接成一个假命中
type SheetScanner struct{}

func NewSheetScanner() *SheetScanner {
	return &SheetScanner{}
}

// Extract 提取全部工作表的单元格文本
func (s *SheetScanner) Extract(ctx context.Context, reader io.ReaderAt, size int64) (string, error) {
	zipReader, err := zip.NewReader(reader, size)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	// 1. 加载共享字符串表 (xlsx 中重复出现的文本统一存这里)
	shared, err := loadSharedStrings(zipReader)
	if err != nil {
		return "", err
	}

	// 2. 收集工作表文件并按编号排序 (sheet1, sheet2, ..., sheet10)
	var sheetFiles []*zip.File
	for _, f := range zipReader.File {
		if strings.HasPrefix(f.Name, "xl/worksheets/sheet") && strings.HasSuffix(f.Name, ".xml") {
			sheetFiles = append(sheetFiles, f)
		}
	}
	sort.Slice(sheetFiles, func(i, j int) bool {
		return sheetNumber(sheetFiles[i].Name) < sheetNumber(sheetFiles[j].Name)
	})

	// 3. 逐表提取
	var sb strings.Builder
	for _, f := range sheetFiles {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrCorrupt, f.Name, err)
		}
		text, err := parseSheetXML(rc, shared)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrCorrupt, f.Name, err)
		}

		if sb.Len() > 0 && text != "" {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	return sb.String(), nil
}

// sheetNumber 从 "xl/worksheets/sheet12.xml" 中提取 12
func sheetNumber(name string) int {
	name = strings.TrimPrefix(name, "xl/worksheets/sheet")
	name = strings.TrimSuffix(name, ".xml")
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0
	}
	return n
}

// loadSharedStrings 解析 xl/sharedStrings.xml
// 文件不存在不算错误 (表格可能只有数字或内联字符串)
func loadSharedStrings(zipReader *zip.Reader) ([]string, error) {
	var file *zip.File
	for _, f := range zipReader.File {
		if f.Name == "xl/sharedStrings.xml" {
			file = f
			break
		}
	}
	if file == nil {
		return nil, nil
	}

	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: sharedStrings: %v", ErrCorrupt, err)
	}
	defer rc.Close()

	var (
		shared  []string
		current strings.Builder
		inSI    bool
		inT     bool
	)

	decoder := xml.NewDecoder(rc)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: sharedStrings: %v", ErrCorrupt, err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				inSI = true
				current.Reset()
			case "t":
				inT = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "si":
				inSI = false
				shared = append(shared, current.String())
			case "t":
				inT = false
			}
		case xml.CharData:
			if inSI && inT {
				current.Write(t)
			}
		}
	}

	return shared, nil
}

// parseSheetXML 流式解析单张工作表
// <row> 映射为一行；<c t="s"> 的 <v> 是共享字符串下标；其余 <v>/<is><t> 按原值输出
func parseSheetXML(r io.Reader, shared []string) (string, error) {
	var (
		sb        strings.Builder
		rowCells  []string
		cellType  string
		inValue   bool
		inInlineT bool
		cellBuf   strings.Builder
	)

	flushRow := func() {
		if len(rowCells) == 0 {
			return
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Join(rowCells, " "))
		rowCells = rowCells[:0]
	}

	flushCell := func() {
		raw := cellBuf.String()
		cellBuf.Reset()
		if raw == "" {
			return
		}
		if cellType == "s" {
			idx, err := strconv.Atoi(strings.TrimSpace(raw))
			if err == nil && idx >= 0 && idx < len(shared) {
				rowCells = append(rowCells, shared[idx])
			}
			return
		}
		rowCells = append(rowCells, raw)
	}

	decoder := xml.NewDecoder(r)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "c":
				cellType = ""
				for _, attr := range t.Attr {
					if attr.Name.Local == "t" {
						cellType = attr.Value
					}
				}
			case "v":
				inValue = true
			case "t":
				// 内联字符串 <is><t>...</t></is>
				inInlineT = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "row":
				flushRow()
			case "c":
				flushCell()
			case "v":
				inValue = false
			case "t":
				inInlineT = false
			}
		case xml.CharData:
			if inValue || inInlineT {
				cellBuf.Write(t)
			}
		}
	}
	flushRow()

	return sb.String(), nil
}
