package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]any
}

// NewWorkbook — книга из листов; у каждого оформленная шапка и ширина по содержимому.
func NewWorkbook(sheets []SheetSpec) (*excelize.File, error) {
	f := excelize.NewFile()
	for i, s := range sheets {
		name := s.Title
		if i == 0 {
			// переименовываем стандартный Sheet1
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet: %w", err)
		}

		for col, h := range s.Header {
			cell := fmt.Sprintf("%s1", columnName(col+1))
			if err := f.SetCellStr(name, cell, h); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
		text := make([][]string, 0, len(s.Rows))
		for r, row := range s.Rows {
			line := make([]string, len(row))
			for c, val := range row {
				cell := fmt.Sprintf("%s%d", columnName(c+1), r+2)
				if err := f.SetCellValue(name, cell, val); err != nil {
					return nil, fmt.Errorf("set cell %s: %w", cell, err)
				}
				line[c] = fmt.Sprint(val)
			}
			text = append(text, line)
		}
		if err := styleSheet(f, name, s.Header, text); err != nil {
			return nil, fmt.Errorf("format %s: %w", name, err)
		}
	}
	return f, nil
}

// Bytes — содержимое книги для отдачи по HTTP.
func Bytes(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
