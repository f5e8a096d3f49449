package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	minColWidth = 10
	maxColWidth = 48
)

// styleSheet оформляет лист отчёта: шапка с заливкой и закреплённой строкой,
// автофильтр по шапке, ширина колонок по самому длинному значению.
func styleSheet(f *excelize.File, sheet string, header []string, rows [][]string) error {
	cols := len(header)
	if cols == 0 {
		return nil
	}
	last := columnName(cols)

	head, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", head); err != nil {
		return err
	}
	if err := f.AutoFilter(sheet, "A1:"+last+"1", nil); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	for c := 0; c < cols; c++ {
		w := float64(utf8.RuneCountInString(header[c])) + 2
		for _, r := range rows {
			if c < len(r) {
				if n := float64(utf8.RuneCountInString(r[c])) * 1.1; n > w {
					w = n
				}
			}
		}
		w = min(max(w, minColWidth), maxColWidth)
		col := columnName(c + 1)
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

// AttendanceReportFilename — «Посещаемость — <группа> — <дата>.xlsx».
func AttendanceReportFilename(groupName string, at time.Time) string {
	g := strings.Join(strings.Fields(groupName), " ")
	if g == "" {
		g = "группа"
	}
	name := fmt.Sprintf("Посещаемость — %s — %s.xlsx", g, at.Format("2006-01-02"))
	return forbiddenInName.ReplaceAllString(name, "_")
}

var forbiddenInName = regexp.MustCompile(`[\\/:*?"<>|]+`)

// columnName: 1 -> A, 27 -> AA.
func columnName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+n%26)) + s
		n /= 26
	}
	return s
}
