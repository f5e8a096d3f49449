package export

import (
	"strings"
	"testing"
	"time"

	"github.com/Spok95/sportclub-bot/internal/models"
)

func TestAttendanceWorkbook(t *testing.T) {
	sessions := []models.SessionStats{{
		SessionID:  1,
		Date:       time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC),
		DayName:    "Понедельник",
		StartTime:  "18:00",
		EndTime:    "19:00",
		Total:      4,
		Present:    3,
		Absent:     1,
		Percentage: 75,
	}}
	people := []ParticipantTotals{{FullName: "Петя Иванов", Marked: 4, Present: 3, Unexcused: 1}}

	f, err := AttendanceWorkbook("Дзюдо", sessions, people)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.GetSheetList(); len(got) != 2 || got[0] != "Занятия" || got[1] != "Участники" {
		t.Fatalf("sheets: %v", got)
	}
	if v, _ := f.GetCellValue("Занятия", "A2"); v != "12.05.2025" {
		t.Fatalf("A2 = %q", v)
	}
	if v, _ := f.GetCellValue("Занятия", "G2"); v != "75" {
		t.Fatalf("G2 = %q", v)
	}
	if v, _ := f.GetCellValue("Участники", "F2"); v != "75" {
		t.Fatalf("F2 = %q", v)
	}

	b, err := Bytes(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) < 4 || string(b[:2]) != "PK" {
		t.Fatal("xlsx must be a zip archive")
	}
}

func TestFilenameAndColumns(t *testing.T) {
	name := AttendanceReportFilename("Дзюдо: старшие/7+", time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC))
	if strings.ContainsAny(name, `/:`) || !strings.HasSuffix(name, "2025-05-12.xlsx") {
		t.Fatalf("filename: %q", name)
	}
	if columnName(1) != "A" || columnName(26) != "Z" || columnName(27) != "AA" {
		t.Fatal("columnName")
	}
}
