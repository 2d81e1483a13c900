package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"p9e.in/hallfix/models"
)

// userCSVHeader is the fixed directory export schema. Column order is a
// compatibility contract with downstream spreadsheets; do not reorder.
var userCSVHeader = []string{
	"Name", "Email", "ID", "Role", "Block", "Lane", "Room",
	"Program_or_Task", "Approved", "CreatedAt",
}

// csvCell wraps every value in quotes with internal quotes doubled. All
// cells are quoted unconditionally, not just those needing escape.
func csvCell(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func csvLine(cells []string) string {
	quoted := make([]string, len(cells))
	for i, cell := range cells {
		quoted[i] = csvCell(cell)
	}
	return strings.Join(quoted, ",")
}

func userCSVRow(u models.DirectoryUser) []string {
	createdAt := ""
	if !u.CreatedAt.IsZero() {
		createdAt = u.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	approved := "false"
	if u.Approved {
		approved = "true"
	}
	return []string{
		u.Name, u.Email, u.StudentID, u.RoleLabel, u.BlockLabel,
		u.LaneLabel, u.RoomLabel, u.ProgramOrTask(), approved, createdAt,
	}
}

// UsersCSV serializes a directory listing. Lines are newline-joined with no
// trailing newline.
func UsersCSV(rows []models.DirectoryUser) []byte {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, csvLine(userCSVHeader))
	for _, u := range rows {
		lines = append(lines, csvLine(userCSVRow(u)))
	}
	return []byte(strings.Join(lines, "\n"))
}

// ExportUsersCSV downloads the currently filtered and sorted directory.
func ExportUsersCSV(w http.ResponseWriter, r *http.Request) {
	if err := Directory.Err(); err != nil {
		http.Error(w, "user directory unavailable", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	rows := SortUsers(Directory.Filter(directoryFilterFromQuery(q)), q.Get("sort"))
	if len(rows) == 0 {
		http.Error(w, "no users match the selected filters", http.StatusNotFound)
		return
	}

	data := UsersCSV(rows)
	stamp := strings.NewReplacer(":", "-", "T", "-").Replace(time.Now().UTC().Format("2006-01-02T15:04:05"))
	w.Header().Set("Content-Type", "text/csv;charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=hall-users-%s.csv", stamp))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

var reportSheetHeader = []string{
	"Room", "Block", "Subdivision", "Faults", "Status",
	"Reported By", "Created At", "Resolved At", "Resolved By",
}

// ExportReportsExcel downloads the merged report set, or one category when
// faultId is given, as a spreadsheet.
func ExportReportsExcel(w http.ResponseWriter, r *http.Request) {
	if !requireLiveReports(w) {
		return
	}
	faultID := r.URL.Query().Get("faultId")
	var rows []models.Report
	sheetName := "All Reports"
	if faultID != "" {
		fault, ok := Engine.FaultByID(faultID)
		if !ok {
			http.Error(w, "unknown fault category", http.StatusNotFound)
			return
		}
		rows = Engine.ReportsForFault(faultID)
		sheetName = fault.Label
	} else {
		rows = Engine.Merged()
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, "Reports"); err == nil {
		sheet = "Reports"
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for col, header := range reportSheetHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, titleStyle)
	}

	for i, report := range rows {
		values := []string{
			report.Room,
			models.NormalizeBlockLabel(report.Area),
			models.SubdivisionLabel(report.Area, report.Subdivision),
			strings.Join(report.Faults, "; "),
			string(report.Status),
			report.Student.Name,
			formatTimestamp(&report.CreatedAt),
			formatTimestamp(report.ResolvedAt),
			report.ResolvedBy,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		http.Error(w, "failed to generate spreadsheet", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("%s_%s.xlsx", sanitizeFilename(sheetName), time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buffer.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buffer.Bytes())
}

func formatTimestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
