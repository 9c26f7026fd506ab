// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

// Package report renders attendance reports as xlsx workbooks.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tomtom215/punchclock/internal/attendance"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SheetName is the single worksheet in every report.
const SheetName = "รายงานการลงเวลา"

const (
	fontFamily = "Angsana New"
	headerRow  = 6
	lastColumn = "I"
)

var columnHeaders = []string{
	"ลำดับ",
	"ชื่อ-นามสกุล",
	"วันที่",
	"เวลาเข้า",
	"เวลาออก",
	"ชั่วโมงทำงาน",
	"หมายเหตุ",
	"สถานที่เข้า",
	"สถานที่ออก",
}

var columnWidths = []float64{8, 25, 15, 12, 12, 15, 20, 20, 20}

var thaiMonths = []string{
	"มกราคม", "กุมภาพันธ์", "มีนาคม", "เมษายน", "พฤษภาคม", "มิถุนายน",
	"กรกฎาคม", "สิงหาคม", "กันยายน", "ตุลาคม", "พฤศจิกายน", "ธันวาคม",
}

// Organization is printed in the report banner.
type Organization struct {
	Name    string
	Address string
	Phone   string
}

// DefaultOrganization is used when the caller leaves Organization empty.
var DefaultOrganization = Organization{
	Name:    "องค์การบริหารส่วนตำบลข่าใหญ่",
	Address: "อำเภอเมือง จังหวัดนครราชสีมา",
	Phone:   "042-315962",
}

// Builder renders workbooks. The zero value is usable.
type Builder struct {
	Org      Organization
	Location *time.Location
	// Now stamps the footer; defaults to time.Now.
	Now func() time.Time
}

// Title returns the report heading for a query kind.
func Title(kind string) string {
	switch kind {
	case attendance.ReportDaily:
		return "รายงานการลงเวลาเข้า-ออกงาน รายวัน"
	case attendance.ReportMonthly:
		return "รายงานการลงเวลาเข้า-ออกงาน รายเดือน"
	case attendance.ReportRange:
		return "รายงานการลงเวลาเข้า-ออกงาน ช่วงวันที่"
	default:
		return ""
	}
}

// Period describes the covered time span in Thai, with Buddhist-era years.
func Period(q attendance.ReportQuery) string {
	switch q.Kind {
	case attendance.ReportDaily:
		return "วันที่ " + ThaiDate(q.Date)
	case attendance.ReportMonthly:
		if q.Month < 1 || q.Month > 12 {
			return ""
		}
		return fmt.Sprintf("เดือน %s %d", thaiMonths[q.Month-1], q.Year+543)
	case attendance.ReportRange:
		return ThaiDate(q.Start) + " - " + ThaiDate(q.End)
	default:
		return ""
	}
}

// ThaiDate formats t as d/m/yyyy with a Buddhist-era year.
func ThaiDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year()+543)
}

// Write renders rows for q and writes the workbook to w.
func (b *Builder) Write(w io.Writer, q attendance.ReportQuery, rows []attendance.ReportRow) error {
	f, err := b.Build(q, rows)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Build returns the workbook for q and rows. The caller closes it.
func (b *Builder) Build(q attendance.ReportQuery, rows []attendance.ReportRow) (*excelize.File, error) {
	org := b.Org
	if org.Name == "" {
		org = DefaultOrganization
	}
	loc := b.Location
	if loc == nil {
		loc = time.Local
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	f := excelize.NewFile()
	if err := b.fill(f, org, loc, now().In(loc), q, rows); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func (b *Builder) fill(f *excelize.File, org Organization, loc *time.Location, now time.Time, q attendance.ReportQuery, rows []attendance.ReportRow) error {
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	// Banner.
	banner := org.Name + "\n" + Title(q.Kind) + "\n" + Period(q)
	if err := writeMerged(f, "A1", lastColumn+"3", banner, st.title); err != nil {
		return err
	}
	contact := org.Address + " โทร. " + org.Phone
	if err := writeMerged(f, "A4", lastColumn+"4", contact, st.contact); err != nil {
		return err
	}

	// Table.
	for i, h := range columnHeaders {
		if err := setCell(f, i+1, headerRow, h, st.header); err != nil {
			return err
		}
	}
	for i, row := range rows {
		values := rowValues(i+1, row, loc)
		for col, v := range values {
			style := st.cell
			if col == 0 {
				style = st.index
			}
			if err := setCell(f, col+1, headerRow+1+i, v, style); err != nil {
				return err
			}
		}
	}
	for i, width := range columnWidths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(SheetName, name, name, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	// Summary and footer.
	summaryRow := headerRow + len(rows) + 2
	summary := fmt.Sprintf("สรุป: พบข้อมูลทั้งหมด %d รายการ", len(rows))
	if err := writeMerged(f, "A"+strconv.Itoa(summaryRow), lastColumn+strconv.Itoa(summaryRow), summary, st.summary); err != nil {
		return err
	}
	footerRow := summaryRow + 2
	footer := "สร้างรายงานเมื่อ: " + ThaiDate(now) + " " + now.Format("15:04:05")
	return writeMerged(f, "A"+strconv.Itoa(footerRow), lastColumn+strconv.Itoa(footerRow), footer, st.footer)
}

// rowValues lays out one report row; blank timestamps stay blank.
func rowValues(index int, row attendance.ReportRow, loc *time.Location) []any {
	var date, in, out, hours string
	if t, err := attendance.ParseTimestamp(row.ClockIn, loc); err == nil {
		date = ThaiDate(t)
		in = t.Format("15:04:05")
	}
	if t, err := attendance.ParseTimestamp(row.ClockOut, loc); err == nil {
		out = t.Format("15:04:05")
	}
	if row.WorkingHours != "" {
		hours = row.WorkingHours + " ชม."
	}
	return []any{index, row.Employee, date, in, out, hours, row.Note, row.LocationIn, row.LocationOut}
}

type styles struct {
	title, contact, header, index, cell, summary, footer int
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "top", Color: "000000", Style: 1},
		{Type: "left", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	var st styles
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&st.title, &excelize.Style{
			Font:      &excelize.Font{Family: fontFamily, Size: 18, Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		}},
		{&st.contact, &excelize.Style{
			Font:      &excelize.Font{Family: fontFamily, Size: 14},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		}},
		{&st.header, &excelize.Style{
			Font:      &excelize.Font{Family: fontFamily, Size: 14, Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E6E6FA"}},
			Border:    border,
		}},
		{&st.index, &excelize.Style{
			Font:      &excelize.Font{Family: fontFamily, Size: 12},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    border,
		}},
		{&st.cell, &excelize.Style{
			Font:      &excelize.Font{Family: fontFamily, Size: 12},
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
			Border:    border,
		}},
		{&st.summary, &excelize.Style{
			Font: &excelize.Font{Family: fontFamily, Size: 12, Bold: true},
		}},
		{&st.footer, &excelize.Style{
			Font:      &excelize.Font{Family: fontFamily, Size: 10},
			Alignment: &excelize.Alignment{Horizontal: "right"},
		}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return st, fmt.Errorf("create style: %w", err)
		}
		*d.dst = id
	}
	return st, nil
}

func setCell(f *excelize.File, col, row int, v any, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetCellValue(SheetName, cell, v); err != nil {
		return fmt.Errorf("set %s: %w", cell, err)
	}
	if err := f.SetCellStyle(SheetName, cell, cell, style); err != nil {
		return fmt.Errorf("style %s: %w", cell, err)
	}
	return nil
}

func writeMerged(f *excelize.File, from, to, value string, style int) error {
	if err := f.MergeCell(SheetName, from, to); err != nil {
		return fmt.Errorf("merge %s:%s: %w", from, to, err)
	}
	if err := f.SetCellValue(SheetName, from, value); err != nil {
		return fmt.Errorf("set %s: %w", from, err)
	}
	if err := f.SetCellStyle(SheetName, from, to, style); err != nil {
		return fmt.Errorf("style %s: %w", from, err)
	}
	return nil
}
