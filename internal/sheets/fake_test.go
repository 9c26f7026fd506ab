// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package sheets

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/punchclock/internal/config"
)

const testSpreadsheet = "sheet-123"

// fakeSheets serves the subset of the Sheets v4 API the client uses.
type fakeSheets struct {
	mu     sync.Mutex
	grids  map[string][][]string
	ids    map[string]int64
	status int
	body   string
	delay  time.Duration
	calls  []string
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{
		grids: map[string][][]string{
			"MAIN": {{"ชื่อพนักงาน", "ชื่อไลน์", "รูป", "เวลาเข้า", "หมายเหตุ", "เวลาออก", "พิกัดเข้า", "ที่อยู่เข้า", "พิกัดออก", "ที่อยู่ออก", "ชั่วโมงทำงาน"}},
			"ON WORK": {
				{"วันที่", "ชื่อพนักงาน", "เวลาเข้า", "สถานะ", "หมายเหตุ", "พิกัด", "ที่อยู่", "แถวอ้างอิง", "ชื่อไลน์", "รูปไลน์", "แถวในMain", "ชื่อในระบบ"},
				{},
			},
			"EMPLOYEES": {{"ลำดับ", "ชื่อ-นามสกุล"}, {"1", "Somchai Jaidee"}, {"2", ""}, {"3", "Suda Dee"}},
		},
		ids: map[string]int64{"MAIN": 0, "ON WORK": 11, "EMPLOYEES": 22},
	}
}

func (f *fakeSheets) rows(title string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.grids[title]))
	for i, r := range f.grids[title] {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	status, body, delay := f.status, f.body, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/"+testSpreadsheet)
	switch {
	case rest == "" && r.Method == http.MethodGet:
		f.serveMeta(w)
	case rest == ":batchUpdate":
		f.serveDelete(w, r)
	case rest == "/values:batchUpdate":
		f.serveUpdate(w, r)
	case strings.HasPrefix(rest, "/values/") && strings.HasSuffix(rest, ":append"):
		f.serveAppend(w, r, strings.TrimSuffix(strings.TrimPrefix(rest, "/values/"), ":append"))
	case strings.HasPrefix(rest, "/values/"):
		f.serveGet(w, strings.TrimPrefix(rest, "/values/"))
	default:
		http.NotFound(w, r)
	}
}

// splitRange turns "'ON WORK'!A1" into ("ON WORK", "A1").
func splitRange(a1 string) (string, string) {
	title, cells := a1, ""
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		title, cells = a1[:i], a1[i+1:]
	}
	title = strings.TrimSuffix(strings.TrimPrefix(title, "'"), "'")
	return strings.ReplaceAll(title, "''", "'"), cells
}

func (f *fakeSheets) serveMeta(w http.ResponseWriter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	type props struct {
		SheetID int64  `json:"sheetId"`
		Title   string `json:"title"`
	}
	var sheets []map[string]props
	for title, id := range f.ids {
		sheets = append(sheets, map[string]props{"properties": {SheetID: id, Title: title}})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
}

func (f *fakeSheets) serveGet(w http.ResponseWriter, a1 string) {
	title, cells := splitRange(a1)
	f.mu.Lock()
	rows := f.grids[title]
	f.mu.Unlock()
	if rows == nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Unable to parse range","status":"INVALID_ARGUMENT"}}`))
		return
	}
	start := 1
	if from, to, ok := strings.Cut(cells, ":"); ok && from == to {
		n, err := strconv.Atoi(from)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		start = n
		if n > len(rows) {
			rows = nil
		} else {
			rows = rows[n-1 : n]
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"range":          "'" + title + "'!A" + strconv.Itoa(start) + ":Z" + strconv.Itoa(start+len(rows)-1),
		"majorDimension": "ROWS",
		"values":         rows,
	})
}

func (f *fakeSheets) serveAppend(w http.ResponseWriter, r *http.Request, a1 string) {
	title, _ := splitRange(a1)
	var body struct {
		Values [][]any `json:"values"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row := make([]string, len(body.Values[0]))
	for i, v := range body.Values[0] {
		row[i] = cellString(v)
	}
	f.grids[title] = append(f.grids[title], row)
	n := len(f.grids[title])
	_ = json.NewEncoder(w).Encode(map[string]any{
		"updates": map[string]any{"updatedRange": "'" + title + "'!A" + strconv.Itoa(n) + ":K" + strconv.Itoa(n)},
	})
}

func (f *fakeSheets) serveUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Data []struct {
			Range  string  `json:"range"`
			Values [][]any `json:"values"`
		} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range body.Data {
		title, cell := splitRange(d.Range)
		i := strings.IndexAny(cell, "0123456789")
		col := 0
		for _, ch := range cell[:i] {
			col = col*26 + int(ch-'A'+1)
		}
		col--
		rowNum, _ := strconv.Atoi(cell[i:])
		grid := f.grids[title]
		for len(grid) < rowNum {
			grid = append(grid, nil)
		}
		for len(grid[rowNum-1]) <= col {
			grid[rowNum-1] = append(grid[rowNum-1], "")
		}
		grid[rowNum-1][col] = cellString(d.Values[0][0])
		f.grids[title] = grid
	}
	_, _ = w.Write([]byte(`{}`))
}

func (f *fakeSheets) serveDelete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Requests []struct {
			DeleteDimension struct {
				Range struct {
					SheetID    int64 `json:"sheetId"`
					StartIndex int   `json:"startIndex"`
					EndIndex   int   `json:"endIndex"`
				} `json:"range"`
			} `json:"deleteDimension"`
		} `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range body.Requests {
		rg := req.DeleteDimension.Range
		for title, id := range f.ids {
			if id != rg.SheetID {
				continue
			}
			grid := f.grids[title]
			f.grids[title] = append(grid[:rg.StartIndex:rg.StartIndex], grid[rg.EndIndex:]...)
		}
	}
	_, _ = w.Write([]byte(`{}`))
}

func newTestRepository(t *testing.T) (*Repository, *Client, *fakeSheets) {
	t.Helper()
	fake := newFakeSheets()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := config.SheetsConfig{
		SpreadsheetID:  testSpreadsheet,
		BaseURL:        srv.URL,
		Timeout:        time.Second,
		MainSheet:      "MAIN",
		OnWorkSheet:    "ON WORK",
		EmployeesSheet: "EMPLOYEES",
	}
	client, err := NewClient(cfg, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return NewRepository(client, cfg), client, fake
}
