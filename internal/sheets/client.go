// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

// Package sheets talks to the Google Sheets v4 REST API and exposes the
// attendance tables as an attendance.Repository.
//
// Failures are classified here rather than by callers: HTTP 429 and
// RESOURCE_EXHAUSTED map to quota.ErrQuotaExceeded, 5xx responses, transport
// errors and an open circuit map to quota.ErrUnavailable.
package sheets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"

	"github.com/tomtom215/punchclock/internal/breaker"
	"github.com/tomtom215/punchclock/internal/config"
	"github.com/tomtom215/punchclock/internal/quota"
)

// Scope grants read/write access to spreadsheets.
const Scope = "https://www.googleapis.com/auth/spreadsheets"

const maxErrorBodySize = 64 * 1024

// APIError is a non-retryable error response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sheets api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("sheets api: %d: %s", e.Status, e.Message)
}

// Client is a minimal Sheets v4 client for one spreadsheet.
type Client struct {
	baseURL       string
	spreadsheetID string
	http          *http.Client
	timeout       time.Duration
	breaker       *breaker.Breaker

	idsMu    sync.Mutex
	sheetIDs map[string]int64

	headerMu sync.Mutex
	headers  map[string][]string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the authenticated HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient builds a client authenticated with the service account key in
// cfg. With WithHTTPClient no credentials are needed.
func NewClient(cfg config.SheetsConfig, opts ...ClientOption) (*Client, error) {
	c := &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		spreadsheetID: cfg.SpreadsheetID,
		timeout:       cfg.Timeout,
		sheetIDs:      make(map[string]int64),
		headers:       make(map[string][]string),
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		hc, err := serviceAccountClient(cfg, c.timeout)
		if err != nil {
			return nil, err
		}
		c.http = hc
	}
	c.breaker = breaker.New("sheets-api", breaker.Settings{
		IsSuccessful: func(err error) bool {
			// Client-side mistakes say nothing about upstream health.
			var apiErr *APIError
			return err == nil || errors.As(err, &apiErr)
		},
	})
	return c, nil
}

type serviceAccountKey struct {
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

func serviceAccountClient(cfg config.SheetsConfig, timeout time.Duration) (*http.Client, error) {
	raw := []byte(cfg.CredentialsJSON)
	if len(raw) == 0 && cfg.CredentialsFile != "" {
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		raw = b
	}
	if len(raw) == 0 {
		return nil, errors.New("sheets: no service account credentials configured")
	}

	var key serviceAccountKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, errors.New("sheets: service account key lacks client_email or private_key")
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = key.TokenURI
	}
	conf := &jwt.Config{
		Email:        key.ClientEmail,
		PrivateKey:   []byte(key.PrivateKey),
		PrivateKeyID: key.PrivateKeyID,
		Scopes:       []string{Scope},
		TokenURL:     tokenURL,
	}
	// Token fetches use their own bounded client.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
	hc := conf.Client(tokenCtx)
	hc.Timeout = timeout
	return hc, nil
}

// valueRange mirrors the API's ValueRange.
type valueRange struct {
	Range          string  `json:"range"`
	MajorDimension string  `json:"majorDimension,omitempty"`
	Values         [][]any `json:"values"`
}

// Grid is a sheet's values with the row number of the first returned row.
type Grid struct {
	StartRow int
	Rows     [][]string
}

// Values reads every populated cell of sheet, formatted as displayed.
func (c *Client) Values(ctx context.Context, sheet string) (*Grid, error) {
	u := c.valuesURL(quoteSheet(sheet)) + "?valueRenderOption=FORMATTED_VALUE&majorDimension=ROWS"
	var vr valueRange
	if err := c.do(ctx, http.MethodGet, u, nil, &vr); err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	g := &Grid{StartRow: startRow(vr.Range), Rows: make([][]string, len(vr.Values))}
	for i, row := range vr.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		g.Rows[i] = cells
	}
	return g, nil
}

// Row reads a single row (1-based) of sheet. A row past the last populated
// one comes back empty.
func (c *Client) Row(ctx context.Context, sheet string, row int) ([]string, error) {
	a1 := fmt.Sprintf("%s!%d:%d", quoteSheet(sheet), row, row)
	u := c.valuesURL(a1) + "?valueRenderOption=FORMATTED_VALUE"
	var vr valueRange
	if err := c.do(ctx, http.MethodGet, u, nil, &vr); err != nil {
		return nil, fmt.Errorf("read %s row %d: %w", sheet, row, err)
	}
	if len(vr.Values) == 0 {
		return nil, nil
	}
	cells := make([]string, len(vr.Values[0]))
	for i, v := range vr.Values[0] {
		cells[i] = cellString(v)
	}
	return cells, nil
}

// Header returns the first row of sheet.
func (c *Client) Header(ctx context.Context, sheet string) ([]string, error) {
	c.headerMu.Lock()
	h, ok := c.headers[sheet]
	c.headerMu.Unlock()
	if ok {
		return h, nil
	}

	u := c.valuesURL(quoteSheet(sheet)+"!1:1") + "?valueRenderOption=FORMATTED_VALUE"
	var vr valueRange
	if err := c.do(ctx, http.MethodGet, u, nil, &vr); err != nil {
		return nil, fmt.Errorf("read %s header: %w", sheet, err)
	}
	if len(vr.Values) == 0 {
		return nil, &APIError{Status: http.StatusNotFound, Message: fmt.Sprintf("sheet %q has no header row", sheet)}
	}
	h = make([]string, len(vr.Values[0]))
	for i, v := range vr.Values[0] {
		h[i] = cellString(v)
	}
	c.headerMu.Lock()
	c.headers[sheet] = h
	c.headerMu.Unlock()
	return h, nil
}

type appendResponse struct {
	Updates struct {
		UpdatedRange string `json:"updatedRange"`
	} `json:"updates"`
}

// Append writes row after the last populated row of sheet and returns its
// row number. Values are interpreted as if typed, so formulas evaluate.
func (c *Client) Append(ctx context.Context, sheet string, row []any) (int, error) {
	u := c.valuesURL(quoteSheet(sheet)+"!A1") + ":append?valueInputOption=USER_ENTERED&insertDataOption=INSERT_ROWS"
	body := valueRange{Range: quoteSheet(sheet) + "!A1", MajorDimension: "ROWS", Values: [][]any{row}}
	var resp appendResponse
	if err := c.do(ctx, http.MethodPost, u, body, &resp); err != nil {
		return 0, fmt.Errorf("append %s: %w", sheet, err)
	}
	n := startRow(resp.Updates.UpdatedRange)
	if n == 0 {
		return 0, fmt.Errorf("append %s: unexpected updated range %q", sheet, resp.Updates.UpdatedRange)
	}
	return n, nil
}

// CellUpdate sets one cell.
type CellUpdate struct {
	Row    int
	Column int // 0-based
	Value  any
}

// Update writes cells of sheet in a single request.
func (c *Client) Update(ctx context.Context, sheet string, cells []CellUpdate) error {
	data := make([]valueRange, 0, len(cells))
	for _, cell := range cells {
		data = append(data, valueRange{
			Range:  fmt.Sprintf("%s!%s%d", quoteSheet(sheet), ColumnName(cell.Column), cell.Row),
			Values: [][]any{{cell.Value}},
		})
	}
	body := map[string]any{"valueInputOption": "USER_ENTERED", "data": data}
	u := c.valuesURL("") + ":batchUpdate"
	if err := c.do(ctx, http.MethodPost, u, body, nil); err != nil {
		return fmt.Errorf("update %s: %w", sheet, err)
	}
	return nil
}

// DeleteRow removes row (1-based) from sheet, shifting later rows up.
func (c *Client) DeleteRow(ctx context.Context, sheet string, row int) error {
	id, err := c.sheetID(ctx, sheet)
	if err != nil {
		return err
	}
	body := map[string]any{
		"requests": []any{map[string]any{
			"deleteDimension": map[string]any{
				"range": map[string]any{
					"sheetId":    id,
					"dimension":  "ROWS",
					"startIndex": row - 1,
					"endIndex":   row,
				},
			},
		}},
	}
	u := fmt.Sprintf("%s/v4/spreadsheets/%s:batchUpdate", c.baseURL, url.PathEscape(c.spreadsheetID))
	if err := c.do(ctx, http.MethodPost, u, body, nil); err != nil {
		return fmt.Errorf("delete %s row %d: %w", sheet, row, err)
	}
	return nil
}

type spreadsheetMeta struct {
	Sheets []struct {
		Properties struct {
			SheetID int64  `json:"sheetId"`
			Title   string `json:"title"`
		} `json:"properties"`
	} `json:"sheets"`
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	c.idsMu.Lock()
	id, ok := c.sheetIDs[title]
	c.idsMu.Unlock()
	if ok {
		return id, nil
	}
	if err := c.loadSheetIDs(ctx); err != nil {
		return 0, err
	}
	c.idsMu.Lock()
	defer c.idsMu.Unlock()
	if id, ok := c.sheetIDs[title]; ok {
		return id, nil
	}
	return 0, &APIError{Status: http.StatusNotFound, Message: fmt.Sprintf("sheet %q not found", title)}
}

func (c *Client) loadSheetIDs(ctx context.Context) error {
	u := fmt.Sprintf("%s/v4/spreadsheets/%s?fields=sheets.properties", c.baseURL, url.PathEscape(c.spreadsheetID))
	var meta spreadsheetMeta
	if err := c.do(ctx, http.MethodGet, u, nil, &meta); err != nil {
		return fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	ids := make(map[string]int64, len(meta.Sheets))
	for _, s := range meta.Sheets {
		ids[s.Properties.Title] = s.Properties.SheetID
	}
	c.idsMu.Lock()
	c.sheetIDs = ids
	c.idsMu.Unlock()
	return nil
}

// Ping reads the spreadsheet metadata and refreshes the sheet ID cache.
func (c *Client) Ping(ctx context.Context) error {
	return c.loadSheetIDs(ctx)
}

// BreakerState reports the circuit state.
func (c *Client) BreakerState() string { return c.breaker.State() }

func (c *Client) valuesURL(rangeA1 string) string {
	u := fmt.Sprintf("%s/v4/spreadsheets/%s/values", c.baseURL, url.PathEscape(c.spreadsheetID))
	if rangeA1 != "" {
		u += "/" + url.PathEscape(rangeA1)
	}
	return u
}

func (c *Client) do(ctx context.Context, method, u string, in, out any) error {
	_, err := breaker.Execute(c.breaker, func() (struct{}, error) {
		return struct{}{}, c.roundTrip(ctx, method, u, in, out)
	})
	if breaker.IsRejection(err) {
		return fmt.Errorf("%w: circuit %s", quota.ErrUnavailable, c.breaker.State())
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, u string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("request timed out: %w", context.DeadlineExceeded)
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", quota.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return classify(resp.StatusCode, readBodyForError(resp.Body))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// classify turns an error response into a sentinel-wrapping error.
func classify(status int, body []byte) error {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env)
	msg := env.Error.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	apiErr := &APIError{Status: status, Code: env.Error.Status, Message: msg}

	switch {
	case status == http.StatusTooManyRequests || env.Error.Status == "RESOURCE_EXHAUSTED":
		return fmt.Errorf("%w: %s", quota.ErrQuotaExceeded, apiErr.Error())
	case status >= 500:
		return fmt.Errorf("%w: %s", quota.ErrUnavailable, apiErr.Error())
	default:
		return apiErr
	}
}

func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}

// quoteSheet quotes a sheet title for A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

var rangeStartRe = regexp.MustCompile(`![A-Z]*(\d+)`)

// startRow extracts the first row number from an A1 range such as
// "'ON WORK'!A3:L9". A range without a row number starts at row 1.
func startRow(a1 string) int {
	if a1 == "" {
		return 0
	}
	m := rangeStartRe.FindStringSubmatch(a1)
	if m == nil {
		if strings.Contains(a1, "!") {
			return 1
		}
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// ColumnName converts a 0-based column index to letters: 0 -> A, 26 -> AA.
func ColumnName(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
