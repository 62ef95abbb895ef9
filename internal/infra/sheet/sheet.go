package sheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const maxSheetBytes = 50 << 20

// ErrTooLarge is returned for spreadsheets above the parser's size limit.
var ErrTooLarge = errors.New("sheet: file exceeds limit")

// Data is one worksheet flattened for the basic spreadsheet viewer. Rows are
// keyed by column letter (A, B, ...), and ColumnData lists the letters in order.
type Data struct {
	SheetName  string              `json:"sheetName"`
	ColumnData []string            `json:"columnData"`
	RowData    []map[string]string `json:"rowData"`
}

// Parser downloads spreadsheets and turns them into Data.
type Parser struct {
	client   *http.Client
	maxBytes int64
}

// NewParser returns a Parser. A nil client gets a 30 second timeout.
func NewParser(client *http.Client) *Parser {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Parser{client: client, maxBytes: maxSheetBytes}
}

// ParseURL fetches fileURL and parses it as csv or as an excel workbook.
func (p *Parser) ParseURL(ctx context.Context, fileURL string) ([]Data, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("sheet: build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheet: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet: fetch: unexpected status %d", resp.StatusCode)
	}

	if resp.ContentLength > p.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("sheet: read: %w", err)
	}
	if int64(len(body)) > p.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, p.maxBytes)
	}

	if isCSV(fileURL, resp.Header.Get("Content-Type")) {
		return ParseCSV(bytes.NewReader(body))
	}
	return ParseWorkbook(bytes.NewReader(body))
}

// ParseWorkbook reads every worksheet of an xlsx workbook.
func ParseWorkbook(r io.Reader) ([]Data, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("sheet: open workbook: %w", err)
	}
	defer f.Close()

	var out []Data
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("sheet: read %q: %w", name, err)
		}
		d, err := fromRows(name, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ParseCSV reads a csv document as a single sheet named "Sheet1".
func ParseCSV(r io.Reader) ([]Data, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("sheet: read csv: %w", err)
	}
	d, err := fromRows("Sheet1", rows)
	if err != nil {
		return nil, err
	}
	return []Data{d}, nil
}

func fromRows(name string, rows [][]string) (Data, error) {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	d := Data{
		SheetName:  name,
		ColumnData: make([]string, 0, width),
		RowData:    make([]map[string]string, 0, len(rows)),
	}
	for i := 1; i <= width; i++ {
		col, err := excelize.ColumnNumberToName(i)
		if err != nil {
			return Data{}, fmt.Errorf("sheet: column %d: %w", i, err)
		}
		d.ColumnData = append(d.ColumnData, col)
	}
	for _, row := range rows {
		m := make(map[string]string, width)
		for i, col := range d.ColumnData {
			if i < len(row) {
				m[col] = row[i]
			} else {
				m[col] = ""
			}
		}
		d.RowData = append(d.RowData, m)
	}
	return d, nil
}

func isCSV(fileURL, contentType string) bool {
	if strings.HasPrefix(contentType, "text/csv") {
		return true
	}
	u, err := url.Parse(fileURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".csv")
}
