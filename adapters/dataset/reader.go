// Package dataset reads sample series from CSV and Excel files.
package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"aalr/domain/series"
	"aalr/internal"
	"aalr/ports"
)

// Column names recognized as the sample axis and the value axis. Files
// without a recognized header fall back to the first two columns.
var (
	xColumns = []string{"x", "t", "time", "index", "epoch"}
	yColumns = []string{"y", "value", "val", "flux", "signal"}
)

// Reader loads series files. The format is chosen by file extension.
type Reader struct {
	log *internal.Logger
}

// NewReader creates a file-backed series reader
func NewReader() *Reader {
	return &Reader{log: internal.DefaultLogger}
}

// Read loads the series at the given path
func (r *Reader) Read(ctx context.Context, location string) (*series.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(location); os.IsNotExist(err) {
		return nil, fmt.Errorf("series file not found: %s", location)
	}

	var rows [][]string
	var err error
	switch ext := strings.ToLower(filepath.Ext(location)); ext {
	case ".csv":
		rows, err = r.readCSVRows(location)
	case ".xlsx", ".xlsm":
		rows, err = r.readExcelRows(location)
	default:
		return nil, fmt.Errorf("unsupported series file extension %q", ext)
	}
	if err != nil {
		return nil, err
	}

	s, err := r.parseSeries(rows)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", location, err)
	}
	r.log.Debug("[Reader] loaded %d samples from %s", s.Len(), location)
	return s, nil
}

func (r *Reader) readCSVRows(location string) ([][]string, error) {
	file, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

func (r *Reader) readExcelRows(location string) ([][]string, error) {
	f, err := excelize.OpenFile(location)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// parseSeries locates the x and y columns and converts the rows. A first row
// that already parses as numbers is treated as data, not as a header.
func (r *Reader) parseSeries(rows [][]string) (*series.Series, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("file has no rows")
	}

	xCol, yCol := 0, 1
	start := 0
	if !rowIsNumeric(rows[0]) {
		headers := make([]string, len(rows[0]))
		for i, h := range rows[0] {
			headers[i] = strings.TrimSpace(h)
		}
		if idx := findColumn(headers, xColumns); idx >= 0 {
			xCol = idx
		}
		if idx := findColumn(headers, yColumns); idx >= 0 {
			yCol = idx
		}
		if xCol == yCol {
			return nil, fmt.Errorf("could not tell the x and y columns apart")
		}
		start = 1
	}

	var xs, ys []float64
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 {
			continue
		}
		if len(row) <= xCol || len(row) <= yCol {
			return nil, fmt.Errorf("row %d has %d columns, need at least %d", i+1, len(row), max(xCol, yCol)+1)
		}
		x, err := parseCell(row[xCol])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad x value %q", i+1, row[xCol])
		}
		y, err := parseCell(row[yCol])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad y value %q", i+1, row[yCol])
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}

	return series.New(xs, ys)
}

func parseCell(cell string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(cell), 64)
}

func rowIsNumeric(row []string) bool {
	if len(row) < 2 {
		return false
	}
	for _, cell := range row[:2] {
		if _, err := parseCell(cell); err != nil {
			return false
		}
	}
	return true
}

func findColumn(headers []string, candidates []string) int {
	for _, candidate := range candidates {
		for i, header := range headers {
			if strings.EqualFold(header, candidate) {
				return i
			}
		}
	}
	return -1
}

var _ ports.SeriesReader = (*Reader)(nil)
