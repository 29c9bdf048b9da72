package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"aalr/domain/core"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestReadCSVWithHeader(t *testing.T) {
	path := writeCSV(t, "samples.csv", "time,flux\n0,1.5\n1,2.5\n2,3.5\n")

	s, err := NewReader().Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if s.XAt(1) != 1 || s.YAt(1) != 2.5 {
		t.Errorf("sample 1 = (%v, %v), want (1, 2.5)", s.XAt(1), s.YAt(1))
	}
}

func TestReadCSVHeaderless(t *testing.T) {
	path := writeCSV(t, "bare.csv", "0,10\n1,11\n2,12\n")

	s, err := NewReader().Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if s.YAt(0) != 10 {
		t.Errorf("first row must count as data, got y[0] = %v", s.YAt(0))
	}
}

func TestReadCSVPicksNamedColumnsOverPosition(t *testing.T) {
	path := writeCSV(t, "wide.csv", "id,flux,t\na,5,0\nb,6,1\nc,7,2\n")

	s, err := NewReader().Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.XAt(0) != 0 || s.YAt(0) != 5 {
		t.Errorf("sample 0 = (%v, %v), want (0, 5)", s.XAt(0), s.YAt(0))
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad y value", "x,y\n0,abc\n"},
		{"bad x value", "x,y\nabc,0\n"},
		{"short row", "x,y\n0\n"},
		{"empty file", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, "bad.csv", tt.content)
			if _, err := NewReader().Read(context.Background(), path); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestReadUnsortedXSurfacesSeriesError(t *testing.T) {
	path := writeCSV(t, "unsorted.csv", "x,y\n2,1\n1,2\n")
	_, err := NewReader().Read(context.Background(), path)
	if !core.IsInvalidInputError(err) {
		t.Fatalf("err = %v, want invalid-input", err)
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := NewReader().Read(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestReadUnsupportedExtension(t *testing.T) {
	path := writeCSV(t, "samples.txt", "0,1\n")
	if _, err := NewReader().Read(context.Background(), path); err == nil {
		t.Fatalf("expected an error for an unsupported extension")
	}
}

func TestReadExcel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	cells := [][]interface{}{
		{"t", "value"},
		{0, 4.5},
		{1, 5.5},
		{2, 6.5},
	}
	for i, row := range cells {
		for j, cell := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue("Sheet1", ref, cell); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "samples.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving workbook: %v", err)
	}

	s, err := NewReader().Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if s.XAt(2) != 2 || s.YAt(2) != 6.5 {
		t.Errorf("sample 2 = (%v, %v), want (2, 6.5)", s.XAt(2), s.YAt(2))
	}
}

func TestReadCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := writeCSV(t, "samples.csv", "x,y\n0,1\n")
	if _, err := NewReader().Read(ctx, path); err == nil {
		t.Fatalf("expected context error")
	}
}
