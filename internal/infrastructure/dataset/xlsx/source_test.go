package xlsx

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()

	file := excelize.NewFile()
	sheet := file.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "dataset.xlsx")
	if err := file.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close workbook: %v", err)
	}
	return path
}

func TestNextMapsColumnsByHeader(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Source", "Problem", "Solution"},
		{"amc", "What is 3*3?", "9"},
		{"", "Solve x-1=0", "x = 1"},
	})

	source, err := Open(path)
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	defer source.Close()

	first, err := source.Next()
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if first.Problem != "What is 3*3?" || first.Solution != "9" || first.Source != "amc" {
		t.Fatalf("unexpected record %+v", first)
	}

	second, err := source.Next()
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if second.Source != "unknown" {
		t.Fatalf("expected default source, got %q", second.Source)
	}

	if _, err := source.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestNextSkipsRowsWithoutProblemOrSolution(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"problem", "solution"},
		{"", "lonely solution"},
		{"lonely problem", ""},
		{"Solve 2x=4", "x = 2"},
	})

	source, err := Open(path)
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	defer source.Close()

	record, err := source.Next()
	if err != nil {
		t.Fatalf("expected usable record, got %v", err)
	}
	if record.Problem != "Solve 2x=4" {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestOpenRejectsMissingColumns(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"question", "answer"},
		{"q", "a"},
	})

	if _, err := Open(path); err == nil {
		t.Fatal("expected missing column error")
	}
}
