// Package xlsx reads problem datasets exported as spreadsheets. The
// first row must name the columns; problem and solution are required,
// source is optional.
package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mathrag-io/mathrag/internal/core/domain"
	"github.com/mathrag-io/mathrag/internal/core/ports"
)

type Source struct {
	file    *excelize.File
	rows    *excelize.Rows
	columns map[string]int
	row     int
}

var _ ports.DatasetSource = (*Source)(nil)

func Open(path string) (*Source, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	source, err := fromFile(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return source, nil
}

func fromFile(file *excelize.File) (*Source, error) {
	sheet := file.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := file.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("iterate sheet %s: %w", sheet, err)
	}

	if !rows.Next() {
		rows.Close()
		return nil, fmt.Errorf("sheet %s is empty", sheet)
	}
	header, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("read header row: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"problem", "solution"} {
		if _, ok := columns[required]; !ok {
			rows.Close()
			return nil, fmt.Errorf("sheet %s is missing column %q", sheet, required)
		}
	}

	return &Source{file: file, rows: rows, columns: columns, row: 1}, nil
}

func (s *Source) Next() (domain.ProblemRecord, error) {
	for s.rows.Next() {
		s.row++
		cells, err := s.rows.Columns()
		if err != nil {
			return domain.ProblemRecord{}, fmt.Errorf("read row %d: %w", s.row, err)
		}

		record := domain.ProblemRecord{
			Problem:  s.cell(cells, "problem"),
			Solution: s.cell(cells, "solution"),
			Source:   s.cell(cells, "source"),
		}
		if record.Problem == "" || record.Solution == "" {
			continue
		}
		if record.Source == "" {
			record.Source = "unknown"
		}
		return record, nil
	}

	if err := s.rows.Error(); err != nil {
		return domain.ProblemRecord{}, fmt.Errorf("read sheet: %w", err)
	}
	return domain.ProblemRecord{}, io.EOF
}

func (s *Source) cell(cells []string, column string) string {
	idx, ok := s.columns[column]
	if !ok || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func (s *Source) Close() error {
	s.rows.Close()
	return s.file.Close()
}
