// Package jsonl reads problem datasets stored one JSON object per line.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mathrag-io/mathrag/internal/core/domain"
	"github.com/mathrag-io/mathrag/internal/core/ports"
)

// maxLineBytes bounds a single record; solutions with long derivations
// routinely exceed bufio's default 64KiB token size.
const maxLineBytes = 4 * 1024 * 1024

type Source struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

var _ ports.DatasetSource = (*Source)(nil)

func Open(path string) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	source := New(file)
	source.closer = file
	return source, nil
}

func New(r io.Reader) *Source {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Source{scanner: scanner}
}

// Next returns the next usable record, skipping blank lines and
// records missing a problem or solution. io.EOF signals a clean end.
func (s *Source) Next() (domain.ProblemRecord, error) {
	for s.scanner.Scan() {
		s.line++
		text := strings.TrimSpace(s.scanner.Text())
		if text == "" {
			continue
		}

		var record domain.ProblemRecord
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			return domain.ProblemRecord{}, fmt.Errorf("parse dataset line %d: %w", s.line, err)
		}
		record.Problem = strings.TrimSpace(record.Problem)
		record.Solution = strings.TrimSpace(record.Solution)
		if record.Problem == "" || record.Solution == "" {
			continue
		}
		if strings.TrimSpace(record.Source) == "" {
			record.Source = "unknown"
		}
		return record, nil
	}

	if err := s.scanner.Err(); err != nil {
		return domain.ProblemRecord{}, fmt.Errorf("read dataset: %w", err)
	}
	return domain.ProblemRecord{}, io.EOF
}

func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
