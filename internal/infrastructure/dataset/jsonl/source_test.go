package jsonl

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestNextReadsRecordsInOrder(t *testing.T) {
	input := `{"problem":"What is 2+2?","solution":"4","source":"gsm8k"}
{"problem":"Solve x+1=3","solution":"x = 2"}
`
	source := New(strings.NewReader(input))
	defer source.Close()

	first, err := source.Next()
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if first.Problem != "What is 2+2?" || first.Source != "gsm8k" {
		t.Fatalf("unexpected first record %+v", first)
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

func TestNextSkipsBlankAndIncompleteRecords(t *testing.T) {
	input := `
{"problem":"","solution":"orphan"}

{"problem":"real","solution":"answer","source":"amc"}
{"problem":"no solution","solution":"   "}
`
	source := New(strings.NewReader(input))
	defer source.Close()

	record, err := source.Next()
	if err != nil {
		t.Fatalf("expected usable record, got %v", err)
	}
	if record.Problem != "real" {
		t.Fatalf("unexpected record %+v", record)
	}

	if _, err := source.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after skipping, got %v", err)
	}
}

func TestNextReportsMalformedLineNumber(t *testing.T) {
	input := `{"problem":"ok","solution":"fine"}
not json at all
`
	source := New(strings.NewReader(input))
	defer source.Close()

	if _, err := source.Next(); err != nil {
		t.Fatalf("first record: %v", err)
	}
	_, err := source.Next()
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line number in error, got %v", err)
	}
}
