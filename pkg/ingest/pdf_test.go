package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestExtractPDFRejectsNonPDF(t *testing.T) {
	_, err := ExtractPDF([]byte("this is plain text, not a pdf"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractPDFRejectsCorruptFile(t *testing.T) {
	_, err := ExtractPDF([]byte("%PDF-1.7\ngarbage that is not a real pdf body"))
	if !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile, got %v", err)
	}
}

func TestExtractPDFReaderEnforcesLimit(t *testing.T) {
	payload := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("a"), 100)...)
	_, err := ExtractPDFReader(bytes.NewReader(payload), 10)
	if err == nil || !strings.Contains(err.Error(), "limit") {
		t.Fatalf("expected size limit error, got %v", err)
	}
}

func TestNormalizeText(t *testing.T) {
	cases := map[string]string{
		"  hello   world \n\t again ": "hello world again",
		"":                           "",
		"\x00broken\x00":             "broken",
	}
	for in, want := range cases {
		if got := NormalizeText(in); got != want {
			t.Errorf("NormalizeText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("short", 100); got != "short" {
		t.Errorf("unexpected truncation of short text: %q", got)
	}
	got := TruncateRunes("one two three four five", 12)
	if len(got) > 12 || !strings.HasPrefix("one two three four five", got) {
		t.Errorf("unexpected truncation result %q", got)
	}
}
