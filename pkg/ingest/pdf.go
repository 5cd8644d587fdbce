package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupportedFormat marks uploads that are not PDF files.
	ErrUnsupportedFormat = errors.New("unsupported file format, expected pdf")
	// ErrCorruptFile marks PDFs the parser cannot open.
	ErrCorruptFile = errors.New("could not read pdf file")
	// ErrNoText marks PDFs with no extractable text (scans without OCR).
	ErrNoText = errors.New("no extractable text in pdf")
)

// PDFContent is the extracted form of an uploaded PDF.
type PDFContent struct {
	Text      string
	PageCount int
}

// ExtractPDF pulls plain text out of a PDF held in memory. Pages the parser
// chokes on are skipped rather than failing the whole document.
func ExtractPDF(data []byte) (*PDFContent, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, ErrUnsupportedFormat
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}

	totalPages := reader.NumPage()
	var b strings.Builder
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = NormalizeText(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}
	if b.Len() == 0 {
		return nil, ErrNoText
	}
	return &PDFContent{Text: b.String(), PageCount: totalPages}, nil
}

// ExtractPDFReader is ExtractPDF for streaming uploads.
func ExtractPDFReader(r io.Reader, maxBytes int64) (*PDFContent, error) {
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("pdf exceeds %d byte limit", maxBytes)
	}
	return ExtractPDF(data)
}
