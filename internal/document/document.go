// Package document reads policy documents (PDF, DOCX) and extracts
// their full text together with structural units used downstream for
// chunk metadata.
package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for file extensions other than .pdf and .docx.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrExtraction wraps parse failures from the underlying readers.
	ErrExtraction = errors.New("document extraction failed")
)

// Page is a single page of a PDF document.
type Page struct {
	Number int    `json:"page_number"`
	Text   string `json:"text"`
	Length int    `json:"length"`
}

// Paragraph is a single non-empty paragraph of a DOCX document.
type Paragraph struct {
	Number int    `json:"paragraph_number"`
	Text   string `json:"text"`
	Style  string `json:"style"`
}

// Extraction holds the full text of a document plus its structural units.
// Pages is populated for PDFs, Paragraphs for DOCX files.
type Extraction struct {
	Text            string
	FileType        string // "pdf" or "docx"
	Pages           []Page
	Paragraphs      []Paragraph
	TotalPages      int
	TotalParagraphs int
}

// Extract reads the file at path and returns its text with structure.
// The format is chosen by file extension; anything other than .pdf or
// .docx fails with ErrUnsupportedFormat. Parse failures are wrapped in
// ErrExtraction.
func Extract(path string) (*Extraction, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".docx":
		return extractDOCX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}
