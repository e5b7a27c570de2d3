package document

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF reads a PDF page by page, recording per-page text and length.
// The full text is the pages joined with blank lines.
func extractPDF(path string) (*Extraction, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf %s: %v", ErrExtraction, path, err)
	}
	defer f.Close()

	var pages []Page
	var full strings.Builder

	total := reader.NumPage()
	for num := 1; num <= total; num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: read page %d of %s: %v", ErrExtraction, num, path, err)
		}
		pages = append(pages, Page{
			Number: num,
			Text:   text,
			Length: len(text),
		})
		full.WriteString(text)
		full.WriteString("\n\n")
	}

	return &Extraction{
		Text:       strings.TrimSpace(full.String()),
		FileType:   "pdf",
		Pages:      pages,
		TotalPages: len(pages),
	}, nil
}
