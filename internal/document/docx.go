package document

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// documentXML mirrors the parts of word/document.xml we care about.
type documentXML struct {
	Body struct {
		Paragraphs []paragraphXML `xml:"p"`
	} `xml:"body"`
}

type paragraphXML struct {
	Props struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
	} `xml:"pPr"`
	Runs []runXML `xml:"r"`
}

type runXML struct {
	Text []struct {
		Content string `xml:",chardata"`
	} `xml:"t"`
}

// extractDOCX opens the file as a zip archive and pulls paragraph text
// and styles from word/document.xml. Empty paragraphs are skipped and
// do not consume paragraph numbers in the output.
func extractDOCX(path string) (*Extraction, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open docx %s: %v", ErrExtraction, path, err)
	}
	defer archive.Close()

	var content []byte
	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open document.xml in %s: %v", ErrExtraction, path, err)
		}
		content, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read document.xml in %s: %v", ErrExtraction, path, err)
		}
		break
	}
	if content == nil {
		return nil, fmt.Errorf("%w: %s has no word/document.xml", ErrExtraction, path)
	}

	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse document.xml in %s: %v", ErrExtraction, path, err)
	}

	var paragraphs []Paragraph
	var full strings.Builder

	for num, para := range doc.Body.Paragraphs {
		var text strings.Builder
		for _, run := range para.Runs {
			for _, t := range run.Text {
				text.WriteString(t.Content)
			}
		}
		trimmed := strings.TrimSpace(text.String())
		if trimmed == "" {
			continue
		}
		style := para.Props.Style.Val
		if style == "" {
			style = "Normal"
		}
		paragraphs = append(paragraphs, Paragraph{
			Number: num + 1,
			Text:   trimmed,
			Style:  style,
		})
		full.WriteString(trimmed)
		full.WriteString("\n\n")
	}

	return &Extraction{
		Text:            strings.TrimSpace(full.String()),
		FileType:        "docx",
		Paragraphs:      paragraphs,
		TotalParagraphs: len(paragraphs),
	}, nil
}
