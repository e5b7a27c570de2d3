// Package chunker splits document text into overlapping windows
// suitable for embedding and retrieval. Splitting is recursive: it
// tries the profile's separators in priority order, re-splits pieces
// that are still too large with the next separator, then merges small
// pieces back together up to the chunk size, carrying an overlap from
// the previous chunk for context continuity.
package chunker

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Metadata describes where a chunk came from and how it was produced.
type Metadata struct {
	Source          string    `json:"source"`
	ChunkNumber     int       `json:"chunk_number"`
	ChunkType       string    `json:"chunk_type"`
	ChunkSize       int       `json:"chunk_size"`
	CreatedAt       time.Time `json:"created_at"`
	FileType        string    `json:"file_type,omitempty"`
	DocumentType    string    `json:"document_type,omitempty"`
	TotalPages      int       `json:"total_pages,omitempty"`
	TotalParagraphs int       `json:"total_paragraphs,omitempty"`
}

// Chunk is a bounded contiguous span of a document's text plus
// metadata. Immutable once created.
type Chunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// ChunkText splits text with the profile selected for docType and
// attaches source metadata. Structural fields (file type, page and
// paragraph totals) are filled in by the caller.
func ChunkText(text, source, docType string) []Chunk {
	profile := ProfileFor(docType)
	pieces, _ := profile.Split(text)

	now := time.Now()
	chunks := make([]Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, Chunk{
			Text: piece,
			Metadata: Metadata{
				Source:       source,
				ChunkNumber:  i + 1,
				ChunkType:    docType,
				ChunkSize:    len(piece),
				CreatedAt:    now,
				DocumentType: docType,
			},
		})
	}
	return chunks
}

// Split splits text into chunks of at most ChunkSize characters. The
// second return value holds, per chunk, the number of leading
// characters repeated from the previous chunk; stripping those
// prefixes and concatenating the remainders reconstructs text exactly.
// A run with no usable separator longer than ChunkSize is emitted
// whole — the one case a chunk may exceed ChunkSize.
func (p Profile) Split(text string) ([]string, []int) {
	if text == "" {
		return nil, nil
	}
	return p.assemble(p.pieces(text, p.Separators))
}

// pieces recursively splits text so that every piece fits ChunkSize
// (except atomic runs) and the concatenation of pieces equals text.
// Separators stay attached to the piece they terminate.
func (p Profile) pieces(text string, separators []string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= p.ChunkSize {
		return []string{text}
	}

	sep := ""
	var remaining []string
	found := false
	for i, s := range separators {
		if s == "" {
			found = true
			break
		}
		if strings.Contains(text, s) {
			sep = s
			remaining = separators[i+1:]
			found = true
			break
		}
	}
	if !found {
		// No separator can split this run; emit it whole.
		return []string{text}
	}
	if sep == "" {
		return hardCut(text, p.ChunkSize)
	}

	var out []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if len(part) <= p.ChunkSize {
			out = append(out, part)
		} else {
			out = append(out, p.pieces(part, remaining)...)
		}
	}
	return out
}

// assemble merges pieces into chunks up to ChunkSize, prefixing each
// chunk after the first with up to ChunkOverlap trailing characters of
// its predecessor. Returns the chunks and per-chunk overlap lengths.
func (p Profile) assemble(pieces []string) ([]string, []int) {
	var chunks []string
	var overlaps []int

	i := 0
	for i < len(pieces) {
		overlap := ""
		if len(chunks) > 0 && p.ChunkOverlap > 0 {
			overlap = runeSuffix(chunks[len(chunks)-1], p.ChunkOverlap)
		}
		budget := p.ChunkSize - len(overlap)
		if budget < 1 {
			budget = 1
		}

		j := i
		size := 0
		for j < len(pieces) && size+len(pieces[j]) <= budget {
			size += len(pieces[j])
			j++
		}
		if j == i {
			// The next piece does not fit alongside the overlap.
			if len(pieces[i]) > p.ChunkSize {
				// Atomic oversized run: emitted whole, no overlap.
				overlap = ""
			} else {
				overlap = runeSuffix(overlap, p.ChunkSize-len(pieces[i]))
			}
			j = i + 1
		}

		var b strings.Builder
		b.WriteString(overlap)
		for k := i; k < j; k++ {
			b.WriteString(pieces[k])
		}
		chunks = append(chunks, b.String())
		overlaps = append(overlaps, len(overlap))
		i = j
	}
	return chunks, overlaps
}

// runeSuffix returns the longest suffix of s that is at most n bytes
// and starts on a rune boundary.
func runeSuffix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

// hardCut splits text into at-most-n-byte pieces on rune boundaries.
func hardCut(text string, n int) []string {
	if n < 1 {
		n = 1
	}
	var out []string
	for len(text) > n {
		cut := n
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			cut = n // pathological input, cut anyway
		}
		out = append(out, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}
