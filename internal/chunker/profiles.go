package chunker

// Profile controls how text is split: the target window size, the
// overlap carried between consecutive chunks, and the separators
// tried in priority order. An empty-string separator means hard cuts.
type Profile struct {
	Name         string
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// Built-in profiles per document type. Size/overlap trade granularity
// for context: medical documents get fine-grained clause windows,
// technical ones larger contextual windows.
var profiles = map[string]Profile{
	"default": {
		Name:         "default",
		ChunkSize:    1000,
		ChunkOverlap: 200,
		Separators:   []string{"\n\n", "\n", " ", ""},
	},
	"legal": {
		Name:         "legal",
		ChunkSize:    800,
		ChunkOverlap: 150,
		Separators:   []string{"\n\n", "\n", ". ", " ", ""},
	},
	"medical": {
		Name:         "medical",
		ChunkSize:    600,
		ChunkOverlap: 100,
		Separators:   []string{"\n\n", "\n", ". ", " ", ""},
	},
	"technical": {
		Name:         "technical",
		ChunkSize:    1200,
		ChunkOverlap: 250,
		Separators:   []string{"\n\n", "\n", ". ", " ", ""},
	},
	"financial": {
		Name:         "financial",
		ChunkSize:    900,
		ChunkOverlap: 180,
		Separators:   []string{"\n\n", "\n", ". ", " ", ""},
	},
}

// ProfileFor returns the chunking profile for a document type,
// falling back to the default profile for unknown types.
func ProfileFor(docType string) Profile {
	if p, ok := profiles[docType]; ok {
		return p
	}
	return profiles["default"]
}
