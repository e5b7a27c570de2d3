package document

import "strings"

// Type tags a document with the chunking category it belongs to.
type Type string

const (
	TypeLegal     Type = "legal"
	TypeMedical   Type = "medical"
	TypeTechnical Type = "technical"
	TypeFinancial Type = "financial"
	TypeDefault   Type = "default"
)

// Keyword sets checked in priority order. The order is a policy
// decision: a document mentioning both "policy" and "medical" is
// legal, regardless of how often each keyword appears.
var typeKeywords = []struct {
	docType  Type
	keywords []string
}{
	{TypeLegal, []string{"policy", "terms", "conditions", "agreement", "contract", "clause", "liability"}},
	{TypeMedical, []string{"medical", "health", "treatment", "diagnosis", "surgery", "patient", "clinical"}},
	{TypeTechnical, []string{"technical", "specification", "manual", "guide", "procedure", "protocol"}},
	{TypeFinancial, []string{"financial", "cost", "price", "payment", "claim", "coverage", "premium"}},
}

// DetectType classifies a document by case-insensitive keyword
// membership in its text or filename. The first matching category
// wins; documents matching nothing are TypeDefault. Always returns a
// value for the same input.
func DetectType(text, filename string) Type {
	textLower := strings.ToLower(text)
	nameLower := strings.ToLower(filename)

	for _, set := range typeKeywords {
		for _, kw := range set.keywords {
			if strings.Contains(textLower, kw) || strings.Contains(nameLower, kw) {
				return set.docType
			}
		}
	}
	return TypeDefault
}
