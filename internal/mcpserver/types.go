// Package mcpserver exposes the policy QA pipeline as MCP tools so
// editor and agent clients can search documents and evaluate claims.
package mcpserver

import (
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/generation"
	"github.com/auzzton/RAG-Pipeline-Gemini/internal/pipeline"
)

// SearchPolicyInput defines the input parameters for the search_policy tool.
type SearchPolicyInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=The semantic search query over indexed policy documents"`
	// MaxResults is the maximum number of chunks to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"minimum=1,maximum=20,default=5,description=Maximum number of chunks to return"`
}

// SearchPolicyOutput contains the search results.
type SearchPolicyOutput struct {
	// Results is the list of matching chunks with confidence scores.
	Results []pipeline.RetrievedChunk `json:"results"`
	// Message provides informational context when there are no hits.
	Message string `json:"message,omitempty"`
}

// AskPolicyInput defines the input parameters for the ask_policy tool.
type AskPolicyInput struct {
	// Query is the natural-language claim or question.
	Query string `json:"query" jsonschema:"required,description=The claim or question to evaluate against the indexed policy documents"`
}

// AskPolicyOutput contains the structured claim decision.
type AskPolicyOutput struct {
	Decision      string              `json:"decision"`
	Amount        *string             `json:"amount"`
	Justification string              `json:"justification"`
	Sources       []generation.Source `json:"sources"`
}

// CacheStatusInput takes no parameters.
type CacheStatusInput struct{}

// CacheEntry describes one cached document.
type CacheEntry struct {
	File      string `json:"file"`
	Chunks    int    `json:"chunks"`
	Hash      string `json:"hash"`
	CreatedAt string `json:"created_at"`
}

// CacheStatusOutput lists the cached documents.
type CacheStatusOutput struct {
	Entries []CacheEntry `json:"entries"`
	Count   int          `json:"count"`
}

// IndexStatusInput takes no parameters.
type IndexStatusInput struct{}

// IndexStatusOutput reports index size and provider availability.
type IndexStatusOutput struct {
	TotalChunks    int    `json:"total_chunks"`
	Backend        string `json:"backend"`
	ActiveProvider string `json:"active_provider"`
	GeminiModel    string `json:"gemini_model,omitempty"`
	OpenAIModel    string `json:"openai_model,omitempty"`
}
