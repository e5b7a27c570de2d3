package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/auzzton/RAG-Pipeline-Gemini/internal/pipeline"
)

// makeSearchHandler creates the search_policy tool handler.
func makeSearchHandler(p *pipeline.Pipeline) func(
	context.Context, *mcp.CallToolRequest, SearchPolicyInput,
) (*mcp.CallToolResult, SearchPolicyOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchPolicyInput) (
		*mcp.CallToolResult, SearchPolicyOutput, error,
	) {
		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = 5
		}

		results, err := p.Retrieve(ctx, input.Query, maxResults)
		if err != nil {
			return nil, SearchPolicyOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(results) == 0 {
			return nil, SearchPolicyOutput{
				Results: []pipeline.RetrievedChunk{},
				Message: "No matching chunks found. Ingest documents first or try broader search terms.",
			}, nil
		}

		return nil, SearchPolicyOutput{Results: results}, nil
	}
}

// makeAskHandler creates the ask_policy tool handler.
func makeAskHandler(p *pipeline.Pipeline) func(
	context.Context, *mcp.CallToolRequest, AskPolicyInput,
) (*mcp.CallToolResult, AskPolicyOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskPolicyInput) (
		*mcp.CallToolResult, AskPolicyOutput, error,
	) {
		response, err := p.Answer(ctx, input.Query)
		if err != nil {
			return nil, AskPolicyOutput{}, fmt.Errorf("answer failed: %w", err)
		}

		return nil, AskPolicyOutput{
			Decision:      response.Decision,
			Amount:        response.Amount,
			Justification: response.Justification,
			Sources:       response.Sources,
		}, nil
	}
}

// makeCacheStatusHandler creates the cache_status tool handler.
func makeCacheStatusHandler(p *pipeline.Pipeline) func(
	context.Context, *mcp.CallToolRequest, CacheStatusInput,
) (*mcp.CallToolResult, CacheStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input CacheStatusInput) (
		*mcp.CallToolResult, CacheStatusOutput, error,
	) {
		summaries := p.CacheEntries()

		entries := make([]CacheEntry, 0, len(summaries))
		for _, s := range summaries {
			entries = append(entries, CacheEntry{
				File:      s.Filename,
				Chunks:    s.ChunkCount,
				Hash:      s.FileHash,
				CreatedAt: s.CreatedAt.Format(time.RFC3339),
			})
		}

		return nil, CacheStatusOutput{
			Entries: entries,
			Count:   len(entries),
		}, nil
	}
}

// makeIndexStatusHandler creates the index_status tool handler.
func makeIndexStatusHandler(p *pipeline.Pipeline, backend string) func(
	context.Context, *mcp.CallToolRequest, IndexStatusInput,
) (*mcp.CallToolResult, IndexStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexStatusInput) (
		*mcp.CallToolResult, IndexStatusOutput, error,
	) {
		status := p.Status()

		return nil, IndexStatusOutput{
			TotalChunks:    p.IndexCount(),
			Backend:        backend,
			ActiveProvider: status.ActiveProvider,
			GeminiModel:    status.GeminiModel,
			OpenAIModel:    status.OpenAIModel,
		}, nil
	}
}
