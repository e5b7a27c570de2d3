package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/auzzton/RAG-Pipeline-Gemini/internal/pipeline"
)

// Server wraps the MCP server with its pipeline dependency.
type Server struct {
	server   *mcp.Server
	pipeline *pipeline.Pipeline
}

// Config holds server dependencies.
type Config struct {
	Pipeline *pipeline.Pipeline
	// Backend names the vector index backend ("flat" or "qdrant"),
	// reported by index_status.
	Backend string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "policyrag-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_policy",
		Description: "Search indexed policy documents semantically. Returns matching text chunks with source filenames and confidence scores.",
	}, makeSearchHandler(cfg.Pipeline))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_policy",
		Description: "Evaluate an insurance claim or question against the indexed policy documents. Returns a structured decision with justification and source clauses.",
	}, makeAskHandler(cfg.Pipeline))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cache_status",
		Description: "List cached documents with chunk counts and content hashes.",
	}, makeCacheStatusHandler(cfg.Pipeline))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_status",
		Description: "Get the current status of the policy index including chunk count, backend and active LLM provider.",
	}, makeIndexStatusHandler(cfg.Pipeline, cfg.Backend))

	return &Server{
		server:   server,
		pipeline: cfg.Pipeline,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
