// Package mcpadapter exposes the retrieval core as an MCP stdio server, so
// agent frontends can call the hybrid query pipeline as a tool.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/finqlabs/finretriever/internal/core/ports"
)

const (
	serverName    = "finretriever"
	serverVersion = "1.0.0"
)

type Server struct {
	querySvc ports.QueryService
	repo     ports.DocumentRepository
}

func NewServer(querySvc ports.QueryService, repo ports.DocumentRepository) *Server {
	return &Server{
		querySvc: querySvc,
		repo:     repo,
	}
}

// MCPServer builds the tool surface. Kept separate from ServeStdio so tests
// can drive handlers without a transport.
func (s *Server) MCPServer() *server.MCPServer {
	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	mcpServer.AddTool(
		mcp.NewTool("query_filings",
			mcp.WithDescription("Answer a question about ingested financial filings using hybrid structured and semantic retrieval. Returns ranked results with source document and page attribution."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Natural-language question, e.g. 'What was Total Revenue in Q2 2024?'"),
			),
		),
		s.handleQuery,
	)

	mcpServer.AddTool(
		mcp.NewTool("get_document",
			mcp.WithDescription("Look up an ingested document's processing status and extraction statistics by its ID."),
			mcp.WithString("document_id",
				mcp.Required(),
				mcp.Description("Document ID returned at upload time."),
			),
		),
		s.handleGetDocument,
	)

	return mcpServer
}

func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.MCPServer())
}

func (s *Server) handleQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answer, err := s.querySvc.Answer(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	payload, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode answer: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get document: %v", err)), nil
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
