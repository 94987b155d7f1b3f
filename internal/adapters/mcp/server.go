package mcpadapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/ports"
)

const (
	serverName        = "civil-code-rag"
	serverVersion     = "1.0.0"
	retrieveToolName  = "retrieve_civil_code"
	retrieveQueryArg  = "query"
	retrieveToolUsage = "Search the Civil Code of Georgia. Returns up to five article passages ranked by relevance to the query."
)

// Server exposes hybrid retrieval as an MCP tool for agent hosts.
type Server struct {
	retriever ports.PassageRetriever
	logger    *slog.Logger
	mcp       *server.MCPServer
}

func NewServer(retriever ports.PassageRetriever, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		retriever: retriever,
		logger:    logger,
		mcp: server.NewMCPServer(serverName, serverVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	s.mcp.AddTool(mcp.NewTool(retrieveToolName,
		mcp.WithDescription(retrieveToolUsage),
		mcp.WithString(retrieveQueryArg,
			mcp.Required(),
			mcp.Description("Question or keywords in Georgian."),
		),
	), s.handleRetrieve)
	return s
}

// ServeStdio blocks until ctx is done or stdin closes.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

type retrieveToolResult struct {
	Passages []domain.RankedPassage `json:"passages"`
}

func (s *Server) handleRetrieve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString(retrieveQueryArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query must not be empty"), nil
	}

	passages, err := s.retriever.RetrieveRanked(ctx, query)
	if err != nil {
		s.logger.Error("mcp_retrieve_failed", "error", err)
		return mcp.NewToolResultError("retrieval failed: " + err.Error()), nil
	}
	if passages == nil {
		passages = []domain.RankedPassage{}
	}

	payload, err := json.Marshal(retrieveToolResult{Passages: passages})
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(payload)), nil
}
