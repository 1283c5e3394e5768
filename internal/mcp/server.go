package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/xapikatchu/xapikatchu/internal/ingester"
	"github.com/xapikatchu/xapikatchu/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "xapikatchu-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	ingester *ingester.Ingester
}

// NewServer creates a new MCP server over the given storage and ingester
func NewServer(store storage.Storage, ing *ingester.Ingester) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		storage:  store,
		ingester: ing,
	}

	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestStatementTool(), s.handleIngestStatement)
	s.mcp.AddTool(getReportTool(), s.handleGetReport)
	s.mcp.AddTool(getContentTypesTool(), s.handleGetContentTypes)
}
