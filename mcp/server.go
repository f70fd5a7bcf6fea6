package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/lukman83/affiliate-gateway/internal/platform"
)

const (
	serverName    = "affiliate-gateway"
	serverVersion = "1.0.0"
)

// Server exposes the catalog and interaction operations as MCP tools.
type Server struct {
	catalog platform.Catalog
	store   platform.Interactions
	logger  *zap.Logger
	mcp     *server.MCPServer
}

// NewServer builds the MCP server with all tools registered.
func NewServer(catalog platform.Catalog, store platform.Interactions, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		catalog: catalog,
		store:   store,
		logger:  logger.Named("mcp"),
		mcp: server.NewMCPServer(
			serverName,
			serverVersion,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

// Serve runs the MCP server on stdio until stdin closes or ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("MCP stdio server starting")
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}
