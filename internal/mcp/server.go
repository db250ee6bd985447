// Package mcp exposes the key lifecycle over the Model Context Protocol, so
// agent tooling can validate, inspect, and revoke keys without going through
// the HTTP surface.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stackmint/keysmith/internal/service"
)

// MCPServer wraps the mcp-go server with keysmith tool registrations.
type MCPServer struct {
	keys   *service.KeyService
	logger *slog.Logger
	server *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with all keysmith tools. The
// returned server is ready to serve over stdio.
func NewMCPServer(keys *service.KeyService, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		keys:   keys,
		logger: logger,
	}

	mcpServer := server.NewMCPServer(
		"Keysmith API Keys",
		"0.1.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go server instance, useful for testing.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode, the integration path for
// MCP clients that launch the server as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}
}

func mutatingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{ReadOnlyHint: boolPtr(false)}
}

func boolPtr(b bool) *bool {
	return &b
}
