package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	kmcp "github.com/stackmint/keysmith/internal/mcp"
	"github.com/stackmint/keysmith/internal/service"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes key management
as tools for AI agents like Claude.

The server communicates over stdin/stdout using JSON-RPC, suitable for direct
integration with Claude Desktop or other MCP clients.`,
		Example: `  keysmith mcp`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP()
		},
	}

	return cmd
}

func runMCP() error {
	// MCP clients own stdout, so everything we log goes to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	keySvc := service.NewKeyService(st, logger)
	mcpSrv := kmcp.NewMCPServer(keySvc, logger)

	return mcpSrv.ServeStdio()
}
