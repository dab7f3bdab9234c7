package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve earnings-rag to MCP clients",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes three tools (ask, route and retrieve) and the current
settings and evaluation experiments as resources.

It speaks JSON-RPC over stdio unless --port is given, in which case it
serves the streamable HTTP transport on that port until interrupted.

  earnings-rag mcp serve             # stdio, for desktop assistants
  earnings-rag mcp serve --port 8080 # HTTP, for an inspector or remote client

A desktop assistant entry looks like:

  "earnings-rag": {"command": "/path/to/earnings-rag", "args": ["mcp", "serve"]}`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "serve HTTP on this port instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, _ := cmd.Flags().GetInt("port")

	server, err := mcp.NewServer(queryService,
		mcp.WithSettings(settingsService),
		mcp.WithExperiments(experiments),
	)
	if err != nil {
		return fmt.Errorf("starting MCP server: %w", err)
	}

	if port <= 0 {
		return server.Run(cmd.Context())
	}
	addr := fmt.Sprintf(":%d", port)
	fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
	return server.RunHTTP(cmd.Context(), addr)
}
