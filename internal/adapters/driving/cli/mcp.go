package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/listingsync/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can read
synced reviews, run syncs and publish replies.

By default the server communicates over stdio. Use --port to serve
streamable HTTP instead.

Examples:
  listingsync mcp
  listingsync mcp --port 8080`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	if listingService == nil {
		return errNotConfigured
	}
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Listing: listingService,
		Sync:    syncOrchestrator,
		Reviews: reviewSyncer,
	})
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf("127.0.0.1:%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://%s/mcp\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}
	return server.Run(cmd.Context())
}
