package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/graft"
	"github.com/aretw0/graft/internal/logging"
	mcpadapter "github.com/aretw0/graft/pkg/adapters/mcp"
	"github.com/aretw0/graft/pkg/domain"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the demo tool registry as an MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		port, _ := cmd.Flags().GetInt("port")
		sse, _ := cmd.Flags().GetBool("sse")
		userID, _ := cmd.Flags().GetString("user")

		logger := logging.New(logging.ParseLevel(level))

		server := mcpadapter.NewServer(NewAgentRegistry(), graft.Version,
			mcpadapter.WithLogger(logger),
			mcpadapter.WithRunConfig(domain.RunConfig{"user_id": userID}),
		)

		if sse {
			return server.ServeSSE(cmd.Context(), port)
		}
		return server.ServeStdio()
	},
}

func init() {
	mcpCmd.Flags().Bool("sse", false, "Serve over SSE instead of stdio")
	mcpCmd.Flags().Int("port", 8765, "SSE port")
	mcpCmd.Flags().String("user", "u-42", "User ID placed in the tool run config")
	rootCmd.AddCommand(mcpCmd)
}
