package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	sumcp "github.com/ppiankov/safeupdate/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long: "Runs safeupdate as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes guarded tools: safeupdate_update, safeupdate_check, safeupdate_find, safeupdate_policy.",
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	path, err := resolveDBPath()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sumcp.Version = version
	srv, err := sumcp.New(ctx, sumcp.Config{
		PolicyPath:   policyPath,
		DBPath:       path,
		AuditLogPath: auditPath,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.Close()

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
	return nil
}
