package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/csdlc/internal/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp [ROOT]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the validator as MCP tools (validate_file, validate_content,
validate_directory, dependency_graph) for AI agents. Paths given to the tools
are resolved below ROOT (default: the current directory).

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}

func runMCP(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")

	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid root: %w", err)
	}

	c, logger, err := newCompiler(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	srv := mcp.NewServer(c.Validator, root, mcp.WithLogger(logger.With("component", "mcp")))

	switch transport {
	case "stdio":
		// Stdout carries JSON-RPC.
		log.SetOutput(os.Stderr)
		logger.Info("starting csdlc MCP server (stdio)", "root", root)
		return srv.ServeStdio()
	case "sse":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := srv.ServeSSE(ctx, port); err != nil {
			return err
		}
		logger.Info("MCP server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport %q: supported are stdio and sse", transport)
	}
}
