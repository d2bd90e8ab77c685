package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/ajayshanks/datagpt/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes runs to AI agents as MCP tools (start_run, advance, get_run, back,
resubmit, reset) and the stage table as the datagpt://stages resource.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Engine, mcp.WithLogger(app.Logger))
		transport, _ := cmd.Flags().GetString("transport")
		switch transport {
		case "stdio":
			app.Logger.Info("starting mcp server (stdio)")
			return srv.ServeStdio()
		case "sse":
			port, _ := cmd.Flags().GetInt("port")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return srv.ServeSSE(ctx, fmt.Sprintf(":%d", port), fmt.Sprintf("http://localhost:%d", port))
		}
		return fmt.Errorf("unknown transport %q (want stdio or sse)", transport)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringP("transport", "t", "stdio", "transport: stdio or sse")
	mcpCmd.Flags().IntP("port", "p", 8081, "port for the sse transport")
}
