package main

import (
	"os"
	"os/signal"

	"github.com/ajayshanks/datagpt/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve runs over HTTP",
	Long: `Starts the JSON API (runs, navigation, SSE diffs, /metrics) and a sweeper
that keeps polling runs with a stage in flight.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []cli.BuildOption
		if cfg.HTTP.Metrics {
			opts = append(opts, cli.WithMetrics())
		}
		app, err := buildApp(cmd, opts...)
		if err != nil {
			return err
		}
		defer app.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.HTTP.Addr
		}
		sweep, _ := cmd.Flags().GetDuration("sweep")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return cli.Serve(ctx, app, cli.ServeOptions{Addr: addr, SweepInterval: sweep})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default from http.addr)")
	serveCmd.Flags().Duration("sweep", 0, "refresh in-flight runs on this interval (0 disables)")
}
