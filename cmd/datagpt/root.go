package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ajayshanks/datagpt/internal/cli"
	"github.com/ajayshanks/datagpt/internal/config"
	"github.com/spf13/cobra"
)

var (
	v   = config.New()
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "datagpt",
	Short: "datagpt runs staged data-to-insights pipelines",
	Long: `datagpt walks a request through four stages: submit the selection, profile
the sources, generate queries and generate insights. Slow stages are polled
through a result store, and any stage that fails is replaced by a placeholder
so the run can always move on.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		var err error
		cfg, err = config.Load(v, path)
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (yaml, json or toml)")
	if err := config.BindFlags(v, rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
}

// buildApp wires the engine for commands that need one.
func buildApp(cmd *cobra.Command, opts ...cli.BuildOption) (*cli.App, error) {
	return cli.Build(cmd.Context(), cfg, opts...)
}
