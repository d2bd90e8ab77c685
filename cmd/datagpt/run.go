package main

import (
	"github.com/ajayshanks/datagpt/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [run-id]",
	Short: "Drive a run interactively",
	Long: `Starts a new run, or resumes the given one, and reads commands from stdin.

At the prompt, type the stage input (data_sources=a,b; use_case=Segmentation),
an empty line to continue, or one of: back, resubmit, reset, refresh, quit.
While a stage is waiting on its result, Ctrl+C returns to the prompt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		opts := cli.RunOptions{}
		if len(args) > 0 {
			opts.RunID = args[0]
		}
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Plain, _ = cmd.Flags().GetBool("plain")
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")
		return cli.RunSession(cmd.Context(), app, opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("json", false, "NDJSON input and output")
	runCmd.Flags().Bool("plain", false, "print markdown without terminal styling")
	runCmd.Flags().BoolP("quiet", "q", false, "no banner or system messages")
}
