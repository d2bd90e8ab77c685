package main

import (
	"encoding/json"
	"fmt"

	"github.com/ajayshanks/datagpt/internal/presentation/graph"
	"github.com/ajayshanks/datagpt/internal/presentation/report"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"runs"},
	Short:   "Manage stored runs",
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ids, err := app.Engine.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No stored runs.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		format, _ := cmd.Flags().GetString("format")
		if format == "context" {
			pc, err := app.Engine.Context(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(pc, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		v, err := app.Engine.View(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		switch format {
		case "markdown":
			fmt.Fprint(out, report.Markdown(v))
		case "mermaid":
			fmt.Fprint(out, graph.GenerateMermaid(v))
		default:
			data, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		}
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <run-id>...",
	Short: "Remove one or more runs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		failed := 0
		for _, id := range args {
			if err := app.Engine.Delete(cmd.Context(), id); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", id, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed run '%s'\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d runs not removed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd, sessionShowCmd, sessionRmCmd)
	sessionShowCmd.Flags().StringP("format", "f", "json", "json, context, markdown or mermaid")
}
