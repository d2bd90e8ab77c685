package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/ajayshanks/datagpt/internal/cli"
	"github.com/ajayshanks/datagpt/internal/presentation/graph"
	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/spf13/cobra"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "Print the stage table",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := cli.BuildTable(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if mermaid, _ := cmd.Flags().GetBool("mermaid"); mermaid {
			view := domain.View{StageCount: table.Len(), CurrentStage: 1}
			for i, d := range table.All() {
				view.Stages = append(view.Stages, domain.StageView{Index: i + 1, Name: d.Name, Title: d.Title, Mode: d.Mode})
			}
			fmt.Fprint(out, graph.GenerateMermaid(view))
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tNAME\tMODE\tRESULT\tENDPOINT\tWAIT")
		for i, d := range table.All() {
			wait := "-"
			if d.Mode == domain.ModeAsync {
				wait = fmt.Sprintf("%s every %s", d.MaxWait, d.PollInterval)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, d.Name, d.Mode, d.Schema.Kind, d.Endpoint, wait)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(stagesCmd)
	stagesCmd.Flags().Bool("mermaid", false, "print a Mermaid flowchart instead of a table")
}
