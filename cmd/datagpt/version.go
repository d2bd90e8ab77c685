package main

import (
	"fmt"
	"strings"

	"github.com/ajayshanks/datagpt"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "datagpt version %s\n", strings.TrimSpace(datagpt.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
