package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/scenestack"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of scenestack",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "scenestack version %s\n", strings.TrimSpace(scenestack.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
