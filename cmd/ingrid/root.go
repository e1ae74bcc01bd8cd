package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "ingrid",
	Short:         "Crossword grid filler",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(fillCmd)
	rootCmd.AddCommand(serveCmd)
}
