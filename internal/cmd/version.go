package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bundlemux/bundlemux/internal/build"
)

func getCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show application version",
		Long:  "Show the application version and exit.",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("bundlemux v%s\n", build.Version)
		},
	}
}
