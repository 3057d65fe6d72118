package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scip-clang-go/scip-clang-go/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version, commit, and build date",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
