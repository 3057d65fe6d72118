package main

import (
	"github.com/spf13/cobra"

	"github.com/scip-clang-go/scip-clang-go/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "scip-clang",
	Short: "A cross-translation-unit SCIP indexer for C and C++",
	Long: `scip-clang indexes a C/C++ project's compilation database into a single
SCIP index: it parses every translation unit twice (once to observe
preprocessor effects, once to emit symbols), elects one owning task per
header so each symbol is recorded exactly once, and merges the result.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("scip-clang version {{.Version}}\n")
}
