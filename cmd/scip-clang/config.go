package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scip-clang-go/scip-clang-go/internal/cliopts"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or seed a scip-clang.toml project config",
}

var configInitPath string

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a scip-clang.toml populated with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cliopts.WriteDefaultConfig(configInitPath); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", configInitPath)
		return nil
	},
}

var configShowPath string

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config after loading a scip-clang.toml",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cliopts.LoadFileConfig(configShowPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "jobs = %d\ndeterministic = %t\nlog_level = %q\ntemporary_output_dir = %q\nshow_compiler_diagnostics = %t\n",
			cfg.Jobs, cfg.Deterministic, cfg.LogLevel, cfg.TemporaryOutputDir, cfg.ShowCompilerDiagnostics)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "config", "scip-clang.toml", "Path to write")
	configShowCmd.Flags().StringVar(&configShowPath, "config", "scip-clang.toml", "Path to read")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
