// Command scip-clang is the driver/worker binary: its "index" subcommand
// runs the driver (spec §4.4); the hidden "__worker" subcommand runs one
// worker process (spec §4.2). Grounded on cmd/ckb/main.go's
// logger-then-rootCmd.Execute shape, trimmed of CKB's MCP-update-check
// concern (there is no hosted service for this indexer to poll).
package main

import (
	"os"

	"github.com/scip-clang-go/scip-clang-go/internal/logging"
)

func main() {
	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.InfoLevel})
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}
