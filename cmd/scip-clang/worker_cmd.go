package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scip-clang-go/scip-clang-go/internal/cliopts"
	"github.com/scip-clang-go/scip-clang-go/internal/frontend"
	"github.com/scip-clang-go/scip-clang-go/internal/history"
	"github.com/scip-clang-go/scip-clang-go/internal/logging"
	"github.com/scip-clang-go/scip-clang-go/internal/paths"
	"github.com/scip-clang-go/scip-clang-go/internal/worker"
)

var workerFlags *cliopts.WorkerFlags

// workerCmd is hidden: it is scip-clang's own re-exec target (cmd/scip-clang
// spawns "scip-clang __worker ..." per slot), never a user-facing entry
// point (spec §6's worker executable).
var workerCmd = &cobra.Command{
	Use:    "__worker",
	Short:  "Run one scip-clang worker process (internal)",
	Hidden: true,
	RunE:   runWorker,
}

func init() {
	workerFlags = cliopts.BindWorkerFlags(workerCmd)
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	mode := worker.Mode(workerFlags.WorkerMode)
	level, ok := logging.ParseLevel(workerFlags.LogLevel)
	if !ok {
		return fmt.Errorf("invalid --log-level %q", workerFlags.LogLevel)
	}
	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: level, Output: os.Stderr})

	var root paths.RootPath
	if workerFlags.ProjectRootPath != "" {
		r, err := paths.NewRootPath(workerFlags.ProjectRootPath)
		if err != nil {
			return fmt.Errorf("--project-root-path: %w", err)
		}
		root = r
	}

	fault := worker.FaultNone
	if workerFlags.WorkerFault != "" {
		f, ok := worker.ParseFault(workerFlags.WorkerFault)
		if !ok {
			return fmt.Errorf("invalid --worker-fault %q", workerFlags.WorkerFault)
		}
		fault = f
	}

	rec, err := history.NewRecorder(workerFlags.PreprocessorRecordHistoryFilter, workerFlags.PreprocessorHistoryLogPath)
	if err != nil {
		return err
	}

	w := worker.New(worker.Options{
		ProjectRoot:             root,
		Mode:                    mode,
		DriverID:                workerFlags.DriverID,
		WorkerID:                workerFlags.WorkerID,
		SocketBaseDir:           workerFlags.SocketBaseDir,
		CompdbPath:              workerFlags.CompdbPath,
		IndexOutputPath:         workerFlags.IndexOutputPath,
		Deterministic:           workerFlags.Deterministic,
		TemporaryOutputDir:      workerFlags.TemporaryOutputDir,
		Fault:                   fault,
		Frontend:                frontend.NewTreeSitterFrontend(),
		Logger:                  logger,
		ShowCompilerDiagnostics: workerFlags.ShowCompilerDiagnostics,
		History:                 rec,
	})
	defer w.Close()
	return w.Run(cmd.Context())
}
