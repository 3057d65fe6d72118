package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/scip-clang-go/scip-clang-go/internal/cliopts"
	"github.com/scip-clang-go/scip-clang-go/internal/driver"
	"github.com/scip-clang-go/scip-clang-go/internal/logging"
	"github.com/scip-clang-go/scip-clang-go/internal/paths"
)

var indexFlags *cliopts.IndexFlags

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build a SCIP index from a compilation database",
	Long: `index loads --compdb-path, spawns --jobs worker processes, runs the
two-phase dispatch/collection protocol against them, and writes the merged
index to --index-output-path.`,
	RunE: runIndex,
}

func init() {
	indexFlags = cliopts.BindIndexFlags(indexCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	file, err := cliopts.LoadFileConfig(indexFlags.ConfigPath)
	if err != nil {
		return err
	}
	indexFlags.ApplyFileConfig(cmd, file)

	if indexFlags.CompdbPath == "" {
		return fmt.Errorf("--compdb-path is required")
	}
	level, ok := logging.ParseLevel(indexFlags.LogLevel)
	if !ok {
		return fmt.Errorf("invalid --log-level %q", indexFlags.LogLevel)
	}
	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: level})

	rootDir := indexFlags.ProjectRootPath
	if rootDir == "" {
		rootDir = filepath.Dir(indexFlags.CompdbPath)
	}
	root, err := paths.NewRootPath(rootDir)
	if err != nil {
		return fmt.Errorf("--project-root-path: %w", err)
	}

	tempDir := indexFlags.TemporaryOutputDir
	if tempDir == "" {
		dir, err := os.MkdirTemp("", "scip-clang-shards-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		tempDir = dir
	}

	socketDir, err := os.MkdirTemp("", "scip-clang-ipc-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(socketDir)

	driverID := uuid.New().String()
	opts := driver.Options{
		ProjectRoot:     root,
		CompdbPath:      indexFlags.CompdbPath,
		IndexOutputPath: indexFlags.IndexOutputPath,
		NumWorkers:      indexFlags.Jobs,
		Deterministic:   indexFlags.Deterministic,
		DriverID:        driverID,
		SocketBaseDir:   socketDir,
		Logger:          logger,
		Spawn: func(ctx context.Context, workerID uint32) (*exec.Cmd, error) {
			return workerSpawnCmd(workerID, driverID, socketDir, tempDir, rootDir, indexFlags), nil
		},
	}
	d := driver.New(opts)

	summary, err := d.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("tasks: %d succeeded, %d failed, %d timed out (of %d)\n",
		summary.TasksSucceeded, summary.TasksFailed, summary.TasksTimedOut, summary.TasksTotal)
	if summary.TasksFailed > 0 || summary.TasksTimedOut > 0 {
		os.Exit(1)
	}
	return nil
}

func workerSpawnCmd(workerID uint32, driverID, socketDir, tempDir, rootDir string, f *cliopts.IndexFlags) *exec.Cmd {
	self, err := os.Executable()
	if err != nil {
		self = os.Args[0]
	}
	args := []string{
		"__worker",
		"--worker-mode", "ipc",
		"--driver-id", driverID,
		"--worker-id", fmt.Sprint(workerID),
		"--project-root-path", rootDir,
		"--socket-base-dir", socketDir,
		"--temporary-output-dir", tempDir,
		"--log-level", f.LogLevel,
	}
	if f.Deterministic {
		args = append(args, "--deterministic")
	}
	if f.PreprocessorRecordHistoryFilter != "" {
		args = append(args, "--preprocessor-record-history-filter", f.PreprocessorRecordHistoryFilter)
	}
	if f.PreprocessorHistoryLogPath != "" {
		args = append(args, "--preprocessor-history-log-path", f.PreprocessorHistoryLogPath)
	}
	if f.ShowCompilerDiagnostics {
		args = append(args, "--show-compiler-diagnostics")
	}
	cmd := exec.Command(self, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd
}
