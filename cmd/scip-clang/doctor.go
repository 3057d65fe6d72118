package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/scip-clang-go/scip-clang-go/internal/compdb"
)

var (
	doctorCompdbPath  string
	doctorProjectRoot string
	doctorJobs        int
)

// doctorCmd sanity-checks the flags an index invocation would need,
// grounded on cmd/ckb/doctor.go's pattern of a standalone pre-flight
// check command (adapted to this indexer's three real preconditions:
// a parseable compdb, an existing project root, and an achievable
// worker count — there is no git/LSP/storage tier to probe here).
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that an index invocation's flags are usable",
	RunE: func(cmd *cobra.Command, args []string) error {
		ok := true
		if doctorCompdbPath == "" {
			fmt.Println("FAIL --compdb-path: not set")
			ok = false
		} else if commands, err := compdb.Load(doctorCompdbPath); err != nil {
			fmt.Printf("FAIL --compdb-path %s: %v\n", doctorCompdbPath, err)
			ok = false
		} else {
			fmt.Printf("OK   --compdb-path %s: %d compile commands\n", doctorCompdbPath, len(commands))
		}

		if doctorProjectRoot != "" {
			if info, err := os.Stat(doctorProjectRoot); err != nil || !info.IsDir() {
				fmt.Printf("FAIL --project-root-path %s: not a directory\n", doctorProjectRoot)
				ok = false
			} else {
				fmt.Printf("OK   --project-root-path %s\n", doctorProjectRoot)
			}
		}

		jobs := doctorJobs
		if jobs <= 0 {
			jobs = runtime.NumCPU()
		}
		if jobs > runtime.NumCPU()*4 {
			fmt.Printf("WARN --jobs %d: more than 4x NumCPU (%d); workers will contend heavily\n", jobs, runtime.NumCPU())
		} else {
			fmt.Printf("OK   --jobs %d\n", jobs)
		}

		if !ok {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().StringVar(&doctorCompdbPath, "compdb-path", "", "Compilation database to validate")
	doctorCmd.Flags().StringVar(&doctorProjectRoot, "project-root-path", "", "Project root to validate")
	doctorCmd.Flags().IntVar(&doctorJobs, "jobs", 0, "Worker count to sanity-check")
	rootCmd.AddCommand(doctorCmd)
}
