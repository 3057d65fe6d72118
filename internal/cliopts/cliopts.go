// Package cliopts binds the scip-clang CLI surface (spec §6) to cobra
// flags, with an optional scip-clang.toml project config file layered
// underneath them via viper. Grounded on the teacher's internal/config
// (viper + mapstructure) and cmd/ckb's per-command Flags().StringVar
// binding style, adapted from CKB's nested JSON config schema to this
// project's flat flag set.
package cliopts

import (
	"fmt"
	"os"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scip-clang-go/scip-clang-go/internal/logging"
)

// envPrefix is the SCIP_CLANG_* environment variable namespace viper
// binds flags under, the way the teacher's internal/config applies
// CKB_*-prefixed env overrides on top of its config file.
const envPrefix = "SCIP_CLANG"

func newEnvBinder() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	return v
}

// FileConfig is the shape of an optional scip-clang.toml: any flag not
// passed on the command line falls back to this file, then to the
// hardcoded defaults below (cobra/viper precedence: flag > file >
// default).
type FileConfig struct {
	Jobs                          int    `toml:"jobs"`
	Deterministic                 bool   `toml:"deterministic"`
	LogLevel                      string `toml:"log_level"`
	TemporaryOutputDir            string `toml:"temporary_output_dir"`
	PreprocessorRecordHistoryFilter string `toml:"preprocessor_record_history_filter"`
	PreprocessorHistoryLogPath    string `toml:"preprocessor_history_log_path"`
	ShowCompilerDiagnostics       bool   `toml:"show_compiler_diagnostics"`
}

// DefaultFileConfig mirrors config init's written-out defaults.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Jobs:                runtime.NumCPU(),
		Deterministic:       false,
		LogLevel:            string(logging.InfoLevel),
		TemporaryOutputDir:  os.TempDir(),
		ShowCompilerDiagnostics: false,
	}
}

// WriteDefaultConfig writes a fully-populated scip-clang.toml to path,
// the way `ckb init` seeds .ckb/config.json (spec §10.3).
func WriteDefaultConfig(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(DefaultFileConfig())
}

// LoadFileConfig reads path if it exists, returning DefaultFileConfig
// unchanged if it doesn't (a missing project config file is not an
// error: spec §10.3's config layer is optional).
func LoadFileConfig(path string) (FileConfig, error) {
	cfg := DefaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("cliopts: decoding %s: %w", path, err)
	}
	return cfg, nil
}

// IndexFlags is the bound form of the driver's CLI surface (spec §6's
// driver executable table).
type IndexFlags struct {
	CompdbPath                      string
	IndexOutputPath                 string
	Jobs                             int
	Deterministic                    bool
	ProjectRootPath                  string
	TemporaryOutputDir               string
	LogLevel                         string
	PreprocessorRecordHistoryFilter  string
	PreprocessorHistoryLogPath       string
	ShowCompilerDiagnostics          bool
	ConfigPath                       string
}

// BindIndexFlags registers the driver's flags on cmd and returns the
// struct cobra will have filled in by the time the command's RunE runs.
func BindIndexFlags(cmd *cobra.Command) *IndexFlags {
	f := &IndexFlags{}
	cmd.Flags().StringVar(&f.CompdbPath, "compdb-path", "", "Path to a compile_commands.json compilation database (required)")
	cmd.Flags().StringVar(&f.IndexOutputPath, "index-output-path", "index.scip", "Destination for the merged SCIP index")
	cmd.Flags().IntVar(&f.Jobs, "jobs", 0, "Worker pool size (default: number of CPUs)")
	cmd.Flags().BoolVar(&f.Deterministic, "deterministic", false, "Enable stable iteration orders for byte-identical reruns")
	cmd.Flags().StringVar(&f.ProjectRootPath, "project-root-path", "", "Root used to derive root-relative paths (default: compdb's directory)")
	cmd.Flags().StringVar(&f.TemporaryOutputDir, "temporary-output-dir", "", "Scratch directory for shard files (default: a temp dir)")
	cmd.Flags().StringVar(&f.LogLevel, "log-level", "info", "Logging verbosity: trace|debug|info|warn|error")
	cmd.Flags().StringVar(&f.PreprocessorRecordHistoryFilter, "preprocessor-record-history-filter", "", "Regex; headers whose path matches are recorded to --preprocessor-history-log-path")
	cmd.Flags().StringVar(&f.PreprocessorHistoryLogPath, "preprocessor-history-log-path", "", "Destination for the preprocessor event log")
	cmd.Flags().BoolVar(&f.ShowCompilerDiagnostics, "show-compiler-diagnostics", false, "Forward parser diagnostics to stderr")
	cmd.Flags().StringVar(&f.ConfigPath, "config", "scip-clang.toml", "Optional project config file")
	return f
}

// ApplyFileConfig fills in each flag the user did not pass on the command
// line (cobra's Flags().Changed tells flag-default-zero apart from
// user-set-to-zero). For --jobs, --deterministic and --log-level a
// SCIP_CLANG_*-prefixed environment variable is consulted first, then
// file; the remaining flags are taken from file only, with no environment
// lookup. This is the teacher's flag > env > file > default
// layering (internal/config's EnvOverride), adapted from CKB's nested
// JSON schema to this project's flat flag set.
func (f *IndexFlags) ApplyFileConfig(cmd *cobra.Command, file FileConfig) {
	env := newEnvBinder()
	if !cmd.Flags().Changed("jobs") {
		if v := env.GetInt("jobs"); v > 0 {
			f.Jobs = v
		} else if file.Jobs > 0 {
			f.Jobs = file.Jobs
		}
	}
	if !cmd.Flags().Changed("deterministic") {
		if env.IsSet("deterministic") {
			f.Deterministic = env.GetBool("deterministic")
		} else if file.Deterministic {
			f.Deterministic = file.Deterministic
		}
	}
	if !cmd.Flags().Changed("log-level") {
		if v := env.GetString("log_level"); v != "" {
			f.LogLevel = v
		} else if file.LogLevel != "" {
			f.LogLevel = file.LogLevel
		}
	}
	if !cmd.Flags().Changed("temporary-output-dir") && file.TemporaryOutputDir != "" {
		f.TemporaryOutputDir = file.TemporaryOutputDir
	}
	if !cmd.Flags().Changed("preprocessor-record-history-filter") && file.PreprocessorRecordHistoryFilter != "" {
		f.PreprocessorRecordHistoryFilter = file.PreprocessorRecordHistoryFilter
	}
	if !cmd.Flags().Changed("preprocessor-history-log-path") && file.PreprocessorHistoryLogPath != "" {
		f.PreprocessorHistoryLogPath = file.PreprocessorHistoryLogPath
	}
	if !cmd.Flags().Changed("show-compiler-diagnostics") && file.ShowCompilerDiagnostics {
		f.ShowCompilerDiagnostics = file.ShowCompilerDiagnostics
	}
	if f.Jobs <= 0 {
		f.Jobs = runtime.NumCPU()
	}
}

// WorkerFlags is the bound form of the internal "__worker" subcommand's
// CLI surface (spec §6's worker executable table).
type WorkerFlags struct {
	WorkerMode                      string
	DriverID                        string
	WorkerID                        uint32
	WorkerFault                     string
	ProjectRootPath                 string
	SocketBaseDir                   string
	CompdbPath                      string
	IndexOutputPath                 string
	Deterministic                   bool
	LogLevel                        string
	TemporaryOutputDir              string
	PreprocessorRecordHistoryFilter string
	PreprocessorHistoryLogPath      string
	ShowCompilerDiagnostics         bool
}

// BindWorkerFlags registers the hidden worker subcommand's flags.
func BindWorkerFlags(cmd *cobra.Command) *WorkerFlags {
	f := &WorkerFlags{}
	cmd.Flags().StringVar(&f.WorkerMode, "worker-mode", "ipc", "ipc|compdb|testing")
	cmd.Flags().StringVar(&f.DriverID, "driver-id", "", "Driver instance id (ipc mode only)")
	cmd.Flags().Uint32Var(&f.WorkerID, "worker-id", 0, "This worker's index (ipc mode only)")
	cmd.Flags().StringVar(&f.WorkerFault, "worker-fault", "", "Inject a synthetic fault: crash-once|crash-always|hang|malformed-message")
	cmd.Flags().StringVar(&f.ProjectRootPath, "project-root-path", "", "Root used to derive root-relative paths")
	cmd.Flags().StringVar(&f.SocketBaseDir, "socket-base-dir", os.TempDir(), "Directory holding the driver/worker IPC sockets")
	cmd.Flags().StringVar(&f.CompdbPath, "compdb-path", "", "Compilation database (compdb mode only)")
	cmd.Flags().StringVar(&f.IndexOutputPath, "index-output-path", "index.scip", "Merged index destination (compdb mode only)")
	cmd.Flags().BoolVar(&f.Deterministic, "deterministic", false, "Enable stable iteration orders")
	cmd.Flags().StringVar(&f.LogLevel, "log-level", "info", "Logging verbosity: trace|debug|info|warn|error")
	cmd.Flags().StringVar(&f.TemporaryOutputDir, "temporary-output-dir", os.TempDir(), "Scratch directory for shard files")
	cmd.Flags().StringVar(&f.PreprocessorRecordHistoryFilter, "preprocessor-record-history-filter", "", "Regex; headers whose path matches are recorded to --preprocessor-history-log-path")
	cmd.Flags().StringVar(&f.PreprocessorHistoryLogPath, "preprocessor-history-log-path", "", "Destination for the preprocessor event log")
	cmd.Flags().BoolVar(&f.ShowCompilerDiagnostics, "show-compiler-diagnostics", false, "Forward parser diagnostics to stderr")
	return f
}
