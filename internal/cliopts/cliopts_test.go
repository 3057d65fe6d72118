package cliopts

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func TestWriteAndLoadFileConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scip-clang.toml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}
	got, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}
	want := DefaultFileConfig()
	if got.Jobs != want.Jobs || got.LogLevel != want.LogLevel {
		t.Errorf("LoadFileConfig = %+v, want %+v", got, want)
	}
}

func TestLoadFileConfigMissingFileReturnsDefaults(t *testing.T) {
	got, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}
	if got != DefaultFileConfig() {
		t.Errorf("LoadFileConfig on a missing file = %+v, want defaults", got)
	}
}

func TestApplyFileConfigDoesNotOverrideExplicitFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "index"}
	flags := BindIndexFlags(cmd)
	if err := cmd.Flags().Set("jobs", "7"); err != nil {
		t.Fatalf("Set jobs: %v", err)
	}

	file := FileConfig{Jobs: 99}
	flags.ApplyFileConfig(cmd, file)

	if flags.Jobs != 7 {
		t.Errorf("Jobs = %d, want 7 (explicit flag should win over file)", flags.Jobs)
	}
}

func TestApplyFileConfigFillsUnsetFlagFromFile(t *testing.T) {
	cmd := &cobra.Command{Use: "index"}
	flags := BindIndexFlags(cmd)

	file := FileConfig{Jobs: 12, LogLevel: "debug"}
	flags.ApplyFileConfig(cmd, file)

	if flags.Jobs != 12 {
		t.Errorf("Jobs = %d, want 12 from file config", flags.Jobs)
	}
	if flags.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug from file config", flags.LogLevel)
	}
}

func TestApplyFileConfigDefaultsJobsToNumCPUWhenUnset(t *testing.T) {
	cmd := &cobra.Command{Use: "index"}
	flags := BindIndexFlags(cmd)
	flags.ApplyFileConfig(cmd, FileConfig{})
	if flags.Jobs <= 0 {
		t.Errorf("Jobs = %d, want a positive default", flags.Jobs)
	}
}
