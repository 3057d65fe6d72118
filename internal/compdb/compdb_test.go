package compdb

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/scip-clang-go/scip-clang-go/internal/errors"
)

func TestLoadRoundTrip(t *testing.T) {
	want := []CompileCommand{
		{
			Directory: "/proj/build",
			File:      "/proj/src/a.cc",
			Output:    "a.o",
			Arguments: []string{"clang++", "-c", "a.cc", "-Iinclude"},
		},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "compile_commands.json")
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 1 || got[0].File != want[0].File || got[0].Output != want[0].Output {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/compile_commands.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if errors.Code(err) != errors.ConfigError {
		t.Errorf("Code(err) = %v, want ConfigError", errors.Code(err))
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compile_commands.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	if errors.Code(err) != errors.ConfigError {
		t.Errorf("Code(err) = %v, want ConfigError", errors.Code(err))
	}
}

func TestLoadMissingFileField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compile_commands.json")
	if err := os.WriteFile(path, []byte(`[{"directory":"/x","arguments":["clang++"]}]`), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for missing file field")
	}
}
