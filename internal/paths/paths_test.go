package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalizePath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "scip-clang-paths-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	testFile := filepath.Join(tempDir, "subdir", "test.cc")
	if err := os.MkdirAll(filepath.Dir(testFile), 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if err := os.WriteFile(testFile, []byte("int main() {}"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	canonical, err := CanonicalizePath(testFile, tempDir)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}

	expected := "subdir/test.cc"
	if canonical != expected {
		t.Errorf("Expected %s, got %s", expected, canonical)
	}
}

func TestIsWithinRoot(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "scip-clang-paths-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	inside := filepath.Join(tempDir, "a.h")
	if !IsWithinRoot(inside, tempDir) {
		t.Errorf("expected %s to be within %s", inside, tempDir)
	}

	outside := filepath.Join(filepath.Dir(tempDir), "elsewhere", "b.h")
	if IsWithinRoot(outside, tempDir) {
		t.Errorf("expected %s to be outside %s", outside, tempDir)
	}
}

func TestNormalizePath(t *testing.T) {
	result := NormalizePath("path/to/file")
	expected := "path/to/file"
	if result != expected {
		t.Errorf("NormalizePath(path/to/file): expected %s, got %s", expected, result)
	}
}

func TestJoinRootPath(t *testing.T) {
	root := filepath.FromSlash("/proj/root")
	got := JoinRootPath(root, "include/foo/bar.h")
	want := filepath.Join(root, "include", "foo", "bar.h")
	if got != want {
		t.Errorf("JoinRootPath() = %s, want %s", got, want)
	}
}

func TestRelativize(t *testing.T) {
	root, err := NewRootPath("/proj/root")
	if err != nil {
		t.Fatalf("NewRootPath failed: %v", err)
	}

	tests := []struct {
		name    string
		abs     string
		wantRel string
		wantOK  bool
	}{
		{"in project", "/proj/root/src/foo.cc", "src/foo.cc", true},
		{"at root", "/proj/root", "", false},
		{"outside project", "/usr/include/stdio.h", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			abs, err := NewAbsolutePath(tt.abs)
			if err != nil {
				t.Fatalf("NewAbsolutePath failed: %v", err)
			}
			rel, ok := Relativize(root, abs)
			if ok != tt.wantOK {
				t.Fatalf("Relativize() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && rel.String() != tt.wantRel {
				t.Errorf("Relativize() = %s, want %s", rel.String(), tt.wantRel)
			}
		})
	}
}

func TestNewStableFileId(t *testing.T) {
	root, err := NewRootPath("/proj/root")
	if err != nil {
		t.Fatalf("NewRootPath failed: %v", err)
	}

	inProject, err := NewAbsolutePath("/proj/root/include/a.h")
	if err != nil {
		t.Fatalf("NewAbsolutePath failed: %v", err)
	}
	id := NewStableFileId(root, inProject)
	if !id.InProject || id.PathValue != "include/a.h" {
		t.Errorf("NewStableFileId() = %+v, want in-project include/a.h", id)
	}

	external, err := NewAbsolutePath("/usr/include/stdio.h")
	if err != nil {
		t.Fatalf("NewAbsolutePath failed: %v", err)
	}
	extID := NewStableFileId(root, external)
	if extID.InProject || extID.PathValue != "/usr/include/stdio.h" {
		t.Errorf("NewStableFileId() = %+v, want external /usr/include/stdio.h", extID)
	}
	if extID.String() != "<external>/usr/include/stdio.h" {
		t.Errorf("String() = %s", extID.String())
	}

	// Distinct opaque file ids resolving to the same real path must yield
	// the same StableFileId.
	again := NewStableFileId(root, inProject)
	if id != again {
		t.Errorf("NewStableFileId() not stable: %+v != %+v", id, again)
	}
}

func TestGetSCIPIndexPath(t *testing.T) {
	root := "/my/repo"

	path := GetSCIPIndexPath(root, "")
	expected := filepath.Join(root, "index.scip")
	if path != expected {
		t.Errorf("Expected %s, got %s", expected, path)
	}

	path = GetSCIPIndexPath(root, "custom/index.scip")
	expected = filepath.Join(root, "custom/index.scip")
	if path != expected {
		t.Errorf("Expected %s, got %s", expected, path)
	}

	path = GetSCIPIndexPath(root, "/absolute/index.scip")
	if path != "/absolute/index.scip" {
		t.Errorf("Expected /absolute/index.scip, got %s", path)
	}
}
