// Package paths implements the path utilities (C1): canonicalization of
// absolute paths into root-relative identity, and the stable file id used
// to give every header one identity across opaque per-TU file handles.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// CanonicalizePath converts an absolute path to a root-relative canonical
// path: resolves symlinks, makes it relative to root, and returns it with
// forward slashes. This is the building block for RootRelativePath.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithinRoot reports whether path lies within root.
func IsWithinRoot(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts backslashes to forward slashes in an
// already-relative path.
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// JoinRootPath joins root with a canonical (forward-slash) relative path.
func JoinRootPath(root string, canonicalPath string) string {
	normalized := strings.ReplaceAll(canonicalPath, "\\", "/")
	parts := strings.Split(normalized, "/")
	return filepath.Join(append([]string{root}, parts...)...)
}

// AbsolutePath is a normalized, absolute filesystem path.
type AbsolutePath struct {
	value string
}

// NewAbsolutePath resolves p to an absolute, cleaned, forward-slash path.
func NewAbsolutePath(p string) (AbsolutePath, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return AbsolutePath{}, err
	}
	return AbsolutePath{value: filepath.ToSlash(filepath.Clean(abs))}, nil
}

// String returns the normalized absolute path.
func (p AbsolutePath) String() string { return p.value }

// IsEmpty reports whether this is the zero value.
func (p AbsolutePath) IsEmpty() bool { return p.value == "" }

// RootPath is the absolute directory the emitted index is rooted at
// (spec §3, "project root").
type RootPath struct {
	AbsolutePath
}

// NewRootPath resolves root to an absolute directory.
func NewRootPath(root string) (RootPath, error) {
	abs, err := NewAbsolutePath(root)
	if err != nil {
		return RootPath{}, err
	}
	return RootPath{AbsolutePath: abs}, nil
}

// RootRelativePath is a path relative to a RootPath, always forward-slashed.
// It is the stable document identity used in the emitted SCIP index.
type RootRelativePath struct {
	value string
}

// Relativize rewrites abs to be relative to root. ok is false when abs
// lies outside root — those files keep absolute identity and are indexed
// as external symbols (spec §3).
func Relativize(root RootPath, abs AbsolutePath) (rel RootRelativePath, ok bool) {
	r, err := filepath.Rel(root.String(), abs.String())
	if err != nil {
		return RootRelativePath{}, false
	}
	r = filepath.ToSlash(r)
	if r == "." || r == ".." || strings.HasPrefix(r, "../") {
		return RootRelativePath{}, false
	}
	return RootRelativePath{value: r}, true
}

// String returns the root-relative path with forward slashes.
func (p RootRelativePath) String() string { return p.value }

// IsEmpty reports whether this is the zero value.
func (p RootRelativePath) IsEmpty() bool { return p.value == "" }

// StableFileId is the stable identity for a file within one TU: a
// root-relative path when the file is under the project root, otherwise
// the absolute path, per spec §3/§4.5. It is derived from the cleaned
// absolute path as given: symlinks are not resolved, so two paths that
// reach one file through different symlinks yield different StableFileIds.
type StableFileId struct {
	PathValue string
	InProject bool
}

// NewStableFileId derives a StableFileId for abs given the project root.
func NewStableFileId(root RootPath, abs AbsolutePath) StableFileId {
	if rel, ok := Relativize(root, abs); ok {
		return StableFileId{PathValue: rel.String(), InProject: true}
	}
	return StableFileId{PathValue: abs.String(), InProject: false}
}

// String renders the StableFileId for logging/debugging, matching the
// original's DebugHelpers-style pretty-printers (spec supplement §12.4).
func (id StableFileId) String() string {
	if id.InProject {
		return id.PathValue
	}
	return "<external>" + id.PathValue
}

// GetSCIPIndexPath returns the path the final merged index is written to:
// configuredPath if given (absolute paths pass through, relative ones are
// joined to root), else "<root>/index.scip".
func GetSCIPIndexPath(root string, configuredPath string) string {
	if configuredPath != "" {
		if filepath.IsAbs(configuredPath) {
			return configuredPath
		}
		return filepath.Join(root, configuredPath)
	}
	return filepath.Join(root, "index.scip")
}
