// Package history implements the optional preprocessor event log behind
// --preprocessor-record-history-filter (spec §6): a worker records one
// event per file-enter/macro-expansion it observes for headers whose
// absolute path matches a regex, as YAML, mirroring the original's
// llvm::yaml::Output-based PreprocessorHistoryRecorder in
// original_source/indexer/Worker.h. Grounded on the teacher's use of
// gopkg.in/yaml.v3 for structured dumps and github.com/klauspost/compress
// for gzip-compressing the log when its path ends in .gz.
package history

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	ierrors "github.com/scip-clang-go/scip-clang-go/internal/errors"
	"github.com/scip-clang-go/scip-clang-go/internal/frontend"
)

// Event is one recorded preprocessor occurrence (Worker.h's
// PreprocessorHistoryRecorder entries, flattened to one YAML-friendly
// struct per event instead of the C++ recorder's streaming emitter).
type Event struct {
	Path   string `yaml:"path"`
	Kind   string `yaml:"kind"`
	Line   int    `yaml:"line,omitempty"`
	Detail string `yaml:"detail,omitempty"`
}

const (
	kindFileEnter      = "file-enter"
	kindFileExit       = "file-exit"
	kindMacroExpansion = "macro-expansion"
)

// Recorder filters preprocessor events by absolute path and appends the
// matching ones to a YAML log, optionally gzip-compressed when the
// output path ends in .gz.
type Recorder struct {
	filter *regexp.Regexp

	mu  sync.Mutex
	enc *yaml.Encoder
	closers []io.Closer
}

// NewRecorder opens logPath for the lifetime of one worker process. An
// empty filterRegex matches every path (record everything); an empty
// logPath disables recording entirely (NewRecorder returns a nil *Recorder,
// which every method on this type tolerates by being a no-op).
func NewRecorder(filterRegex, logPath string) (*Recorder, error) {
	if logPath == "" {
		return nil, nil
	}
	pattern := filterRegex
	if pattern == "" {
		pattern = ".*"
	}
	filter, err := regexp.Compile(pattern)
	if err != nil {
		return nil, ierrors.Wrap(ierrors.ConfigError, "history", fmt.Sprintf("invalid --preprocessor-record-history-filter %q", filterRegex), err)
	}

	f, err := os.Create(logPath)
	if err != nil {
		return nil, ierrors.Wrap(ierrors.ConfigError, "history", fmt.Sprintf("creating %s", logPath), err)
	}
	closers := []io.Closer{f}
	var w io.Writer = f
	if isGzipPath(logPath) {
		gz := gzip.NewWriter(f)
		closers = append(closers, gz)
		w = gz
	}
	enc := yaml.NewEncoder(w)
	return &Recorder{filter: filter, enc: enc, closers: closers}, nil
}

func isGzipPath(path string) bool {
	return len(path) > 3 && path[len(path)-3:] == ".gz"
}

// Matches reports whether path passes this recorder's filter; callers
// use it to skip building an Event for paths that would be discarded
// anyway. A nil Recorder matches nothing.
func (r *Recorder) Matches(path string) bool {
	if r == nil {
		return false
	}
	return r.filter.MatchString(path)
}

// RecordFileEnter logs a file-enter event if path matches the filter.
func (r *Recorder) RecordFileEnter(path string) {
	r.record(path, kindFileEnter, 0, "")
}

// RecordFileExit logs a file-exit event if path matches the filter.
func (r *Recorder) RecordFileExit(path string) {
	r.record(path, kindFileExit, 0, "")
}

// RecordMacroExpansion logs a macro-expansion event if path matches the
// filter.
func (r *Recorder) RecordMacroExpansion(path string, rng frontend.SourceRange, macro frontend.MacroDefID) {
	r.record(path, kindMacroExpansion, int(rng.StartLine), fmt.Sprintf("macro=%d", macro))
}

func (r *Recorder) record(path, kind string, line int, detail string) {
	if r == nil || !r.Matches(path) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(Event{Path: path, Kind: kind, Line: line, Detail: detail})
}

// Close flushes and closes the underlying log file(s). A nil Recorder's
// Close is a no-op.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.enc.Close()
	for i := len(r.closers) - 1; i >= 0; i-- {
		if cerr := r.closers[i].Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
