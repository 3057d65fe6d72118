// Package driver implements the scip-clang driver: the process that owns
// the compilation database, spawns and supervises worker processes, runs
// the two-phase dispatch/collection protocol over internal/ipc, performs
// owner election between Phase A and Phase B, and merges the resulting
// shards into the final index via internal/indexbuilder (spec §4.4).
// Grounded on original_source/indexer/Driver.h's Driver class and its
// runJobsToCompletion/processOneResult loop, adapted from in-process
// goroutine dispatch (as internal/scheduler/scheduler.go models it for
// CKB's task store) to out-of-process IPC dispatch against spawned
// worker binaries.
package driver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scip-clang-go/scip-clang-go/internal/compdb"
	ierrors "github.com/scip-clang-go/scip-clang-go/internal/errors"
	"github.com/scip-clang-go/scip-clang-go/internal/hashutil"
	"github.com/scip-clang-go/scip-clang-go/internal/indexbuilder"
	"github.com/scip-clang-go/scip-clang-go/internal/ipc"
	"github.com/scip-clang-go/scip-clang-go/internal/jobid"
	"github.com/scip-clang-go/scip-clang-go/internal/logging"
	"github.com/scip-clang-go/scip-clang-go/internal/paths"
	"github.com/scip-clang-go/scip-clang-go/internal/scipext"
	"github.com/scip-clang-go/scip-clang-go/internal/version"
	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"
)

// SpawnFunc builds (but does not start) the *exec.Cmd for worker slot
// workerID, so the driver stays ignorant of the CLI flags cmd/scip-clang
// uses to invoke its own "__worker" subcommand.
type SpawnFunc func(ctx context.Context, workerID uint32) (*exec.Cmd, error)

// Options configures one indexing run (Driver.h's DriverOptions plus the
// supplemented fault-tolerance knobs of SPEC_FULL.md §12).
type Options struct {
	ProjectRoot     paths.RootPath
	CompdbPath      string
	IndexOutputPath string
	NumWorkers      int
	Deterministic   bool

	DriverID      string
	SocketBaseDir string

	JobTimeout time.Duration
	MaxRetries int

	Spawn  SpawnFunc
	Logger *logging.Logger
}

// Summary reports how an indexing run concluded (spec §4.4 step 7's final
// tally).
type Summary struct {
	TasksTotal      int
	TasksSucceeded  int
	TasksFailed     int
	TasksTimedOut   int
	FilesIndexed    int
	Occurrences     int
	TotalTimeMicros int64
}

// Driver runs one indexing job end to end: load the compilation database,
// spawn NumWorkers worker processes, run Phase A then owner election then
// Phase B against them, and merge their shards into IndexOutputPath.
type Driver struct {
	opts Options
}

// New constructs a Driver for opts, filling in defaults the way Driver.h's
// constructor does.
func New(opts Options) *Driver {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 5 * time.Minute
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 2
	}
	if opts.DriverID == "" {
		opts.DriverID = uuid.New().String()
	}
	return &Driver{opts: opts}
}

// Run executes the full protocol and writes the merged index to
// opts.IndexOutputPath.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	commands, err := compdb.Load(d.opts.CompdbPath)
	if err != nil {
		return Summary{}, err
	}
	if len(commands) == 0 {
		return Summary{}, ierrors.New(ierrors.ConfigError, "driver", "compilation database has no entries")
	}

	pool, err := newWorkerPool(ctx, d.opts)
	if err != nil {
		return Summary{}, err
	}
	defer pool.shutdown()

	run := &run{
		opts:     d.opts,
		pool:     pool,
		commands: commands,
		builder:  indexbuilder.New(d.opts.Deterministic),
		hashes:   make(map[string]map[hashutil.HashValue][]uint32),
		observed: make(map[uint32]map[string]hashutil.HashValue),
	}

	if err := run.phaseA(ctx); err != nil {
		return Summary{}, err
	}
	owned := run.electOwners()
	if err := run.phaseB(ctx, owned); err != nil {
		return Summary{}, err
	}

	run.builder.ResolveForwardDecls()
	index := run.builder.Finalize(defaultMetadata(d.opts.ProjectRoot))
	if err := writeIndex(d.opts.IndexOutputPath, index); err != nil {
		return Summary{}, err
	}

	run.summary.TasksTotal = len(commands)
	return run.summary, nil
}

func defaultMetadata(root paths.RootPath) *scippb.Metadata {
	return &scippb.Metadata{
		Version:              scippb.ProtocolVersion_UnspecifiedProtocolVersion,
		ToolInfo:             &scippb.ToolInfo{Name: "scip-clang-go", Version: version.Version},
		ProjectRoot:          "file://" + root.String(),
		TextDocumentEncoding: scippb.TextEncoding_UTF8,
	}
}

func writeIndex(path string, index *scippb.Index) error {
	data, err := proto.Marshal(index)
	if err != nil {
		return ierrors.Wrap(ierrors.InvariantViolation, "driver", "marshaling final index", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return ierrors.Wrap(ierrors.ConfigError, "driver", fmt.Sprintf("writing %s", path), err)
	}
	return nil
}

// run carries the mutable state of one indexing pass through its phases;
// Driver itself stays reusable/stateless across calls to Run.
type run struct {
	opts     Options
	pool     *workerPool
	commands []compdb.CompileCommand
	builder  *indexbuilder.IndexBuilder
	summary  Summary

	mu       sync.Mutex
	hashes   map[string]map[hashutil.HashValue][]uint32 // path -> hash -> task ids that observed it well-behaved
	observed map[uint32]map[string]hashutil.HashValue    // task -> path -> the one hash it observed
}

// phaseA dispatches a SemanticAnalysis job per compile command and folds
// every well-behaved observation into the shared hash table (spec §4.4
// steps 2-3). Ill-behaved files (a single task observing more than one
// hash for the same header) are logged and excluded from ownership,
// since there is no single observed_hash(p, task) to elect against.
func (r *run) phaseA(ctx context.Context) error {
	var wg sync.WaitGroup
	for taskID := range r.commands {
		taskID := uint32(taskID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.runTaskPhaseA(ctx, taskID)
		}()
	}
	wg.Wait()
	return nil
}

func (r *run) runTaskPhaseA(ctx context.Context, taskID uint32) {
	cmd := r.commands[taskID]
	req := func() (ipc.IndexJobRequest, error) {
		job, err := ipc.NewSemanticAnalysisJob(ipc.SemanticAnalysisJobDetails{Command: cmd})
		if err != nil {
			return ipc.IndexJobRequest{}, err
		}
		return ipc.IndexJobRequest{ID: jobid.New(taskID, jobid.SemanticAnalysisSubtask), Job: job}, nil
	}
	result, ok := r.pool.dispatch(ctx, taskID, cmd, req)
	if !ok {
		r.recordFailure(taskID)
		return
	}
	analysis, err := result.AsSemanticAnalysis()
	if err != nil {
		r.logf(logging.ErrorLevel, "malformed semantic-analysis result", map[string]interface{}{"task": taskID, "error": err.Error()})
		r.recordFailure(taskID)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	observed := make(map[string]hashutil.HashValue, len(analysis.WellBehavedFiles))
	for _, f := range analysis.WellBehavedFiles {
		observed[f.Path] = f.HashValue
		byHash, ok := r.hashes[f.Path]
		if !ok {
			byHash = make(map[hashutil.HashValue][]uint32)
			r.hashes[f.Path] = byHash
		}
		byHash[f.HashValue] = append(byHash[f.HashValue], taskID)
	}
	r.observed[taskID] = observed
	for _, f := range analysis.IllBehavedFiles {
		r.logf(logging.WarnLevel, "ill-behaved header excluded from ownership", map[string]interface{}{"task": taskID, "path": f.Path})
	}
}

// electOwners picks the lowest task id among every task that observed a
// given (path, hash) pair as that file's single owner (spec §4.4 step 4).
// A task's main file is not added here; the worker adds it to the owned
// set when it runs that task's EmitIndex job.
func (r *run) electOwners() map[uint32][]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner := make(map[string]map[hashutil.HashValue]uint32, len(r.hashes))
	for path, byHash := range r.hashes {
		owner[path] = make(map[hashutil.HashValue]uint32, len(byHash))
		for hash, tasks := range byHash {
			owner[path][hash] = minUint32(tasks)
		}
	}

	owned := make(map[uint32][]string, len(r.commands))
	for taskID, observed := range r.observed {
		var files []string
		for path, hash := range observed {
			if owner[path][hash] == taskID {
				files = append(files, path)
			}
		}
		sort.Strings(files)
		owned[taskID] = files
	}
	return owned
}

func minUint32(xs []uint32) uint32 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

// phaseB dispatches an EmitIndex job per task that owns at least one file
// (or is itself unowned, since a task's main file is always implicitly
// its own), collecting shard paths and folding them into the index
// builder as they arrive (spec §4.4 steps 5-6).
func (r *run) phaseB(ctx context.Context, owned map[uint32][]string) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	for taskID := range r.commands {
		taskID := uint32(taskID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.runTaskPhaseB(ctx, taskID, owned[taskID], &mu)
		}()
	}
	wg.Wait()
	return nil
}

func (r *run) runTaskPhaseB(ctx context.Context, taskID uint32, files []string, mu *sync.Mutex) {
	cmd := r.commands[taskID]
	req := func() (ipc.IndexJobRequest, error) {
		job, err := ipc.NewEmitIndexJob(ipc.EmitIndexJobDetails{FilesToBeIndexed: files})
		if err != nil {
			return ipc.IndexJobRequest{}, err
		}
		return ipc.IndexJobRequest{ID: jobid.New(taskID, jobid.EmitIndexSubtask), Job: job}, nil
	}
	result, ok := r.pool.dispatch(ctx, taskID, cmd, req)
	if !ok {
		r.recordFailure(taskID)
		return
	}
	emit, err := result.AsEmitIndex()
	if err != nil {
		r.logf(logging.ErrorLevel, "malformed emit-index result", map[string]interface{}{"task": taskID, "error": err.Error()})
		r.recordFailure(taskID)
		return
	}

	docs, err := scipext.ReadDocsAndExternalsShard(emit.ShardPaths.DocsAndExternals)
	if err != nil {
		r.logf(logging.ErrorLevel, "failed to read docs shard", map[string]interface{}{"task": taskID, "error": err.Error()})
		r.recordFailure(taskID)
		return
	}
	fwd, err := scipext.ReadForwardDeclsShard(emit.ShardPaths.ForwardDecls)
	if err != nil {
		r.logf(logging.ErrorLevel, "failed to read forward-decls shard", map[string]interface{}{"task": taskID, "error": err.Error()})
		r.recordFailure(taskID)
		return
	}

	mu.Lock()
	defer mu.Unlock()
	r.builder.AddShard(docs)
	r.builder.AddForwardDecls(fwd)
	r.summary.TasksSucceeded++
	r.summary.FilesIndexed += emit.Statistics.FilesIndexed
	r.summary.Occurrences += emit.Statistics.OccurrencesEmitted
	r.summary.TotalTimeMicros += emit.Statistics.TotalTimeMicros
}

func (r *run) recordFailure(taskID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pool.timedOut(taskID) {
		r.summary.TasksTimedOut++
	} else {
		r.summary.TasksFailed++
	}
}

func (r *run) logf(level logging.LogLevel, msg string, fields map[string]interface{}) {
	if r.opts.Logger == nil {
		return
	}
	switch level {
	case logging.ErrorLevel:
		r.opts.Logger.Error(msg, fields)
	case logging.WarnLevel:
		r.opts.Logger.Warn(msg, fields)
	default:
		r.opts.Logger.Info(msg, fields)
	}
}

// writeFileAtomic writes data to a temporary file in path's directory and
// renames it into place, so a crash mid-write never leaves a truncated
// index behind.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
