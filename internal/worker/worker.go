// Package worker implements one scip-clang worker process (spec §4.2,
// §4.4): it drives internal/frontend over one compile command at a time
// and reports results back over internal/ipc, or (dev-only) walks a
// compilation database directly. Grounded on original_source/indexer/
// Worker.h's Worker class and its Ipc/Compdb/Testing WorkerMode split.
package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/scip-clang-go/scip-clang-go/internal/compdb"
	ierrors "github.com/scip-clang-go/scip-clang-go/internal/errors"
	"github.com/scip-clang-go/scip-clang-go/internal/frontend"
	"github.com/scip-clang-go/scip-clang-go/internal/hashutil"
	"github.com/scip-clang-go/scip-clang-go/internal/history"
	"github.com/scip-clang-go/scip-clang-go/internal/indexbuilder"
	"github.com/scip-clang-go/scip-clang-go/internal/ipc"
	"github.com/scip-clang-go/scip-clang-go/internal/logging"
	"github.com/scip-clang-go/scip-clang-go/internal/paths"
	"github.com/scip-clang-go/scip-clang-go/internal/scipext"
	"github.com/scip-clang-go/scip-clang-go/internal/tuindex"
	"github.com/scip-clang-go/scip-clang-go/internal/version"
	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"
)

// Mode selects how a worker process sources its jobs (Worker.h's
// WorkerMode enum).
type Mode string

const (
	// ModeIpc is the default: jobs arrive over internal/ipc from a driver.
	ModeIpc Mode = "ipc"
	// ModeCompdb has the worker process a compilation database directly,
	// for local development without spawning a driver.
	ModeCompdb Mode = "compdb"
	// ModeTesting exposes ProcessTranslationUnit for direct calls from
	// test code, with no IPC or compdb loop at all.
	ModeTesting Mode = "testing"
)

// Options configures one worker process (Worker.h's WorkerOptions).
type Options struct {
	ProjectRoot paths.RootPath
	Mode        Mode

	// Ipc mode only.
	DriverID      string
	WorkerID      uint32
	SocketBaseDir string
	DialTimeout   time.Duration
	ReceiveWait   time.Duration

	// Compdb mode only.
	CompdbPath      string
	IndexOutputPath string

	Deterministic           bool
	TemporaryOutputDir      string
	Fault                   Fault
	Frontend                frontend.Frontend
	Logger                  *logging.Logger
	ShowCompilerDiagnostics bool
	History                 *history.Recorder
}

// Worker runs one scip-clang worker process.
type Worker struct {
	opts     Options
	faults   *FaultInjector
	stats    ipc.IndexingStatistics
	commands map[uint32]compdb.CompileCommand // task id -> its Phase A compile command
}

// New constructs a worker for opts.
func New(opts Options) *Worker {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 10 * time.Second
	}
	if opts.ReceiveWait == 0 {
		opts.ReceiveWait = 30 * time.Second
	}
	return &Worker{
		opts:     opts,
		faults:   NewFaultInjector(opts.Fault, os.Exit),
		commands: make(map[uint32]compdb.CompileCommand),
	}
}

// Stats returns the statistics accumulated so far (spec supplement §12
// item 5).
func (w *Worker) Stats() ipc.IndexingStatistics {
	return w.stats
}

// Close flushes the preprocessor history log, if one was configured.
// Callers should invoke it once after Run returns.
func (w *Worker) Close() error {
	return w.opts.History.Close()
}

// Run dispatches to the mode-specific loop. It only returns once the
// worker has been told to shut down (Ipc mode) or has processed every
// compile command (Compdb mode).
func (w *Worker) Run(ctx context.Context) error {
	switch w.opts.Mode {
	case ModeIpc:
		return w.runIpc(ctx)
	case ModeCompdb:
		return w.runCompdb(ctx)
	default:
		return ierrors.New(ierrors.ConfigError, "worker", fmt.Sprintf("Run is not valid in mode %q", w.opts.Mode))
	}
}

func (w *Worker) logf(level logging.LogLevel, msg string, fields map[string]interface{}) {
	if w.opts.Logger == nil {
		return
	}
	switch level {
	case logging.ErrorLevel:
		w.opts.Logger.Error(msg, fields)
	case logging.WarnLevel:
		w.opts.Logger.Warn(msg, fields)
	case logging.DebugLevel:
		w.opts.Logger.Debug(msg, fields)
	case logging.TraceLevel:
		w.opts.Logger.Trace(msg, fields)
	default:
		w.opts.Logger.Info(msg, fields)
	}
}

// runIpc implements the Ipc mode loop: waitForRequest / processRequest /
// sendResult, repeated until a Shutdown message arrives (Worker.h's
// Worker::run).
func (w *Worker) runIpc(ctx context.Context) error {
	transport, err := ipc.DialWorker(ctx, w.opts.SocketBaseDir, w.opts.DriverID, w.opts.WorkerID, w.opts.DialTimeout)
	if err != nil {
		return ierrors.Wrap(ierrors.IpcError, "worker", "failed to connect to driver", err)
	}
	defer transport.Close()

	for {
		var req ipc.IndexJobRequest
		status, err := transport.Recv.Receive(w.opts.ReceiveWait, &req)
		switch status {
		case ipc.Shutdown:
			return nil
		case ipc.Timeout:
			continue
		case ipc.MalformedMessage:
			w.logf(logging.WarnLevel, "received malformed request", map[string]interface{}{"error": fmt.Sprint(err)})
			continue
		case ipc.OK:
			w.faults.MaybeCrash()
			if w.faults.ShouldHang() {
				<-ctx.Done()
				return ctx.Err()
			}
			result, procErr := w.processRequest(ctx, req)
			if procErr != nil {
				w.logf(logging.ErrorLevel, "job failed", map[string]interface{}{"job": req.ID.String(), "error": procErr.Error()})
				continue
			}
			resp := ipc.IndexJobResponse{WorkerID: w.opts.WorkerID, JobID: req.ID, Result: result}
			if w.faults.ShouldCorrupt() {
				_ = transport.Send.Send("{not valid json for the envelope}")
				continue
			}
			if sendErr := transport.Send.Send(resp); sendErr != nil {
				w.logf(logging.ErrorLevel, "failed to send result", map[string]interface{}{"job": req.ID.String(), "error": sendErr.Error()})
			}
		}
	}
}

// processRequest routes one request to its phase's handler (Worker.h's
// Worker::processRequest).
func (w *Worker) processRequest(ctx context.Context, req ipc.IndexJobRequest) (ipc.IndexJobResult, error) {
	switch req.Job.Kind {
	case ipc.SemanticAnalysis:
		details, err := req.Job.AsSemanticAnalysis()
		if err != nil {
			return ipc.IndexJobResult{}, err
		}
		w.commands[req.ID.TaskId] = details.Command
		result, err := w.runSemanticAnalysis(ctx, details.Command)
		if err != nil {
			return ipc.IndexJobResult{}, err
		}
		return ipc.NewSemanticAnalysisResult(result)
	case ipc.EmitIndex:
		details, err := req.Job.AsEmitIndex()
		if err != nil {
			return ipc.IndexJobResult{}, err
		}
		cmd, ok := w.commands[req.ID.TaskId]
		if !ok {
			return ipc.IndexJobResult{}, ierrors.New(ierrors.InvariantViolation, "worker", fmt.Sprintf("emit-index for unknown task %d: no prior semantic-analysis job cached its compile command", req.ID.TaskId))
		}
		result, err := w.runEmitIndex(ctx, cmd, details)
		if err != nil {
			return ipc.IndexJobResult{}, err
		}
		return ipc.NewEmitIndexResult(result)
	default:
		return ipc.IndexJobResult{}, ierrors.New(ierrors.MalformedMessage, "worker", fmt.Sprintf("unknown job kind %q", req.Job.Kind))
	}
}

// runSemanticAnalysis implements Phase A: parse the TU, walk only its
// preprocessor stream, and seal per-header hashes (spec §4.2.3). A fatal
// parser diagnostic mid-walk does not abort the job: whatever files were
// already entered are still hashed and reported, per spec §7's ParseError
// policy ("recorded, partial results still emitted").
func (w *Worker) runSemanticAnalysis(ctx context.Context, cmd compdb.CompileCommand) (ipc.SemanticAnalysisJobResult, error) {
	start := time.Now()
	tu, err := w.opts.Frontend.Parse(ctx, cmd.Directory, cmd.File, cmd.Arguments)
	if err != nil {
		return ipc.SemanticAnalysisJobResult{}, ierrors.Wrap(ierrors.ParseError, "worker", fmt.Sprintf("parsing %s", cmd.File), err)
	}

	files := tuindex.NewFileTable()
	macros := tuindex.NewMacroIndexer(files)
	obs := newRecordingObserver(macros, files, w.opts.History)
	if err := tu.Walk(ctx, obs, tuindex.NoopVisitor{}); err != nil {
		w.reportParseDiagnostic(cmd.File, "preprocessing", err)
	}

	observations := hashutil.NewObservations()
	for file, path := range files.All() {
		observations.Record(path, hashFile(macros, file, w.opts.Deterministic))
	}
	wellBehaved, illBehaved := observations.Seal(w.opts.Deterministic)
	w.stats.TotalTimeMicros += time.Since(start).Microseconds()
	return ipc.SemanticAnalysisJobResult{WellBehavedFiles: wellBehaved, IllBehavedFiles: illBehaved}, nil
}

// reportParseDiagnostic records a non-fatal parser diagnostic against the
// running statistics and, when --show-compiler-diagnostics is set, forwards
// it to stderr (spec §6's --show-compiler-diagnostics, §12 supplement 3).
func (w *Worker) reportParseDiagnostic(file, stage string, err error) {
	w.stats.ParseDiagnosticCount++
	w.logf(logging.WarnLevel, "partial results: "+stage+" stopped early", map[string]interface{}{"file": file, "error": err.Error()})
	if w.opts.ShowCompilerDiagnostics {
		fmt.Fprintf(os.Stderr, "scip-clang: %s: %s: %s\n", file, stage, err)
	}
}

// hashFile seals a preprocessor-effect digest for one header out of the
// macro occurrences the preprocessor observer recorded for it.
func hashFile(macros *tuindex.MacroIndexer, file frontend.FileID, deterministic bool) hashutil.HashValue {
	d := hashutil.NewDigest()
	for _, occ := range macros.Occurrences(file, deterministic) {
		d.WriteToken([]byte(fmt.Sprintf("%d:%d:%d:%d:%d:%d",
			occ.Range.StartLine, occ.Range.StartColumn, occ.Range.EndLine, occ.Range.EndColumn,
			occ.Def, occ.Role)))
	}
	return d.Seal()
}

// runEmitIndex implements Phase B: re-parse the TU and walk it fully,
// restricting recorded symbols to the files this task owns, then write
// the two shard files the driver's index builder later merges (spec
// §4.2.4, §4.4 step 6).
func (w *Worker) runEmitIndex(ctx context.Context, cmd compdb.CompileCommand, details ipc.EmitIndexJobDetails) (ipc.EmitIndexJobResult, error) {
	start := time.Now()
	tu, err := w.opts.Frontend.Parse(ctx, cmd.Directory, cmd.File, cmd.Arguments)
	if err != nil {
		return ipc.EmitIndexJobResult{}, ierrors.Wrap(ierrors.ParseError, "worker", fmt.Sprintf("re-parsing %s", cmd.File), err)
	}

	owned := make(map[string]bool, len(details.FilesToBeIndexed)+1)
	for _, f := range details.FilesToBeIndexed {
		owned[f] = true
	}
	owned[tu.MainFile()] = true

	result, walkErr := tuindex.Walk(ctx, tu, w.opts.ProjectRoot, owned, tuindex.DefaultSymbolFormatter{}, w.opts.Deterministic)
	diagnostics := 0
	if walkErr != nil {
		w.reportParseDiagnostic(cmd.File, "indexing", walkErr)
		diagnostics = 1
	}

	shardPaths, err := w.writeShards(cmd, result)
	if err != nil {
		return ipc.EmitIndexJobResult{}, err
	}

	occurrences := 0
	for _, doc := range result.DocsAndExternals.Documents {
		occurrences += len(doc.Occurrences)
	}
	stats := ipc.IndexingStatistics{
		TotalTimeMicros:      time.Since(start).Microseconds(),
		FilesIndexed:         len(owned),
		OccurrencesEmitted:   occurrences,
		ParseDiagnosticCount: diagnostics,
	}
	w.stats.FilesIndexed += stats.FilesIndexed
	w.stats.OccurrencesEmitted += stats.OccurrencesEmitted
	w.stats.TotalTimeMicros += stats.TotalTimeMicros
	return ipc.EmitIndexJobResult{Statistics: stats, ShardPaths: shardPaths}, nil
}

func (w *Worker) writeShards(cmd compdb.CompileCommand, result tuindex.Result) (ipc.ShardPaths, error) {
	source := cmd.File
	if !filepath.IsAbs(source) {
		source = filepath.Join(cmd.Directory, source)
	}
	stableID := source
	if abs, err := paths.NewAbsolutePath(source); err == nil {
		stableID = paths.NewStableFileId(w.opts.ProjectRoot, abs).String()
	}
	base := filepath.Join(w.opts.TemporaryOutputDir, stableID)
	docsPath := base + ".docs.json"
	fwdPath := base + ".fwd.json"
	if err := scipext.WriteShard(docsPath, result.DocsAndExternals); err != nil {
		return ipc.ShardPaths{}, err
	}
	if err := scipext.WriteShard(fwdPath, result.ForwardDecls); err != nil {
		return ipc.ShardPaths{}, err
	}
	return ipc.ShardPaths{DocsAndExternals: docsPath, ForwardDecls: fwdPath}, nil
}

// runCompdb implements the dev-only Compdb mode: every compile command is
// indexed in a single walk with only its main file owned (no Phase A
// hashing and no cross-TU owner election, since there is no driver to
// perform it), and the merged result written directly to IndexOutputPath.
func (w *Worker) runCompdb(ctx context.Context) error {
	commands, err := compdb.Load(w.opts.CompdbPath)
	if err != nil {
		return err
	}
	builder := indexbuilder.New(w.opts.Deterministic)
	for _, cmd := range commands {
		tu, err := w.opts.Frontend.Parse(ctx, cmd.Directory, cmd.File, cmd.Arguments)
		if err != nil {
			w.logf(logging.WarnLevel, "skipping unparseable TU", map[string]interface{}{"file": cmd.File, "error": err.Error()})
			continue
		}
		owned := map[string]bool{tu.MainFile(): true}
		result, err := tuindex.Walk(ctx, tu, w.opts.ProjectRoot, owned, tuindex.DefaultSymbolFormatter{}, w.opts.Deterministic)
		if err != nil {
			w.reportParseDiagnostic(cmd.File, "indexing", err)
		}
		builder.AddShard(&result.DocsAndExternals)
		builder.AddForwardDecls(&result.ForwardDecls)
	}
	builder.ResolveForwardDecls()
	index := builder.Finalize(defaultMetadata(w.opts.ProjectRoot))
	data, err := proto.Marshal(index)
	if err != nil {
		return ierrors.Wrap(ierrors.InvariantViolation, "worker", "marshaling final index", err)
	}
	if err := os.WriteFile(w.opts.IndexOutputPath, data, 0o644); err != nil {
		return ierrors.Wrap(ierrors.ConfigError, "worker", fmt.Sprintf("writing %s", w.opts.IndexOutputPath), err)
	}
	return nil
}

// defaultMetadata builds the scip.Index metadata for the one-shot Compdb
// mode, where there is no driver around to assemble it from CLI options.
func defaultMetadata(root paths.RootPath) *scippb.Metadata {
	return &scippb.Metadata{
		Version:              scippb.ProtocolVersion_UnspecifiedProtocolVersion,
		ToolInfo:             &scippb.ToolInfo{Name: "scip-clang-go", Version: version.Version},
		ProjectRoot:          "file://" + root.String(),
		TextDocumentEncoding: scippb.TextEncoding_UTF8,
	}
}

// ProcessTranslationUnit parses one TU and runs the indexing walk with
// only its main file owned, for direct calls from test code (Worker.h's
// testing-only processTranslationUnit), without any IPC or compdb loop
// around it. No Phase A hashing is done.
func (w *Worker) ProcessTranslationUnit(ctx context.Context, details ipc.SemanticAnalysisJobDetails) (tuindex.Result, error) {
	tu, err := w.opts.Frontend.Parse(ctx, details.Command.Directory, details.Command.File, details.Command.Arguments)
	if err != nil {
		return tuindex.Result{}, err
	}
	owned := map[string]bool{tu.MainFile(): true}
	return tuindex.Walk(ctx, tu, w.opts.ProjectRoot, owned, tuindex.DefaultSymbolFormatter{}, w.opts.Deterministic)
}
