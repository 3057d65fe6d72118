package worker

import (
	"github.com/scip-clang-go/scip-clang-go/internal/frontend"
	"github.com/scip-clang-go/scip-clang-go/internal/history"
	"github.com/scip-clang-go/scip-clang-go/internal/tuindex"
)

// recordingObserver forwards every preprocessor event to inner (the real
// indexing collaborator) and, in parallel, to a history.Recorder so that
// --preprocessor-record-history-filter sees exactly what the indexer saw,
// with FileID resolved to an absolute path via files (Worker.h's
// PreprocessorHistoryRecorder is wired into the same preprocessor
// callbacks the indexing consumer uses, not a separate pass).
type recordingObserver struct {
	inner frontend.PreprocessorObserver
	files *tuindex.FileTable
	rec   *history.Recorder
}

func newRecordingObserver(inner frontend.PreprocessorObserver, files *tuindex.FileTable, rec *history.Recorder) frontend.PreprocessorObserver {
	if rec == nil {
		return inner
	}
	return &recordingObserver{inner: inner, files: files, rec: rec}
}

func (o *recordingObserver) OnFileEnter(file frontend.FileID, absolutePath string) {
	o.inner.OnFileEnter(file, absolutePath)
	o.rec.RecordFileEnter(absolutePath)
}

func (o *recordingObserver) OnFileExit(file frontend.FileID) {
	o.inner.OnFileExit(file)
	if path, ok := o.files.Resolve(file); ok {
		o.rec.RecordFileExit(path)
	}
}

func (o *recordingObserver) OnInclude(file frontend.FileID, directiveRange frontend.SourceRange, resolvedAbsolutePath string) {
	o.inner.OnInclude(file, directiveRange, resolvedAbsolutePath)
}

func (o *recordingObserver) OnMacroDefine(file frontend.FileID, name string, def frontend.MacroDefID) {
	o.inner.OnMacroDefine(file, name, def)
}

func (o *recordingObserver) OnMacroUndef(file frontend.FileID, name string, def frontend.MacroDefID) {
	o.inner.OnMacroUndef(file, name, def)
}

func (o *recordingObserver) OnMacroExpansion(file frontend.FileID, occurrenceRange frontend.SourceRange, def frontend.MacroDefID, role frontend.MacroRole) {
	o.inner.OnMacroExpansion(file, occurrenceRange, def, role)
	if path, ok := o.files.Resolve(file); ok {
		o.rec.RecordMacroExpansion(path, occurrenceRange, def)
	}
}
