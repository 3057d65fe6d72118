package tuindex

import "github.com/scip-clang-go/scip-clang-go/internal/frontend"

// FileTable records the FileID -> absolute path mapping a front-end
// reports via OnFileEnter, so that both the macro indexer and the TU
// indexer can translate an opaque frontend.FileID back to a real path
// without the front-end needing to thread that mapping through every
// callback (spec §9 "treat them as arena indices inside one TU; always
// translate to absolute path + stable file id before crossing a TU
// boundary").
type FileTable struct {
	paths map[frontend.FileID]string
}

// NewFileTable creates an empty table.
func NewFileTable() *FileTable {
	return &FileTable{paths: make(map[frontend.FileID]string)}
}

// OnFileEnter implements the file-enter half of frontend.PreprocessorObserver.
func (t *FileTable) OnFileEnter(file frontend.FileID, absolutePath string) {
	t.paths[file] = absolutePath
}

// OnFileExit implements the file-exit half of frontend.PreprocessorObserver;
// the table keeps entries for the whole TU walk, so there is nothing to do.
func (t *FileTable) OnFileExit(frontend.FileID) {}

// Resolve returns the absolute path for file, if it has been entered.
func (t *FileTable) Resolve(file frontend.FileID) (string, bool) {
	p, ok := t.paths[file]
	return p, ok
}

// All returns every FileID this table has seen, for callers (e.g. a Phase
// A worker hashing each observed header) that need to enumerate the whole
// TU after the walk completes.
func (t *FileTable) All() map[frontend.FileID]string {
	out := make(map[frontend.FileID]string, len(t.paths))
	for id, p := range t.paths {
		out[id] = p
	}
	return out
}

// NoopVisitor implements frontend.ASTVisitor by ignoring every node, for
// passes that only need the preprocessor stream (Phase A's hashing walk
// has no use for the AST).
type NoopVisitor struct{}

// VisitNode implements frontend.ASTVisitor.
func (NoopVisitor) VisitNode(frontend.ASTNode) error { return nil }
