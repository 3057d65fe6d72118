package worker

import (
	"context"
	"testing"

	"github.com/scip-clang-go/scip-clang-go/internal/frontend"
	"github.com/scip-clang-go/scip-clang-go/internal/ipc"
	"github.com/scip-clang-go/scip-clang-go/internal/paths"
	"github.com/scip-clang-go/scip-clang-go/internal/tuindex"
)

// stubTU is a minimal frontend.TranslationUnit for worker-level tests that
// don't need a real parser.
type stubTU struct {
	mainFile string
	nodes    []frontend.ASTNode
}

func (s stubTU) MainFile() string { return s.mainFile }

func (s stubTU) Walk(ctx context.Context, obs frontend.PreprocessorObserver, visitor frontend.ASTVisitor) error {
	obs.OnFileEnter(0, s.mainFile)
	for _, n := range s.nodes {
		if err := visitor.VisitNode(n); err != nil {
			return err
		}
	}
	obs.OnFileExit(0)
	return nil
}

type stubFrontend struct {
	tu  frontend.TranslationUnit
	err error
}

func (f stubFrontend) Parse(ctx context.Context, directory, file string, arguments []string) (frontend.TranslationUnit, error) {
	return f.tu, f.err
}

func newTestWorker(t *testing.T, tu frontend.TranslationUnit) *Worker {
	t.Helper()
	root, err := paths.NewRootPath("/proj")
	if err != nil {
		t.Fatalf("NewRootPath: %v", err)
	}
	return New(Options{
		ProjectRoot:        root,
		Mode:               ModeTesting,
		Deterministic:      true,
		TemporaryOutputDir: t.TempDir(),
		Frontend:           stubFrontend{tu: tu},
	})
}

func TestProcessTranslationUnitRecordsOwnedSymbol(t *testing.T) {
	tu := stubTU{
		mainFile: "/proj/a.cc",
		nodes: []frontend.ASTNode{
			{Kind: frontend.FunctionNode, File: 0, Name: "f", IsDefinition: true},
		},
	}
	w := newTestWorker(t, tu)

	result, err := w.ProcessTranslationUnit(context.Background(), ipc.SemanticAnalysisJobDetails{})
	if err != nil {
		t.Fatalf("ProcessTranslationUnit: %v", err)
	}
	if len(result.DocsAndExternals.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(result.DocsAndExternals.Documents))
	}
}

func TestFaultInjectorCrashOnceFiresOnlyOnce(t *testing.T) {
	var calls int
	f := NewFaultInjector(FaultCrashOnce, func(int) { calls++ })
	f.MaybeCrash()
	f.MaybeCrash()
	if calls != 1 {
		t.Errorf("expected exactly 1 crash, got %d", calls)
	}
}

func TestFaultInjectorCrashAlwaysFiresEveryTime(t *testing.T) {
	var calls int
	f := NewFaultInjector(FaultCrashAlways, func(int) { calls++ })
	f.MaybeCrash()
	f.MaybeCrash()
	if calls != 2 {
		t.Errorf("expected 2 crashes, got %d", calls)
	}
}

func TestFaultInjectorNoneNeverCrashes(t *testing.T) {
	var calls int
	f := NewFaultInjector(FaultNone, func(int) { calls++ })
	f.MaybeCrash()
	if calls != 0 {
		t.Errorf("expected no crash, got %d calls", calls)
	}
}

func TestParseFault(t *testing.T) {
	for _, s := range []string{"", "none", "crash-once", "crash-always", "hang", "malformed-message"} {
		if _, ok := ParseFault(s); !ok {
			t.Errorf("ParseFault(%q) should be valid", s)
		}
	}
	if _, ok := ParseFault("bogus"); ok {
		t.Error("ParseFault(\"bogus\") should be invalid")
	}
}

func TestHashFileIsStableAcrossCalls(t *testing.T) {
	files := tuindex.NewFileTable()
	macros := tuindex.NewMacroIndexer(files)
	macros.OnFileEnter(0, "/proj/h.h")
	macros.OnMacroExpansion(0, frontend.SourceRange{StartLine: 1}, 7, frontend.MacroReference)

	a := hashFile(macros, 0, true)
	b := hashFile(macros, 0, true)
	if a != b {
		t.Errorf("hashFile is not stable: %v != %v", a, b)
	}
}
