package tuindex

import (
	"testing"

	"github.com/scip-clang-go/scip-clang-go/internal/frontend"
)

func TestMacroIndexerDedupesByRangeOnly(t *testing.T) {
	files := NewFileTable()
	m := NewMacroIndexer(files)
	m.OnFileEnter(0, "/a.cc")

	rng := frontend.SourceRange{StartLine: 1, StartColumn: 0, EndLine: 1, EndColumn: 3}
	m.OnMacroExpansion(0, rng, 5, frontend.MacroReference)
	m.OnMacroExpansion(0, rng, 5, frontend.MacroReference) // duplicate inner expansion

	occs := m.Occurrences(0, true)
	if len(occs) != 1 {
		t.Fatalf("expected 1 deduplicated occurrence, got %d", len(occs))
	}
}

func TestMacroIndexerOccurrencesSortedWhenDeterministic(t *testing.T) {
	files := NewFileTable()
	m := NewMacroIndexer(files)
	m.OnFileEnter(0, "/a.cc")

	m.OnMacroExpansion(0, frontend.SourceRange{StartLine: 5}, 1, frontend.MacroReference)
	m.OnMacroExpansion(0, frontend.SourceRange{StartLine: 1}, 2, frontend.MacroReference)

	occs := m.Occurrences(0, true)
	if len(occs) != 2 || occs[0].Range.StartLine != 1 {
		t.Errorf("expected sorted occurrences, got %+v", occs)
	}
}

func TestMacroIndexerCommandLineMacroBecomesNonFileBased(t *testing.T) {
	files := NewFileTable()
	m := NewMacroIndexer(files)
	m.RecordCommandLineMacro("NDEBUG", 42)

	ids := m.NonFileBasedMacros(true)
	if len(ids) != 1 || ids[0] != 42 {
		t.Errorf("expected [42], got %v", ids)
	}
	if name, ok := m.MacroName(42); !ok || name != "NDEBUG" {
		t.Errorf("MacroName(42) = (%q, %v), want (NDEBUG, true)", name, ok)
	}
}

func TestMacroIndexerRecordsIncludes(t *testing.T) {
	files := NewFileTable()
	m := NewMacroIndexer(files)
	m.OnFileEnter(0, "/a.cc")
	m.OnInclude(0, frontend.SourceRange{StartLine: 1}, "/h.h")

	incs := m.Includes(0)
	if len(incs) != 1 || incs[0].ResolvedAbsolutePath != "/h.h" {
		t.Errorf("expected 1 include to /h.h, got %+v", incs)
	}
}
