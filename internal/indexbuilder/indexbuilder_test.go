package indexbuilder

import (
	"testing"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"

	"github.com/scip-clang-go/scip-clang-go/internal/scipext"
)

func TestAddShardMergesDocumentsSharingPath(t *testing.T) {
	ib := New(true)

	ib.AddShard(&scipext.DocsAndExternalsShard{
		Documents: []scipext.DocumentFragment{{
			RelativePath: "h.h",
			Language:     "c++",
			Occurrences: []scipext.OccurrenceFragment{
				{Range: [4]int32{0, 0, 0, 3}, Symbol: "g", SymbolRoles: 1},
			},
		}},
	})
	ib.AddShard(&scipext.DocsAndExternalsShard{
		Documents: []scipext.DocumentFragment{{
			RelativePath: "h.h",
			Language:     "c++",
			Occurrences: []scipext.OccurrenceFragment{
				{Range: [4]int32{1, 0, 1, 3}, Symbol: "g", SymbolRoles: 8},
			},
		}},
	})

	if got := ib.Stats().Documents; got != 1 {
		t.Fatalf("expected 1 merged document, got %d", got)
	}
	idx := ib.Finalize(&scippb.Metadata{})
	if len(idx.Documents) != 1 || len(idx.Documents[0].Occurrences) != 2 {
		t.Fatalf("expected 1 document with 2 occurrences, got %+v", idx.Documents)
	}
}

func TestResolveForwardDeclsAttachesDocWhenCanonicalHasNone(t *testing.T) {
	ib := New(true)
	ib.AddShard(&scipext.DocsAndExternalsShard{
		Documents: []scipext.DocumentFragment{{
			RelativePath: "a.cc",
			Symbols: []scipext.SymbolFragment{
				{Symbol: "foo"},
			},
		}},
	})
	ib.AddForwardDecls(&scipext.ForwardDeclsShard{
		ForwardDecls: []scipext.ForwardDeclRecord{
			{Symbol: "foo", Documentation: []string{"forward doc"}},
		},
	})

	ib.ResolveForwardDecls()

	idx := ib.Finalize(&scippb.Metadata{})
	if len(idx.Documents[0].Symbols) != 1 {
		t.Fatalf("expected 1 symbol, got %d", len(idx.Documents[0].Symbols))
	}
	sym := idx.Documents[0].Symbols[0]
	if len(sym.Documentation) != 1 || sym.Documentation[0] != "forward doc" {
		t.Errorf("expected forward-decl documentation to attach, got %v", sym.Documentation)
	}
}

func TestResolveForwardDeclsDiscardsWhenCanonicalAlreadyDocumented(t *testing.T) {
	ib := New(true)
	ib.AddShard(&scipext.DocsAndExternalsShard{
		Documents: []scipext.DocumentFragment{{
			RelativePath: "a.cc",
			Symbols: []scipext.SymbolFragment{
				{Symbol: "foo", Documentation: []string{"canonical doc"}},
			},
		}},
	})
	ib.AddForwardDecls(&scipext.ForwardDeclsShard{
		ForwardDecls: []scipext.ForwardDeclRecord{
			{Symbol: "foo", Documentation: []string{"forward doc"}},
		},
	})

	ib.ResolveForwardDecls()

	idx := ib.Finalize(&scippb.Metadata{})
	sym := idx.Documents[0].Symbols[0]
	if sym.Documentation[0] != "canonical doc" {
		t.Errorf("expected canonical documentation to win, got %v", sym.Documentation)
	}
}

func TestResolveForwardDeclsWithNoCanonicalBecomesExternal(t *testing.T) {
	ib := New(true)
	ib.AddForwardDecls(&scipext.ForwardDeclsShard{
		ForwardDecls: []scipext.ForwardDeclRecord{
			{Symbol: "orphan", Documentation: []string{"orphan doc"}},
		},
	})

	ib.ResolveForwardDecls()

	if got := ib.Stats().ExternalSymbols; got != 1 {
		t.Fatalf("expected 1 external symbol, got %d", got)
	}
	idx := ib.Finalize(&scippb.Metadata{})
	if len(idx.ExternalSymbols) != 1 || idx.ExternalSymbols[0].Symbol != "orphan" {
		t.Errorf("expected orphan forward-decl as external symbol, got %+v", idx.ExternalSymbols)
	}
}

func TestMergeExternalSymbolsUnionsRelationships(t *testing.T) {
	ib := New(true)
	ib.AddShard(&scipext.DocsAndExternalsShard{
		ExternalSymbols: []scipext.SymbolFragment{
			{Symbol: "ext", Relationships: []scipext.RelationshipFragment{
				{Symbol: "base1", IsImplementation: true},
			}},
		},
	})
	ib.AddShard(&scipext.DocsAndExternalsShard{
		ExternalSymbols: []scipext.SymbolFragment{
			{Symbol: "ext", Relationships: []scipext.RelationshipFragment{
				{Symbol: "base2", IsImplementation: true},
			}},
		},
	})

	idx := ib.Finalize(&scippb.Metadata{})
	if len(idx.ExternalSymbols) != 1 {
		t.Fatalf("expected 1 external symbol, got %d", len(idx.ExternalSymbols))
	}
	if len(idx.ExternalSymbols[0].Relationships) != 2 {
		t.Errorf("expected 2 unioned relationships, got %d", len(idx.ExternalSymbols[0].Relationships))
	}
}
