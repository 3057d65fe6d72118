package tuindex

import (
	"testing"

	"github.com/scip-clang-go/scip-clang-go/internal/frontend"
)

func TestFormatSymbolIsDeterministicPerDeclarationIdentity(t *testing.T) {
	f := DefaultSymbolFormatter{}
	node := frontend.ASTNode{Kind: frontend.FunctionNode, Name: "f"}

	a := f.FormatSymbol(nil, "a.cc", node)
	b := f.FormatSymbol(nil, "a.cc", node)
	if a != b {
		t.Errorf("expected identical symbol for identical input, got %q vs %q", a, b)
	}
}

func TestFormatSymbolDiffersByKindSuffix(t *testing.T) {
	f := DefaultSymbolFormatter{}
	fn := f.FormatSymbol(nil, "a.cc", frontend.ASTNode{Kind: frontend.FunctionNode, Name: "x"})
	rec := f.FormatSymbol(nil, "a.cc", frontend.ASTNode{Kind: frontend.RecordNode, Name: "x"})
	if fn == rec {
		t.Error("expected function and record descriptors to differ")
	}
}

func TestFormatSymbolIncludesScope(t *testing.T) {
	f := DefaultSymbolFormatter{}
	withScope := f.FormatSymbol([]string{"outer"}, "a.cc", frontend.ASTNode{Kind: frontend.FunctionNode, Name: "f"})
	withoutScope := f.FormatSymbol(nil, "a.cc", frontend.ASTNode{Kind: frontend.FunctionNode, Name: "f"})
	if withScope == withoutScope {
		t.Error("expected enclosing scope to change the formatted symbol")
	}
}
