package tuindex

import (
	"fmt"
	"strings"

	"github.com/scip-clang-go/scip-clang-go/internal/frontend"
	"github.com/scip-clang-go/scip-clang-go/internal/scipext"
)

// SymbolFormatter formats a SCIP symbol name for one declaration,
// injected into the TU indexer (spec §4.2.2 item 2: "an injected symbol
// formatter (opaque; must be deterministic per declaration identity)").
type SymbolFormatter interface {
	FormatSymbol(scope []string, relativePath string, node frontend.ASTNode) scipext.SymbolName
}

// DefaultSymbolFormatter builds a SCIP symbol string out of the
// containing document's root-relative path, the enclosing-scope names,
// and the declaration's own name, with a descriptor suffix keyed by node
// kind following the SCIP package/descriptor convention (namespace and
// record-like kinds use a trailing '#', callables use '().', everything
// else a trailing '.').
//
// This is necessarily an approximation of a real symbol formatter: a
// full implementation needs semantic identity (overload resolution,
// template instantiation identity) that this module's tree-sitter-backed
// front-end does not have (see internal/frontend's fidelity note). The
// approximation keeps the spec's one hard requirement — deterministic per
// declaration identity, same name in, same symbol out — without claiming
// clang-equivalent disambiguation of redeclarations/overloads.
type DefaultSymbolFormatter struct{}

// FormatSymbol implements SymbolFormatter.
func (DefaultSymbolFormatter) FormatSymbol(scope []string, relativePath string, node frontend.ASTNode) scipext.SymbolName {
	parts := append(append([]string{}, scope...), node.Name)
	descriptor := strings.Join(parts, "::") + descriptorSuffix(node.Kind)
	return scipext.SymbolName(fmt.Sprintf("scip-clang cxx . . %s/%s", relativePath, descriptor))
}

func descriptorSuffix(kind frontend.NodeKind) string {
	switch kind {
	case frontend.FunctionNode:
		return "()."
	case frontend.NamespaceNode, frontend.RecordNode, frontend.EnumNode, frontend.TemplateSpecializationNode:
		return "#"
	case frontend.TemplateParameterNode:
		return "[]"
	default:
		return "."
	}
}
