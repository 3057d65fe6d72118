// Package frontend declares the compiler front-end abstraction the TU
// indexer (internal/tuindex) is written against: a preprocessor observer
// and an AST visitor over a fixed node-kind vocabulary (spec §4.2), plus
// the opaque per-TU identity types spec §9 calls for ("Opaque file ids":
// treat them as arena indices inside one TU; "Interned pointers as
// identity": an arena of macro-definition records and an index-handle
// newtype). The concrete implementation in treesitter.go is a stand-in
// parser front-end; see its doc comment for the fidelity tradeoffs that
// implies.
package frontend

import "context"

// FileID is an arena index identifying one file within a single TU's
// parse. It has no meaning across TUs; callers must translate to a
// stable identity (internal/paths.StableFileId) before crossing a TU
// boundary (spec §9).
type FileID int32

// MacroDefID is an arena index identifying one macro definition's
// identity over a TU's lifetime, standing in for the original's
// MacroInfo* pointer equality (spec §9).
type MacroDefID int32

// SourceRange is a half-open [start, end) range within one file, using
// 0-based line/column numbers in the SCIP convention (spec §3).
type SourceRange struct {
	StartLine, StartColumn int32
	EndLine, EndColumn     int32
}

// AsArray returns the range in the [4]int32 shape scip.Occurrence.Range
// and scipext.OccurrenceExt.Range expect.
func (r SourceRange) AsArray() [4]int32 {
	return [4]int32{r.StartLine, r.StartColumn, r.EndLine, r.EndColumn}
}

// MacroRole is the role of one macro occurrence (spec §4.2.1).
type MacroRole int

const (
	MacroDefinition MacroRole = iota
	MacroReference
)

// PreprocessorObserver receives preprocessor-stream events during a TU
// parse (spec §4.2: "file-enter/file-exit events, #include resolution
// events ..., macro define/undef events, and macro expansion events").
type PreprocessorObserver interface {
	OnFileEnter(file FileID, absolutePath string)
	OnFileExit(file FileID)
	OnInclude(file FileID, directiveRange SourceRange, resolvedAbsolutePath string)
	OnMacroDefine(file FileID, name string, def MacroDefID)
	OnMacroUndef(file FileID, name string, def MacroDefID)
	OnMacroExpansion(file FileID, occurrenceRange SourceRange, def MacroDefID, role MacroRole)
}

// NodeKind is the fixed vocabulary of AST node kinds the visitor walks
// (spec §4.2: "namespaces, records, functions, fields, enums,
// enumerators, typedefs, template parameters and specializations, member
// expressions, declaration references, nested-name-specifiers, tag
// type-locations").
type NodeKind int

const (
	NamespaceNode NodeKind = iota
	RecordNode
	FunctionNode
	FieldNode
	EnumNode
	EnumeratorNode
	TypedefNode
	TemplateParameterNode
	TemplateSpecializationNode
	MemberExpressionNode
	DeclRefNode
	NestedNameSpecifierNode
	TagTypeLocNode
)

// String names the node kind for diagnostics and history logs.
func (k NodeKind) String() string {
	switch k {
	case NamespaceNode:
		return "namespace"
	case RecordNode:
		return "record"
	case FunctionNode:
		return "function"
	case FieldNode:
		return "field"
	case EnumNode:
		return "enum"
	case EnumeratorNode:
		return "enumerator"
	case TypedefNode:
		return "typedef"
	case TemplateParameterNode:
		return "template_parameter"
	case TemplateSpecializationNode:
		return "template_specialization"
	case MemberExpressionNode:
		return "member_expression"
	case DeclRefNode:
		return "decl_ref"
	case NestedNameSpecifierNode:
		return "nested_name_specifier"
	case TagTypeLocNode:
		return "tag_type_loc"
	default:
		return "unknown"
	}
}

// ASTNode is one visited node, already resolved to its expansion range
// (spec §4.2.2 item 1: macro-expansion locations mapped to the spelling
// location in a user-written argument, else the invocation site).
type ASTNode struct {
	Kind NodeKind
	// File is the file the node's expansion range lies in.
	File FileID
	// Range is the node's expansion range within File.
	Range SourceRange
	// Name is the node's unqualified spelling, used by the symbol
	// formatter together with enclosing-scope context tracked by the
	// visitor driver.
	Name string
	// IsDefinition reports whether this occurrence is the node's defining
	// occurrence (has a body, or is a variable/field with an initializer,
	// per the front-end's own rules).
	IsDefinition bool
	// IsForwardDeclaration reports whether this is a record/enum with no
	// definition body, or a function declaration with no body (spec
	// §4.2.2 item 5).
	IsForwardDeclaration bool
	// DocComment is the comment immediately preceding the node, if any.
	DocComment []string
	// Children are nested nodes relevant to the parent's own indexing
	// (e.g. a RecordNode's FieldNodes, a FunctionNode's nested-name
	// components), walked depth-first by the driver.
	Children []ASTNode
}

// ASTVisitor receives one call per visited node in declaration order
// (spec §5 "within one TU, AST visit order is the parser's declaration
// order").
type ASTVisitor interface {
	VisitNode(node ASTNode) error
}

// TranslationUnit is a single parsed compile command, ready to be walked.
type TranslationUnit interface {
	// MainFile is the absolute path of the TU's primary source file.
	MainFile() string
	// Walk drives obs and visitor over the parsed preprocessor stream and
	// AST. It returns once the whole TU (main file and every transitively
	// included header) has been visited.
	Walk(ctx context.Context, obs PreprocessorObserver, visitor ASTVisitor) error
}

// Frontend parses one compile command into a TranslationUnit. Out of
// scope per spec §1: "the C/C++ parser itself (assumed: a compiler
// front-end library exposing AST visitation, preprocessor callbacks,
// source locations, and a compilation database)" — Frontend is the
// injected boundary for that assumption.
type Frontend interface {
	Parse(ctx context.Context, directory, file string, arguments []string) (TranslationUnit, error)
}
