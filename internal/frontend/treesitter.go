package frontend

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

// TreeSitterFrontend is a stand-in Frontend backed by tree-sitter's C++
// grammar, adapted from the multi-language parser wrapper this module's
// complexity analyzer used to carry (one sitter.Parser, SetLanguage,
// ParseCtx, walk the resulting tree). Tree-sitter is a pure syntactic
// parser: it performs no real preprocessing (no macro expansion, no
// conditional-compilation evaluation, no #include file resolution) and
// no semantic analysis (no type checking, no overload resolution, no
// template instantiation). Consequently:
//
//   - Preprocessor events are approximated from the syntax of
//     preproc_include/preproc_def/preproc_undef nodes, not from an actual
//     preprocessor pass; conditional branches are not filtered, so both
//     arms of an #ifdef are visited.
//   - "Macro expansion" events fire only when a bare identifier textually
//     matches a macro name already seen via preproc_def in the same file;
//     this cannot detect expansions coming from a different file's -D
//     flag or from builtins.
//   - #include targets are recorded as the literal include-directive text
//     (already-resolved absolute paths are not available without a real
//     include-search implementation), which callers needing absolute
//     paths must resolve themselves.
//
// This is a deliberate scope boundary, not an oversight: spec §1 places
// "the C/C++ parser itself ... exposing AST visitation, preprocessor
// callbacks, source locations" out of scope as an assumed external
// collaborator. TreeSitterFrontend is the concrete stand-in for that
// collaborator in this module, not a claim of clang-equivalent fidelity.
type TreeSitterFrontend struct {
	parser *sitter.Parser
}

// NewTreeSitterFrontend creates a front-end for C/C++ translation units.
func NewTreeSitterFrontend() *TreeSitterFrontend {
	p := sitter.NewParser()
	p.SetLanguage(cpp.GetLanguage())
	return &TreeSitterFrontend{parser: p}
}

// Parse reads and parses file, ignoring directory/arguments: tree-sitter
// needs neither the working directory nor compiler flags to produce a
// syntax tree (no -I/-D handling, per the fidelity note above).
func (f *TreeSitterFrontend) Parse(ctx context.Context, directory, file string, arguments []string) (TranslationUnit, error) {
	source, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("frontend: cannot read %s: %w", file, err)
	}
	tree, err := f.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("frontend: parse error in %s: %w", file, err)
	}
	return &treeSitterTU{mainFile: file, source: source, tree: tree}, nil
}

type treeSitterTU struct {
	mainFile string
	source   []byte
	tree     *sitter.Tree
}

func (tu *treeSitterTU) MainFile() string { return tu.mainFile }

func (tu *treeSitterTU) Walk(ctx context.Context, obs PreprocessorObserver, visitor ASTVisitor) error {
	files := newFileArena()
	macros := newMacroArena()

	mainID := files.intern(tu.mainFile)
	obs.OnFileEnter(mainID, tu.mainFile)
	defer obs.OnFileExit(mainID)

	w := &walker{
		source:  tu.source,
		file:    mainID,
		macros:  macros,
		obs:     obs,
		visitor: visitor,
	}
	return w.walk(ctx, tu.tree.RootNode())
}

// fileArena hands out stable FileIDs for the duration of one TU walk
// (spec §9: "treat them as arena indices inside one TU").
type fileArena struct {
	ids  map[string]FileID
	next FileID
}

func newFileArena() *fileArena { return &fileArena{ids: make(map[string]FileID)} }

func (a *fileArena) intern(path string) FileID {
	if id, ok := a.ids[path]; ok {
		return id
	}
	id := a.next
	a.next++
	a.ids[path] = id
	return id
}

// macroArena hands out stable MacroDefIDs per macro name observed in a
// TU, standing in for the original's MacroInfo* pointer identity (spec
// §9).
type macroArena struct {
	ids  map[string]MacroDefID
	next MacroDefID
}

func newMacroArena() *macroArena { return &macroArena{ids: make(map[string]MacroDefID)} }

func (a *macroArena) intern(name string) MacroDefID {
	if id, ok := a.ids[name]; ok {
		return id
	}
	id := a.next
	a.next++
	a.ids[name] = id
	return id
}

func (a *macroArena) lookup(name string) (MacroDefID, bool) {
	id, ok := a.ids[name]
	return id, ok
}

// walker recursively visits a tree-sitter-cpp syntax tree, dispatching
// preprocessor-ish nodes to obs and declaration/expression nodes to
// visitor, in declaration order (spec §5).
type walker struct {
	source  []byte
	file    FileID
	macros  *macroArena
	obs     PreprocessorObserver
	visitor ASTVisitor
}

func (w *walker) text(n *sitter.Node) string {
	return string(w.source[n.StartByte():n.EndByte()])
}

func (w *walker) rangeOf(n *sitter.Node) SourceRange {
	start, end := n.StartPoint(), n.EndPoint()
	return SourceRange{
		StartLine:   int32(start.Row),
		StartColumn: int32(start.Column),
		EndLine:     int32(end.Row),
		EndColumn:   int32(end.Column),
	}
}

// docComment returns the text of a comment node immediately preceding n,
// if any, split into lines.
func (w *walker) docComment(n *sitter.Node) []string {
	prev := n.PrevSibling()
	if prev == nil || prev.Type() != "comment" {
		return nil
	}
	text := w.text(prev)
	text = strings.TrimPrefix(text, "/**")
	text = strings.TrimPrefix(text, "/*")
	text = strings.TrimSuffix(text, "*/")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func (w *walker) walk(ctx context.Context, n *sitter.Node) error {
	if n == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	switch n.Type() {
	case "preproc_include":
		return w.visitInclude(n)
	case "preproc_def", "preproc_function_def":
		return w.visitMacroDef(n)
	case "preproc_undef":
		return w.visitMacroUndef(n)
	case "identifier":
		if id, ok := w.macros.lookup(w.text(n)); ok {
			w.obs.OnMacroExpansion(w.file, w.rangeOf(n), id, MacroReference)
		}
	case "namespace_definition":
		return w.visitSimple(ctx, n, NamespaceNode, "namespace_identifier", true)
	case "struct_specifier", "class_specifier", "union_specifier":
		return w.visitRecord(ctx, n)
	case "function_definition":
		return w.visitFunction(ctx, n, true)
	case "field_declaration":
		return w.visitField(ctx, n)
	case "enum_specifier":
		return w.visitRecord(ctx, n) // enum shares the has-body-or-not shape
	case "enumerator":
		return w.visitSimple(ctx, n, EnumeratorNode, "identifier", true)
	case "type_definition":
		return w.visitTypedef(ctx, n)
	case "template_instantiation", "template_function":
		return w.visitSimple(ctx, n, TemplateSpecializationNode, "", true)
	case "field_expression":
		return w.visitMemberExpression(ctx, n)
	case "qualified_identifier":
		return w.visitNestedNameSpecifier(ctx, n)
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		if err := w.walk(ctx, n.Child(i)); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) visitInclude(n *sitter.Node) error {
	pathNode := n.ChildByFieldName("path")
	if pathNode == nil {
		return nil
	}
	raw := strings.Trim(w.text(pathNode), "\"<>")
	w.obs.OnInclude(w.file, w.rangeOf(n), raw)
	return nil
}

func (w *walker) visitMacroDef(n *sitter.Node) error {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := w.text(nameNode)
	id := w.macros.intern(name)
	w.obs.OnMacroDefine(w.file, name, id)
	w.obs.OnMacroExpansion(w.file, w.rangeOf(nameNode), id, MacroDefinition)
	return nil
}

func (w *walker) visitMacroUndef(n *sitter.Node) error {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := w.text(nameNode)
	id := w.macros.intern(name)
	w.obs.OnMacroUndef(w.file, name, id)
	return nil
}

// visitSimple handles node kinds whose only interesting structure is a
// name child and a definitely-a-definition flag, recursing into children
// afterward so nested declarations are still walked.
func (w *walker) visitSimple(ctx context.Context, n *sitter.Node, kind NodeKind, nameChildType string, isDefinition bool) error {
	name := childText(w, n, nameChildType)
	node := ASTNode{
		Kind:         kind,
		File:         w.file,
		Range:        w.rangeOf(n),
		Name:         name,
		IsDefinition: isDefinition,
		DocComment:   w.docComment(n),
	}
	if err := w.visitor.VisitNode(node); err != nil {
		return err
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if err := w.walk(ctx, n.Child(i)); err != nil {
			return err
		}
	}
	return nil
}

func childText(w *walker, n *sitter.Node, childType string) string {
	if childType == "" {
		return w.text(n)
	}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		return w.text(nameNode)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c.Type() == childType {
			return w.text(c)
		}
	}
	return ""
}

func (w *walker) visitRecord(ctx context.Context, n *sitter.Node) error {
	name := childText(w, n, "type_identifier")
	bodyNode := n.ChildByFieldName("body")
	isDefinition := bodyNode != nil
	kind := RecordNode
	if n.Type() == "enum_specifier" {
		kind = EnumNode
	}
	node := ASTNode{
		Kind:                 kind,
		File:                 w.file,
		Range:                w.rangeOf(n),
		Name:                 name,
		IsDefinition:         isDefinition,
		IsForwardDeclaration: !isDefinition,
		DocComment:           w.docComment(n),
	}
	if err := w.visitor.VisitNode(node); err != nil {
		return err
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if err := w.walk(ctx, n.Child(i)); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) visitFunction(ctx context.Context, n *sitter.Node, isDefinition bool) error {
	declarator := n.ChildByFieldName("declarator")
	name := ""
	if declarator != nil {
		name = functionNameOf(w, declarator)
	}
	node := ASTNode{
		Kind:         FunctionNode,
		File:         w.file,
		Range:        w.rangeOf(n),
		Name:         name,
		IsDefinition: isDefinition,
		DocComment:   w.docComment(n),
	}
	if err := w.visitor.VisitNode(node); err != nil {
		return err
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if err := w.walk(ctx, n.Child(i)); err != nil {
			return err
		}
	}
	return nil
}

func functionNameOf(w *walker, declarator *sitter.Node) string {
	for declarator != nil && declarator.Type() != "identifier" && declarator.Type() != "field_identifier" {
		inner := declarator.ChildByFieldName("declarator")
		if inner == nil {
			break
		}
		declarator = inner
	}
	if declarator == nil {
		return ""
	}
	return w.text(declarator)
}

func (w *walker) visitField(ctx context.Context, n *sitter.Node) error {
	declarator := n.ChildByFieldName("declarator")
	name := ""
	if declarator != nil {
		name = functionNameOf(w, declarator)
	}
	node := ASTNode{
		Kind:         FieldNode,
		File:         w.file,
		Range:        w.rangeOf(n),
		Name:         name,
		IsDefinition: true,
		DocComment:   w.docComment(n),
	}
	if err := w.visitor.VisitNode(node); err != nil {
		return err
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if err := w.walk(ctx, n.Child(i)); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) visitTypedef(ctx context.Context, n *sitter.Node) error {
	name := ""
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c.Type() == "type_identifier" {
			name = w.text(c)
		}
	}
	node := ASTNode{
		Kind:         TypedefNode,
		File:         w.file,
		Range:        w.rangeOf(n),
		Name:         name,
		IsDefinition: true,
		DocComment:   w.docComment(n),
	}
	return w.visitor.VisitNode(node)
}

func (w *walker) visitMemberExpression(ctx context.Context, n *sitter.Node) error {
	fieldNode := n.ChildByFieldName("field")
	name := ""
	if fieldNode != nil {
		name = w.text(fieldNode)
	}
	node := ASTNode{
		Kind:  MemberExpressionNode,
		File:  w.file,
		Range: w.rangeOf(n),
		Name:  name,
	}
	if err := w.visitor.VisitNode(node); err != nil {
		return err
	}
	if arg := n.ChildByFieldName("argument"); arg != nil {
		return w.walk(ctx, arg)
	}
	return nil
}

// visitNestedNameSpecifier walks a qualified_identifier component by
// component, each producing a reference occurrence, leaving the leaf
// name to the owning expression/type-loc (spec §4.2.2 "Nested-name-
// specifiers are walked component-by-component").
func (w *walker) visitNestedNameSpecifier(ctx context.Context, n *sitter.Node) error {
	scopeNode := n.ChildByFieldName("scope")
	if scopeNode != nil {
		node := ASTNode{
			Kind:  NestedNameSpecifierNode,
			File:  w.file,
			Range: w.rangeOf(scopeNode),
			Name:  w.text(scopeNode),
		}
		if err := w.visitor.VisitNode(node); err != nil {
			return err
		}
	}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		return w.walk(ctx, nameNode)
	}
	return nil
}
