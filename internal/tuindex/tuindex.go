// Package tuindex implements the per-worker TU indexer (C3, spec §4.2):
// MacroIndexer drives macro/include bookkeeping off
// internal/frontend.PreprocessorObserver, and TuIndexer drives symbol
// occurrence/symbol-information emission off
// internal/frontend.ASTVisitor, accumulating into
// internal/scipext.DocumentBuilder per root-relative path plus external
// symbols and forward declarations. Grounded on
// original_source/indexer/Indexer.h.
package tuindex

import (
	"context"

	"github.com/scip-clang-go/scip-clang-go/internal/frontend"
	"github.com/scip-clang-go/scip-clang-go/internal/paths"
	"github.com/scip-clang-go/scip-clang-go/internal/scipext"
)

// Role bits, matching the SCIP symbol-role bitmask convention the final
// wire format uses (only the bit this module needs).
const (
	roleDefinition int32 = 1
	roleReference  int32 = 0
)

// TuIndexer accumulates SCIP data for one TU's AST walk (spec §4.2.2),
// implementing frontend.ASTVisitor. It only records occurrences for files
// in filesToIndex (the set Phase B assigned this task, spec §4.5); nodes
// in other files become external symbols (if a definition) or are
// skipped, per spec §4.2.2 item 1.
type TuIndexer struct {
	files         *FileTable
	macros        *MacroIndexer
	root          paths.RootPath
	filesToIndex  map[string]bool
	formatter     SymbolFormatter
	deterministic bool

	documents       map[string]*scipext.DocumentBuilder
	externalSymbols map[scipext.SymbolName]*scipext.SymbolInformationBuilder
	forwardDecls    []scipext.ForwardDeclRecord
	includeSymbols  map[string]scipext.SymbolName // absolute path -> synthetic file-definition symbol
}

// NewTuIndexer creates a TU indexer. filesToIndex holds the absolute
// paths this task owns for this TU (spec §4.4 step 5's "files_to_be_
// indexed"); the main source file must be included by the caller (spec
// §4.4 step 4: "Include the TU's own main source file implicitly").
func NewTuIndexer(files *FileTable, macros *MacroIndexer, root paths.RootPath, filesToIndex map[string]bool, formatter SymbolFormatter, deterministic bool) *TuIndexer {
	return &TuIndexer{
		files:           files,
		macros:          macros,
		root:            root,
		filesToIndex:    filesToIndex,
		formatter:       formatter,
		deterministic:   deterministic,
		documents:       make(map[string]*scipext.DocumentBuilder),
		externalSymbols: make(map[scipext.SymbolName]*scipext.SymbolInformationBuilder),
		includeSymbols:  make(map[string]scipext.SymbolName),
	}
}

func (t *TuIndexer) relativeOrEmpty(absolutePath string) (string, bool) {
	abs, err := paths.NewAbsolutePath(absolutePath)
	if err != nil {
		return "", false
	}
	rel, ok := paths.Relativize(t.root, abs)
	if !ok {
		return "", false
	}
	return rel.String(), true
}

func (t *TuIndexer) documentFor(relativePath string) *scipext.DocumentBuilder {
	d, ok := t.documents[relativePath]
	if !ok {
		d = scipext.NewDocumentBuilder(relativePath, "c++")
		t.documents[relativePath] = d
	}
	return d
}

func (t *TuIndexer) externalSymbolFor(name scipext.SymbolName) *scipext.SymbolInformationBuilder {
	b, ok := t.externalSymbols[name]
	if !ok {
		b = scipext.NewSymbolInformationBuilder(name)
		t.externalSymbols[name] = b
	}
	return b
}

// syntheticFileSymbol returns (creating if needed) the fake "file
// definition" symbol for absolutePath, used as the go-to-definition
// target for #include directives (spec supplement §12.1, grounded on
// Indexer.h's saveSyntheticFileDefinition/saveInclude).
func (t *TuIndexer) syntheticFileSymbol(absolutePath string) scipext.SymbolName {
	if name, ok := t.includeSymbols[absolutePath]; ok {
		return name
	}
	rel, owned := t.relativeOrEmpty(absolutePath)
	var name scipext.SymbolName
	if owned {
		name = scipext.SymbolName("scip-clang cxx . . " + rel + "`<file>`.")
	} else {
		name = scipext.SymbolName("scip-clang cxx . . " + absolutePath + "`<file>`.")
	}
	t.includeSymbols[absolutePath] = name
	return name
}

// saveSyntheticFileDefinition emits the fake definition occurrence/symbol
// info for one header, named to mirror Indexer.h's method of the same
// name (spec supplement §12.1).
func (t *TuIndexer) saveSyntheticFileDefinition(absolutePath string) {
	rel, owned := t.relativeOrEmpty(absolutePath)
	if !owned {
		return
	}
	name := t.syntheticFileSymbol(absolutePath)
	doc := t.documentFor(rel)
	doc.AddOccurrence(scipext.OccurrenceExt{
		Range:       frontend.SourceRange{}.AsArray(),
		Symbol:      name,
		SymbolRoles: roleDefinition,
	})
	doc.SymbolBuilder(name)
}

// saveInclude emits a reference to the fake file-definition symbol at the
// #include directive's range, named to mirror Indexer.h's saveInclude
// (spec supplement §12.1).
func (t *TuIndexer) saveInclude(containingFile string, directive IncludeDirective) {
	rel, owned := t.relativeOrEmpty(containingFile)
	if !owned {
		return
	}
	t.saveSyntheticFileDefinition(directive.ResolvedAbsolutePath)
	name := t.syntheticFileSymbol(directive.ResolvedAbsolutePath)
	doc := t.documentFor(rel)
	doc.AddOccurrence(scipext.OccurrenceExt{
		Range:       directive.Range.AsArray(),
		Symbol:      name,
		SymbolRoles: roleReference,
	})
}

// EmitIncludes walks every #include directive the macro indexer recorded
// for file and saves the corresponding synthetic reference/definition
// pair. Callers invoke this once per owned file after the AST walk
// completes, since include directives are reported via the preprocessor
// observer rather than the AST visitor.
func (t *TuIndexer) EmitIncludes(file frontend.FileID) {
	absolutePath, ok := t.files.Resolve(file)
	if !ok {
		return
	}
	for _, inc := range t.macros.Includes(file) {
		t.saveInclude(absolutePath, inc)
	}
}

// EmitMacroOccurrences folds the macro indexer's recorded occurrences for
// file into that file's document, once file has been fully processed.
func (t *TuIndexer) EmitMacroOccurrences(file frontend.FileID) {
	absolutePath, ok := t.files.Resolve(file)
	if !ok {
		return
	}
	rel, owned := t.relativeOrEmpty(absolutePath)
	if !owned {
		return
	}
	doc := t.documentFor(rel)
	for _, occ := range t.macros.Occurrences(file, t.deterministic) {
		name, ok := t.macros.MacroName(occ.Def)
		if !ok {
			continue
		}
		symbol := scipext.SymbolName("scip-clang cxx . . " + rel + "/" + name + "!")
		roles := roleReference
		if occ.Role == frontend.MacroDefinition {
			roles = roleDefinition
			doc.SymbolBuilder(symbol)
		}
		doc.AddOccurrence(scipext.OccurrenceExt{
			Range:       occ.Range.AsArray(),
			Symbol:      symbol,
			SymbolRoles: int32(roles),
		})
	}
}

// VisitNode implements frontend.ASTVisitor, applying the tie-break
// policies of spec §4.2.2.
func (t *TuIndexer) VisitNode(node frontend.ASTNode) error {
	if node.Name == "" {
		return nil
	}
	absolutePath, ok := t.files.Resolve(node.File)
	if !ok {
		return nil
	}
	rel, owned := t.relativeOrEmpty(absolutePath)

	if !t.filesToIndex[absolutePath] || !owned {
		// Not recorded locally: becomes an external symbol if it is a
		// definition, otherwise skipped entirely (spec §4.2.2 item 1).
		if node.IsDefinition && !node.IsForwardDeclaration {
			symbol := t.formatter.FormatSymbol(nil, "<external>", node)
			b := t.externalSymbolFor(symbol)
			b.DisplayName = node.Name
			if len(node.DocComment) > 0 {
				b.SetDocumentation(node.DocComment)
			}
		}
		return nil
	}

	symbol := t.formatter.FormatSymbol(nil, rel, node)
	doc := t.documentFor(rel)

	roles := roleReference
	if node.IsDefinition {
		roles = roleDefinition
	}
	doc.AddOccurrence(scipext.OccurrenceExt{
		Range:       node.Range.AsArray(),
		Symbol:      symbol,
		SymbolRoles: int32(roles),
	})

	switch {
	case node.IsForwardDeclaration:
		// Forward declarations are emitted only into the forward-decl
		// shard (spec §4.2.2 item 5): they never get a symbol-info record
		// of their own in this document.
		t.forwardDecls = append(t.forwardDecls, scipext.ForwardDeclRecord{
			Symbol:        string(symbol),
			Documentation: node.DocComment,
		})
	case node.IsDefinition:
		sb := doc.SymbolBuilder(symbol)
		sb.DisplayName = node.Name
		if len(node.DocComment) > 0 {
			sb.SetDocumentation(node.DocComment)
		}
	}
	return nil
}

// Result is the finished, drained output of one TU's indexing pass,
// ready to be written as Phase-B shards (spec §4.2.4).
type Result struct {
	DocsAndExternals scipext.DocsAndExternalsShard
	ForwardDecls     scipext.ForwardDeclsShard
}

// Finish drains every document builder and external symbol builder into
// their JSON shard fragments, defusing every bomb, and returns the
// forward-declaration records collected during the walk.
func (t *TuIndexer) Finish() Result {
	var result Result
	for _, doc := range t.documents {
		result.DocsAndExternals.Documents = append(result.DocsAndExternals.Documents, doc.ToFragment())
	}
	for _, b := range t.externalSymbols {
		result.DocsAndExternals.ExternalSymbols = append(result.DocsAndExternals.ExternalSymbols, b.ToFragment())
		b.Discard()
	}
	result.ForwardDecls.ForwardDecls = t.forwardDecls
	return result
}

// Walk drives both collaborators over tu's preprocessor stream and AST
// (spec §4.2: "installs two collaborators"), then folds macro occurrences
// and include directives into the owned files' documents.
//
// If tu.Walk fails partway through (a fatal parser diagnostic), Walk still
// returns whatever documents the indexer had already built for files
// visited before the failure, alongside the error: a caller implementing
// spec §7's ParseError policy ("recorded, partial results still emitted")
// decides whether to keep that partial Result or discard it.
func Walk(ctx context.Context, tu frontend.TranslationUnit, root paths.RootPath, filesToIndex map[string]bool, formatter SymbolFormatter, deterministic bool) (Result, error) {
	files := NewFileTable()
	macros := NewMacroIndexer(files)
	indexer := NewTuIndexer(files, macros, root, filesToIndex, formatter, deterministic)

	walkErr := tu.Walk(ctx, macros, indexer)

	for file := range filesPresent(files) {
		indexer.EmitMacroOccurrences(file)
		indexer.EmitIncludes(file)
	}

	return indexer.Finish(), walkErr
}

func filesPresent(files *FileTable) map[frontend.FileID]struct{} {
	seen := make(map[frontend.FileID]struct{}, len(files.paths))
	for id := range files.paths {
		seen[id] = struct{}{}
	}
	return seen
}
