// Package indexbuilder implements the driver's final merge stage (spec
// §4.3): folding every worker's per-task shards into one scip.Index,
// resolving forward declarations against their canonical definitions.
// Grounded on original_source/indexer/ScipExtras.h's IndexBuilder and the
// accumulator types in github.com/scip-clang-go/scip-clang-go/internal/scipext.
package indexbuilder

import (
	"sort"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"

	"github.com/scip-clang-go/scip-clang-go/internal/scipext"
)

// IndexBuilder owns the final index: a map from root-relative path to
// document builder, a map from symbol name to symbol-information builder
// for symbols defined outside the project root, and the forward
// declarations collected across every task, pending resolution.
type IndexBuilder struct {
	documents       map[string]*scipext.DocumentBuilder
	externalSymbols map[scipext.SymbolName]*scipext.SymbolInformationBuilder
	forwardDecls    []scipext.ForwardDeclRecord
	deterministic   bool
}

// New starts an empty index builder. deterministic controls whether
// Finalize sorts documents/symbols/occurrences/relationships, per the
// --deterministic flag (spec §4.2.4/§13).
func New(deterministic bool) *IndexBuilder {
	return &IndexBuilder{
		documents:       make(map[string]*scipext.DocumentBuilder),
		externalSymbols: make(map[scipext.SymbolName]*scipext.SymbolInformationBuilder),
		deterministic:   deterministic,
	}
}

// AddShard folds one worker task's docs_and_externals shard into the
// builder: documents sharing a root-relative path with an already-merged
// document are merged via DocumentBuilder.Merge; external symbols are
// merged the same way documentation/relationships merge within a document.
func (ib *IndexBuilder) AddShard(shard *scipext.DocsAndExternalsShard) {
	for _, docFrag := range shard.Documents {
		incoming := scipext.DocumentBuilderFromFragment(docFrag)
		if existing, ok := ib.documents[docFrag.RelativePath]; ok {
			existing.Merge(incoming)
		} else {
			ib.documents[docFrag.RelativePath] = incoming
		}
	}
	for _, symFrag := range shard.ExternalSymbols {
		ib.mergeExternalSymbol(symFrag)
	}
}

func (ib *IndexBuilder) mergeExternalSymbol(frag scipext.SymbolFragment) {
	name := scipext.SymbolName(frag.Symbol)
	existing, ok := ib.externalSymbols[name]
	if !ok {
		ib.externalSymbols[name] = frag.ToBuilder()
		return
	}
	if len(frag.Documentation) > 0 {
		existing.SetDocumentation(frag.Documentation)
	}
	for _, r := range frag.Relationships {
		existing.AddRelationship(scipext.RelationshipExt{
			Symbol:           scipext.SymbolName(r.Symbol),
			IsDefinition:     r.IsDefinition,
			IsReference:      r.IsReference,
			IsTypeDefinition: r.IsTypeDefinition,
			IsImplementation: r.IsImplementation,
		})
	}
}

// AddForwardDecls records one task's forward_decls shard for later
// resolution by ResolveForwardDecls.
func (ib *IndexBuilder) AddForwardDecls(shard *scipext.ForwardDeclsShard) {
	ib.forwardDecls = append(ib.forwardDecls, shard.ForwardDecls...)
}

// ResolveForwardDecls constructs the symbol -> info reverse map spanning
// both per-document and external symbols, then for each forward-declaration
// record attaches its documentation to the canonical entry iff the
// canonical entry has none yet; otherwise the forward-decl is discarded.
// Forward-decls with no canonical entry anywhere become new external
// symbols (spec §4.3 "Forward-declaration resolution").
func (ib *IndexBuilder) ResolveForwardDecls() {
	reverse := scipext.NewSymbolToInfoMap()
	for _, doc := range ib.documents {
		reverse.Index(doc)
	}
	for name, b := range ib.externalSymbols {
		reverse.IndexExternal(name, b)
	}

	for _, rec := range ib.forwardDecls {
		symbol := scipext.SymbolName(rec.Symbol)
		if canonical, ok := reverse.Lookup(symbol); ok {
			if !canonical.HasDocumentation() && len(rec.Documentation) > 0 {
				canonical.SetDocumentation(rec.Documentation)
			}
			continue
		}
		// No canonical entry anywhere: the forward-decl stands alone as an
		// external symbol.
		if _, ok := ib.externalSymbols[symbol]; ok {
			continue
		}
		b := scipext.NewSymbolInformationBuilder(symbol)
		if len(rec.Documentation) > 0 {
			b.SetDocumentation(rec.Documentation)
		}
		reverse.IndexExternal(symbol, b)
		ib.externalSymbols[symbol] = b
	}
	ib.forwardDecls = nil
}

// Finalize drains every document and external symbol builder into the
// wire scip.Index, iterating in deterministic order (path, then symbol
// name) when the builder was constructed with deterministic=true. Every
// bomb is defused by the underlying Finish calls.
func (ib *IndexBuilder) Finalize(metadata *scippb.Metadata) *scippb.Index {
	paths := make([]string, 0, len(ib.documents))
	for p := range ib.documents {
		paths = append(paths, p)
	}
	if ib.deterministic {
		sort.Strings(paths)
	}
	docs := make([]*scippb.Document, 0, len(paths))
	for _, p := range paths {
		docs = append(docs, ib.documents[p].Finish(ib.deterministic))
	}

	names := make([]scipext.SymbolName, 0, len(ib.externalSymbols))
	for n := range ib.externalSymbols {
		names = append(names, n)
	}
	if ib.deterministic {
		sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	}
	externals := make([]*scippb.SymbolInformation, 0, len(names))
	for _, n := range names {
		externals = append(externals, ib.externalSymbols[n].Finish(ib.deterministic))
	}

	return &scippb.Index{
		Metadata:        metadata,
		Documents:       docs,
		ExternalSymbols: externals,
	}
}

// Stats reports the merged shape: document, external-symbol and pending
// forward-declaration counts.
type Stats struct {
	Documents       int
	ExternalSymbols int
	PendingForward  int
}

// Stats returns the current merged shape, valid at any point before
// Finalize.
func (ib *IndexBuilder) Stats() Stats {
	return Stats{
		Documents:       len(ib.documents),
		ExternalSymbols: len(ib.externalSymbols),
		PendingForward:  len(ib.forwardDecls),
	}
}
