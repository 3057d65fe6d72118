// Package scipext implements the SCIP accumulator types (spec §3/§4.3):
// OccurrenceExt, RelationshipExt, SymbolInformationBuilder (with its Bomb),
// DocumentBuilder, and the index-wide SymbolToInfoMap, on top of
// github.com/sourcegraph/scip's protobuf bindings. Grounded on
// original_source/indexer/ScipExtras.h.
package scipext

import (
	"fmt"
	"hash/fnv"
	"sort"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
)

// SymbolName is a non-empty SCIP symbol string, used as a map key
// throughout the builder (spec §3).
type SymbolName string

// OccurrenceExt wraps a scip.Occurrence with the structural hash and total
// ordering spec §3 requires: first by range, then by symbol, then by role
// bits, then by syntax kind, then by diagnostics.
type OccurrenceExt struct {
	Range                 [4]int32 // startLine, startCol, endLine, endCol, all 0-based (SCIP convention)
	Symbol                SymbolName
	SymbolRoles           int32
	SyntaxKind            int32
	OverrideDocumentation []string
	Diagnostics           []*scippb.Diagnostic
}

// Hash returns the structural hash used for set-deduplication (spec §4.3
// "unioned as a set, deduplication by the structural hash"). Equal
// OccurrenceExt values always hash equal (spec invariant 7).
func (o OccurrenceExt) Hash() uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%v|%s|%d|%d|%v", o.Range, o.Symbol, o.SymbolRoles, o.SyntaxKind, o.OverrideDocumentation)
	return h.Sum64()
}

// Less implements the spec's total ordering over occurrences.
func (o OccurrenceExt) Less(other OccurrenceExt) bool {
	for i := 0; i < 4; i++ {
		if o.Range[i] != other.Range[i] {
			return o.Range[i] < other.Range[i]
		}
	}
	if o.Symbol != other.Symbol {
		return o.Symbol < other.Symbol
	}
	if o.SymbolRoles != other.SymbolRoles {
		return o.SymbolRoles < other.SymbolRoles
	}
	if o.SyntaxKind != other.SyntaxKind {
		return o.SyntaxKind < other.SyntaxKind
	}
	return len(o.Diagnostics) < len(other.Diagnostics)
}

// ToProto converts the extended occurrence into the wire scip.Occurrence.
func (o OccurrenceExt) ToProto() *scippb.Occurrence {
	return &scippb.Occurrence{
		Range:                 o.Range[:],
		Symbol:                string(o.Symbol),
		SymbolRoles:           o.SymbolRoles,
		SyntaxKind:            scippb.SyntaxKind(o.SyntaxKind),
		OverrideDocumentation: o.OverrideDocumentation,
		Diagnostics:           o.Diagnostics,
	}
}

// RelationshipExt wraps a scip.Relationship with the total ordering spec §3
// requires: by symbol, then by (is_definition, is_reference,
// is_type_definition, is_implementation).
type RelationshipExt struct {
	Symbol           SymbolName
	IsDefinition     bool
	IsReference      bool
	IsTypeDefinition bool
	IsImplementation bool
}

// Less implements the spec's total ordering over relationships.
func (r RelationshipExt) Less(other RelationshipExt) bool {
	if r.Symbol != other.Symbol {
		return r.Symbol < other.Symbol
	}
	if r.IsDefinition != other.IsDefinition {
		return !r.IsDefinition
	}
	if r.IsReference != other.IsReference {
		return !r.IsReference
	}
	if r.IsTypeDefinition != other.IsTypeDefinition {
		return !r.IsTypeDefinition
	}
	return !r.IsImplementation && other.IsImplementation
}

// ToProto converts the extended relationship into the wire scip.Relationship.
func (r RelationshipExt) ToProto() *scippb.Relationship {
	return &scippb.Relationship{
		Symbol:           string(r.Symbol),
		IsReference:      r.IsReference,
		IsImplementation: r.IsImplementation,
		IsTypeDefinition: r.IsTypeDefinition,
		IsDefinition:     r.IsDefinition,
	}
}

// SymbolInformationBuilder accumulates documentation lines (settable once)
// and a deduplicated relationship set for one symbol within a document. It
// carries a Bomb that must be defused by Finish or Discard.
type SymbolInformationBuilder struct {
	Symbol        SymbolName
	DisplayName   string
	Kind          int32
	documentation []string
	docSet        bool
	relationships map[SymbolName]RelationshipExt
	bomb          *Bomb
}

// NewSymbolInformationBuilder starts a new accumulator for symbol.
func NewSymbolInformationBuilder(symbol SymbolName) *SymbolInformationBuilder {
	return &SymbolInformationBuilder{
		Symbol:        symbol,
		relationships: make(map[SymbolName]RelationshipExt),
		bomb:          NewBomb(fmt.Sprintf("SymbolInformationBuilder(%s)", symbol)),
	}
}

// SetDocumentation sets the documentation lines, at most once; later calls
// are no-ops (spec §3 "documentation lines (settable at most once)").
func (b *SymbolInformationBuilder) SetDocumentation(lines []string) {
	if b.docSet || len(lines) == 0 {
		return
	}
	b.documentation = lines
	b.docSet = true
}

// HasDocumentation reports whether documentation has been set.
func (b *SymbolInformationBuilder) HasDocumentation() bool {
	return b.docSet
}

// AddRelationship merges one relationship into the set, keyed by target
// symbol (spec §3 "set of relationships (mergeable)").
func (b *SymbolInformationBuilder) AddRelationship(r RelationshipExt) {
	b.relationships[r.Symbol] = r
}

// Finish defuses the bomb and returns the finalized protobuf
// SymbolInformation, sorting relationships by symbol when deterministic.
func (b *SymbolInformationBuilder) Finish(deterministic bool) *scippb.SymbolInformation {
	defer b.bomb.Defuse()

	rels := make([]RelationshipExt, 0, len(b.relationships))
	for _, r := range b.relationships {
		rels = append(rels, r)
	}
	if deterministic {
		sort.Slice(rels, func(i, j int) bool { return rels[i].Less(rels[j]) })
	}
	protoRels := make([]*scippb.Relationship, len(rels))
	for i, r := range rels {
		protoRels[i] = r.ToProto()
	}

	return &scippb.SymbolInformation{
		Symbol:        string(b.Symbol),
		Documentation: b.documentation,
		Relationships: protoRels,
		Kind:          scippb.SymbolInformation_Kind(b.Kind),
		DisplayName:   b.DisplayName,
	}
}

// Discard defuses the bomb without producing output, used when a symbol
// turns out not to need emission after all.
func (b *SymbolInformationBuilder) Discard() {
	b.bomb.Defuse()
}
