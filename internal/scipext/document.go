package scipext

import (
	"sort"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
)

// DocumentBuilder accumulates one root-relative file's occurrences
// (deduplicated by structural hash) and per-symbol SymbolInformationBuilders
// (spec §3). Invariant: after Finish, every symbol referenced by a
// definition-role occurrence has a corresponding symbol info entry.
type DocumentBuilder struct {
	RelativePath string
	Language     string
	occurrences  map[uint64]OccurrenceExt
	symbols      map[SymbolName]*SymbolInformationBuilder
}

// NewDocumentBuilder starts an accumulator for relativePath.
func NewDocumentBuilder(relativePath, language string) *DocumentBuilder {
	return &DocumentBuilder{
		RelativePath: relativePath,
		Language:     language,
		occurrences:  make(map[uint64]OccurrenceExt),
		symbols:      make(map[SymbolName]*SymbolInformationBuilder),
	}
}

// AddOccurrence inserts occ, deduplicated by its structural hash.
func (d *DocumentBuilder) AddOccurrence(occ OccurrenceExt) {
	d.occurrences[occ.Hash()] = occ
}

// SymbolBuilder returns (creating if needed) the SymbolInformationBuilder
// for symbol within this document.
func (d *DocumentBuilder) SymbolBuilder(symbol SymbolName) *SymbolInformationBuilder {
	b, ok := d.symbols[symbol]
	if !ok {
		b = NewSymbolInformationBuilder(symbol)
		d.symbols[symbol] = b
	}
	return b
}

// Merge folds other (a document for the same relative path from another
// TU) into d: occurrences are set-unioned, symbol builders merged by
// documentation-set-once/relationship-union (spec §4.3).
func (d *DocumentBuilder) Merge(other *DocumentBuilder) {
	for hash, occ := range other.occurrences {
		d.occurrences[hash] = occ
	}
	for name, ob := range other.symbols {
		db := d.SymbolBuilder(name)
		if ob.docSet {
			db.SetDocumentation(ob.documentation)
		}
		for _, r := range ob.relationships {
			db.AddRelationship(r)
		}
		ob.Discard()
	}
}

// Finish drains the builder into a scip.Document, defusing every symbol
// bomb. Occurrences are sorted by range iff deterministic is set (spec
// §4.2.4).
func (d *DocumentBuilder) Finish(deterministic bool) *scippb.Document {
	occs := make([]OccurrenceExt, 0, len(d.occurrences))
	for _, occ := range d.occurrences {
		occs = append(occs, occ)
	}
	if deterministic {
		sort.Slice(occs, func(i, j int) bool { return occs[i].Less(occs[j]) })
	}
	protoOccs := make([]*scippb.Occurrence, len(occs))
	for i, o := range occs {
		protoOccs[i] = o.ToProto()
	}

	names := make([]SymbolName, 0, len(d.symbols))
	for name := range d.symbols {
		names = append(names, name)
	}
	if deterministic {
		sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	}
	syms := make([]*scippb.SymbolInformation, 0, len(names))
	for _, name := range names {
		syms = append(syms, d.symbols[name].Finish(deterministic))
	}

	return &scippb.Document{
		RelativePath: d.RelativePath,
		Language:     d.Language,
		Occurrences:  protoOccs,
		Symbols:      syms,
	}
}

// SymbolToInfoMap is the symbol -> SymbolInformationBuilder reverse map the
// index builder uses for forward-declaration resolution (spec §4.3): it
// spans both per-document and external symbols.
type SymbolToInfoMap struct {
	entries map[SymbolName]*SymbolInformationBuilder
}

// NewSymbolToInfoMap creates an empty reverse map.
func NewSymbolToInfoMap() *SymbolToInfoMap {
	return &SymbolToInfoMap{entries: make(map[SymbolName]*SymbolInformationBuilder)}
}

// Index registers every symbol builder in doc so forward declarations can
// be resolved against it; external symbols are registered via
// IndexExternal.
func (m *SymbolToInfoMap) Index(doc *DocumentBuilder) {
	for name, b := range doc.symbols {
		m.entries[name] = b
	}
}

// IndexExternal registers an external (outside-project) symbol builder.
func (m *SymbolToInfoMap) IndexExternal(name SymbolName, b *SymbolInformationBuilder) {
	m.entries[name] = b
}

// Lookup returns the builder for symbol, if any.
func (m *SymbolToInfoMap) Lookup(symbol SymbolName) (*SymbolInformationBuilder, bool) {
	b, ok := m.entries[symbol]
	return b, ok
}
