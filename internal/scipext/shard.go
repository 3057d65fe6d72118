package scipext

import (
	"encoding/json"
	"fmt"
	"os"

	ierrors "github.com/scip-clang-go/scip-clang-go/internal/errors"
)

// The shard formats below are the on-disk exchange format between a
// worker's Phase-B emission (internal/tuindex) and the driver's index
// builder (internal/indexbuilder), named per spec §6's persisted state
// layout ("{tempdir}/{task_id}.docs_and_externals.scip" and
// ".forward_decls.scip"). Like the IPC envelopes (spec §4.1: "a
// self-describing textual record format"), shards are JSON rather than
// raw SCIP protobuf: only the final merged index needs to be real SCIP
// wire format for downstream consumers, and JSON keeps the
// worker/driver-internal fragment format trivially diffable for the
// history/debug logs described in SPEC_FULL.md.

// OccurrenceFragment is the JSON-serializable form of OccurrenceExt.
type OccurrenceFragment struct {
	Range                 [4]int32 `json:"range"`
	Symbol                string   `json:"symbol"`
	SymbolRoles           int32    `json:"symbolRoles"`
	SyntaxKind            int32    `json:"syntaxKind,omitempty"`
	OverrideDocumentation []string `json:"overrideDocumentation,omitempty"`
}

// ToFragment converts an OccurrenceExt to its wire fragment.
func (o OccurrenceExt) ToFragment() OccurrenceFragment {
	return OccurrenceFragment{
		Range:                 o.Range,
		Symbol:                string(o.Symbol),
		SymbolRoles:           o.SymbolRoles,
		SyntaxKind:            o.SyntaxKind,
		OverrideDocumentation: o.OverrideDocumentation,
	}
}

// FromOccurrenceFragment is the inverse of ToFragment.
func FromOccurrenceFragment(f OccurrenceFragment) OccurrenceExt {
	return OccurrenceExt{
		Range:                 f.Range,
		Symbol:                SymbolName(f.Symbol),
		SymbolRoles:           f.SymbolRoles,
		SyntaxKind:            f.SyntaxKind,
		OverrideDocumentation: f.OverrideDocumentation,
	}
}

// RelationshipFragment is the JSON-serializable form of RelationshipExt.
type RelationshipFragment struct {
	Symbol           string `json:"symbol"`
	IsDefinition     bool   `json:"isDefinition,omitempty"`
	IsReference      bool   `json:"isReference,omitempty"`
	IsTypeDefinition bool   `json:"isTypeDefinition,omitempty"`
	IsImplementation bool   `json:"isImplementation,omitempty"`
}

func (r RelationshipExt) toFragment() RelationshipFragment {
	return RelationshipFragment{
		Symbol:           string(r.Symbol),
		IsDefinition:     r.IsDefinition,
		IsReference:      r.IsReference,
		IsTypeDefinition: r.IsTypeDefinition,
		IsImplementation: r.IsImplementation,
	}
}

func fromRelationshipFragment(f RelationshipFragment) RelationshipExt {
	return RelationshipExt{
		Symbol:           SymbolName(f.Symbol),
		IsDefinition:     f.IsDefinition,
		IsReference:      f.IsReference,
		IsTypeDefinition: f.IsTypeDefinition,
		IsImplementation: f.IsImplementation,
	}
}

// SymbolFragment is the JSON-serializable, already-finalized form of a
// SymbolInformationBuilder (the bomb is defused by the time this exists).
type SymbolFragment struct {
	Symbol        string                 `json:"symbol"`
	DisplayName   string                 `json:"displayName,omitempty"`
	Kind          int32                  `json:"kind,omitempty"`
	Documentation []string               `json:"documentation,omitempty"`
	Relationships []RelationshipFragment `json:"relationships,omitempty"`
}

func symbolFragmentFromBuilder(b *SymbolInformationBuilder) SymbolFragment {
	rels := make([]RelationshipFragment, 0, len(b.relationships))
	for _, r := range b.relationships {
		rels = append(rels, r.toFragment())
	}
	return SymbolFragment{
		Symbol:        string(b.Symbol),
		DisplayName:   b.DisplayName,
		Kind:          b.Kind,
		Documentation: b.documentation,
		Relationships: rels,
	}
}

// ToFragment converts a finished or in-progress SymbolInformationBuilder
// to its wire shape without defusing its bomb; callers that are done with
// the builder must still call Discard (or Finish) themselves.
func (b *SymbolInformationBuilder) ToFragment() SymbolFragment {
	return symbolFragmentFromBuilder(b)
}

// ToBuilder reconstitutes a (freshly re-armed) SymbolInformationBuilder
// from a fragment, for merging into the index builder's state.
func (f SymbolFragment) ToBuilder() *SymbolInformationBuilder {
	b := NewSymbolInformationBuilder(SymbolName(f.Symbol))
	b.DisplayName = f.DisplayName
	b.Kind = f.Kind
	if len(f.Documentation) > 0 {
		b.SetDocumentation(f.Documentation)
	}
	for _, r := range f.Relationships {
		b.AddRelationship(fromRelationshipFragment(r))
	}
	return b
}

// DocumentFragment is the JSON-serializable, already-finalized form of a
// DocumentBuilder's contribution from one TU.
type DocumentFragment struct {
	RelativePath string               `json:"relativePath"`
	Language     string               `json:"language,omitempty"`
	Occurrences  []OccurrenceFragment `json:"occurrences"`
	Symbols      []SymbolFragment     `json:"symbols"`
}

// ToFragment drains a DocumentBuilder into its JSON shape without
// finalizing the underlying scip protobuf (the index builder still needs
// to merge before producing protobuf), defusing every symbol bomb.
func (d *DocumentBuilder) ToFragment() DocumentFragment {
	occs := make([]OccurrenceFragment, 0, len(d.occurrences))
	for _, o := range d.occurrences {
		occs = append(occs, o.ToFragment())
	}
	syms := make([]SymbolFragment, 0, len(d.symbols))
	for _, b := range d.symbols {
		syms = append(syms, symbolFragmentFromBuilder(b))
		b.Discard()
	}
	return DocumentFragment{
		RelativePath: d.RelativePath,
		Language:     d.Language,
		Occurrences:  occs,
		Symbols:      syms,
	}
}

// DocumentBuilderFromFragment reconstitutes a DocumentBuilder from a
// fragment so the index builder can Merge it with others sharing the same
// RelativePath.
func DocumentBuilderFromFragment(f DocumentFragment) *DocumentBuilder {
	d := NewDocumentBuilder(f.RelativePath, f.Language)
	for _, of := range f.Occurrences {
		d.AddOccurrence(FromOccurrenceFragment(of))
	}
	for _, sf := range f.Symbols {
		d.symbols[SymbolName(sf.Symbol)] = sf.ToBuilder()
	}
	return d
}

// DocsAndExternalsShard is the Phase-B "docs_and_externals" shard written
// by one worker task: the project-local documents it emitted plus any
// symbols it found defined outside the project root (spec §3 "external
// symbols").
type DocsAndExternalsShard struct {
	Documents       []DocumentFragment `json:"documents"`
	ExternalSymbols []SymbolFragment   `json:"externalSymbols"`
}

// ForwardDeclRecord is one forward declaration recorded during Phase B
// (spec §4.2.2 item 5): a symbol with no definition body in this TU, plus
// whatever doc comment preceded it.
type ForwardDeclRecord struct {
	Symbol        string   `json:"symbol"`
	Documentation []string `json:"documentation,omitempty"`
}

// ForwardDeclsShard is the Phase-B "forward_decls" shard.
type ForwardDeclsShard struct {
	ForwardDecls []ForwardDeclRecord `json:"forwardDecls"`
}

// WriteShard JSON-encodes v (a DocsAndExternalsShard or ForwardDeclsShard)
// to path.
func WriteShard(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ierrors.Wrap(ierrors.InvariantViolation, "scipext", fmt.Sprintf("cannot encode shard %s", path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return ierrors.Wrap(ierrors.IpcError, "scipext", fmt.Sprintf("cannot write shard %s", path), err)
	}
	return nil
}

// ReadDocsAndExternalsShard reads and decodes a docs_and_externals shard.
func ReadDocsAndExternalsShard(path string) (*DocsAndExternalsShard, error) {
	var shard DocsAndExternalsShard
	if err := readShard(path, &shard); err != nil {
		return nil, err
	}
	return &shard, nil
}

// ReadForwardDeclsShard reads and decodes a forward_decls shard.
func ReadForwardDeclsShard(path string) (*ForwardDeclsShard, error) {
	var shard ForwardDeclsShard
	if err := readShard(path, &shard); err != nil {
		return nil, err
	}
	return &shard, nil
}

func readShard(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ierrors.Wrap(ierrors.IpcError, "scipext", fmt.Sprintf("cannot read shard %s", path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return ierrors.Wrap(ierrors.InvariantViolation, "scipext", fmt.Sprintf("cannot decode shard %s", path), err)
	}
	return nil
}
