package scipext

import "testing"

func TestOccurrenceExtHashConsistentWithEquality(t *testing.T) {
	a := OccurrenceExt{Range: [4]int32{1, 0, 1, 5}, Symbol: "foo", SymbolRoles: 1}
	b := OccurrenceExt{Range: [4]int32{1, 0, 1, 5}, Symbol: "foo", SymbolRoles: 1}
	if a.Hash() != b.Hash() {
		t.Error("equal occurrences must hash equal")
	}

	c := OccurrenceExt{Range: [4]int32{2, 0, 2, 5}, Symbol: "foo", SymbolRoles: 1}
	if a.Hash() == c.Hash() {
		t.Error("occurrences with different ranges should (almost certainly) hash differently")
	}
}

func TestOccurrenceExtLessOrdersByRangeFirst(t *testing.T) {
	a := OccurrenceExt{Range: [4]int32{1, 0, 1, 1}, Symbol: "z"}
	b := OccurrenceExt{Range: [4]int32{2, 0, 2, 1}, Symbol: "a"}
	if !a.Less(b) {
		t.Error("expected a before b by range")
	}
}

func TestRelationshipExtLessOrdersBySymbolFirst(t *testing.T) {
	a := RelationshipExt{Symbol: "a", IsDefinition: true}
	b := RelationshipExt{Symbol: "b", IsDefinition: false}
	if !a.Less(b) {
		t.Error("expected a before b by symbol")
	}
}

func TestSymbolInformationBuilderDocumentationSetOnce(t *testing.T) {
	b := NewSymbolInformationBuilder("foo")
	b.SetDocumentation([]string{"first"})
	b.SetDocumentation([]string{"second"})

	info := b.Finish(true)
	if len(info.Documentation) != 1 || info.Documentation[0] != "first" {
		t.Errorf("Documentation = %v, want [first] (first write wins)", info.Documentation)
	}
}

func TestSymbolInformationBuilderRelationshipsDeduped(t *testing.T) {
	b := NewSymbolInformationBuilder("foo")
	b.AddRelationship(RelationshipExt{Symbol: "base", IsImplementation: true})
	b.AddRelationship(RelationshipExt{Symbol: "base", IsImplementation: true, IsDefinition: true})

	info := b.Finish(true)
	if len(info.Relationships) != 1 {
		t.Fatalf("expected 1 merged relationship, got %d", len(info.Relationships))
	}
	if !info.Relationships[0].IsDefinition {
		t.Error("expected later AddRelationship to overwrite the entry for the same symbol")
	}
}

func TestDocumentBuilderMergeUnionsOccurrencesAndDedups(t *testing.T) {
	d1 := NewDocumentBuilder("h.h", "c++")
	occ := OccurrenceExt{Range: [4]int32{0, 0, 0, 3}, Symbol: "g", SymbolRoles: 1}
	d1.AddOccurrence(occ)

	d2 := NewDocumentBuilder("h.h", "c++")
	d2.AddOccurrence(occ) // same occurrence from another TU
	d2.AddOccurrence(OccurrenceExt{Range: [4]int32{1, 0, 1, 3}, Symbol: "g", SymbolRoles: 8})

	d1.Merge(d2)

	finished := d1.Finish(true)
	if len(finished.Occurrences) != 2 {
		t.Errorf("expected 2 deduplicated occurrences, got %d", len(finished.Occurrences))
	}
}

func TestDocumentBuilderFinishSortsWhenDeterministic(t *testing.T) {
	d := NewDocumentBuilder("a.cc", "c++")
	d.AddOccurrence(OccurrenceExt{Range: [4]int32{5, 0, 5, 1}, Symbol: "late"})
	d.AddOccurrence(OccurrenceExt{Range: [4]int32{1, 0, 1, 1}, Symbol: "early"})

	doc := d.Finish(true)
	if len(doc.Occurrences) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(doc.Occurrences))
	}
	if doc.Occurrences[0].Symbol != "early" {
		t.Errorf("expected sorted-by-range output, got first symbol %q", doc.Occurrences[0].Symbol)
	}
}

func TestSymbolToInfoMapIndexAndLookup(t *testing.T) {
	d := NewDocumentBuilder("h.h", "c++")
	d.SymbolBuilder("g").SetDocumentation([]string{"doc"})

	m := NewSymbolToInfoMap()
	m.Index(d)

	b, ok := m.Lookup("g")
	if !ok {
		t.Fatal("expected to find symbol g")
	}
	if !b.HasDocumentation() {
		t.Error("expected indexed builder to retain documentation")
	}
	b.Discard()
}
