package frontend

import "testing"

func TestSourceRangeAsArray(t *testing.T) {
	r := SourceRange{StartLine: 1, StartColumn: 2, EndLine: 1, EndColumn: 5}
	got := r.AsArray()
	want := [4]int32{1, 2, 1, 5}
	if got != want {
		t.Errorf("AsArray() = %v, want %v", got, want)
	}
}

func TestNodeKindString(t *testing.T) {
	cases := map[NodeKind]string{
		NamespaceNode:              "namespace",
		RecordNode:                 "record",
		FunctionNode:               "function",
		FieldNode:                  "field",
		EnumNode:                   "enum",
		EnumeratorNode:             "enumerator",
		TypedefNode:                "typedef",
		TemplateParameterNode:      "template_parameter",
		TemplateSpecializationNode: "template_specialization",
		MemberExpressionNode:       "member_expression",
		DeclRefNode:                "decl_ref",
		NestedNameSpecifierNode:    "nested_name_specifier",
		TagTypeLocNode:             "tag_type_loc",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("NodeKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestFileArenaInternIsStable(t *testing.T) {
	a := newFileArena()
	id1 := a.intern("/a.cc")
	id2 := a.intern("/b.cc")
	id3 := a.intern("/a.cc")
	if id1 != id3 {
		t.Error("expected interning the same path twice to yield the same FileID")
	}
	if id1 == id2 {
		t.Error("expected distinct paths to yield distinct FileIDs")
	}
}

func TestMacroArenaInternAndLookup(t *testing.T) {
	a := newMacroArena()
	id := a.intern("FOO")
	if got, ok := a.lookup("FOO"); !ok || got != id {
		t.Errorf("lookup(FOO) = (%v, %v), want (%v, true)", got, ok, id)
	}
	if _, ok := a.lookup("BAR"); ok {
		t.Error("expected lookup of an undefined macro to report false")
	}
}
