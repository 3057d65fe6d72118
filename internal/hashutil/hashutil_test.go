package hashutil

import "testing"

func TestDigestSealIsDeterministicOverSameTokens(t *testing.T) {
	d1 := NewDigest()
	d1.WriteToken([]byte("int"))
	d1.WriteToken([]byte("f"))
	h1 := d1.Seal()

	d2 := NewDigest()
	d2.WriteToken([]byte("int"))
	d2.WriteToken([]byte("f"))
	h2 := d2.Seal()

	if h1 != h2 {
		t.Errorf("Seal() not stable across identical token sequences: %v != %v", h1, h2)
	}
}

func TestDigestDiffersOnDifferentBranch(t *testing.T) {
	d1 := NewDigest()
	d1.WriteToken([]byte("X == 1"))
	d2 := NewDigest()
	d2.WriteToken([]byte("X == 2"))

	if d1.Seal() == d2.Seal() {
		t.Error("different #if branches must yield different hashes")
	}
}

func TestPreprocessedFileInfoLess(t *testing.T) {
	a := PreprocessedFileInfo{Path: "z.h", HashValue: 1}
	b := PreprocessedFileInfo{Path: "a.h", HashValue: 2}
	if !a.Less(b) {
		t.Error("ordering must be by hash first, then path")
	}
}

func TestPreprocessedFileInfoMultiLess(t *testing.T) {
	a := PreprocessedFileInfoMulti{Path: "a.h", HashValues: []HashValue{1, 2}}
	b := PreprocessedFileInfoMulti{Path: "b.h", HashValues: []HashValue{0}}
	if !a.Less(b) {
		t.Error("ordering must be by path first")
	}
}

func TestObservationsSealWellBehavedVsIllBehaved(t *testing.T) {
	obs := NewObservations()
	obs.Record("well.h", 10)
	obs.Record("ill.h", 1)
	obs.Record("ill.h", 2)

	well, ill := obs.Seal(true)
	if len(well) != 1 || well[0].Path != "well.h" || well[0].HashValue != 10 {
		t.Errorf("well-behaved = %+v, want [{well.h 10}]", well)
	}
	if len(ill) != 1 || ill[0].Path != "ill.h" || len(ill[0].HashValues) != 2 {
		t.Errorf("ill-behaved = %+v, want one entry with 2 hashes", ill)
	}
	if ill[0].HashValues[0] != 1 || ill[0].HashValues[1] != 2 {
		t.Errorf("ill-behaved hashes not sorted: %v", ill[0].HashValues)
	}
}

func TestObservationsSealDeterministicOrdering(t *testing.T) {
	obs := NewObservations()
	obs.Record("zeta.h", 1)
	obs.Record("alpha.h", 2)

	well, _ := obs.Seal(true)
	if len(well) != 2 {
		t.Fatalf("expected 2 well-behaved entries, got %d", len(well))
	}
	if !well[0].Less(well[1]) && well[0] != well[1] {
		t.Errorf("expected sorted output under --deterministic, got %+v", well)
	}
}
