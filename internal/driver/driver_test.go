package driver

import (
	"reflect"
	"sort"
	"testing"

	"github.com/scip-clang-go/scip-clang-go/internal/compdb"
	"github.com/scip-clang-go/scip-clang-go/internal/hashutil"
)

func newTestRun(commands int) *run {
	cmds := make([]compdb.CompileCommand, commands)
	for i := range cmds {
		cmds[i] = compdb.CompileCommand{File: "main.cc"}
	}
	return &run{
		commands: cmds,
		hashes:   make(map[string]map[hashutil.HashValue][]uint32),
		observed: make(map[uint32]map[string]hashutil.HashValue),
	}
}

func TestElectOwnersPicksLowestTaskId(t *testing.T) {
	r := newTestRun(3)
	r.observed[0] = map[string]hashutil.HashValue{"a.h": 1}
	r.observed[1] = map[string]hashutil.HashValue{"a.h": 1}
	r.observed[2] = map[string]hashutil.HashValue{"a.h": 1}
	r.hashes["a.h"] = map[hashutil.HashValue][]uint32{1: {0, 1, 2}}

	owned := r.electOwners()
	if got := owned[0]; !reflect.DeepEqual(got, []string{"a.h"}) {
		t.Errorf("task 0 owned = %v, want [a.h]", got)
	}
	if got := owned[1]; len(got) != 0 {
		t.Errorf("task 1 owned = %v, want none", got)
	}
	if got := owned[2]; len(got) != 0 {
		t.Errorf("task 2 owned = %v, want none", got)
	}
}

func TestElectOwnersSplitsByObservedHash(t *testing.T) {
	r := newTestRun(2)
	// Task 0 and task 1 included the same path but preprocessed it
	// differently (e.g. a different macro was defined before the
	// #include), so they observed different hashes and each owns its
	// own view of the file.
	r.observed[0] = map[string]hashutil.HashValue{"a.h": 1}
	r.observed[1] = map[string]hashutil.HashValue{"a.h": 2}
	r.hashes["a.h"] = map[hashutil.HashValue][]uint32{
		1: {0},
		2: {1},
	}

	owned := r.electOwners()
	if got := owned[0]; !reflect.DeepEqual(got, []string{"a.h"}) {
		t.Errorf("task 0 owned = %v, want [a.h]", got)
	}
	if got := owned[1]; !reflect.DeepEqual(got, []string{"a.h"}) {
		t.Errorf("task 1 owned = %v, want [a.h]", got)
	}
}

func TestElectOwnersSortsOwnedFiles(t *testing.T) {
	r := newTestRun(1)
	r.observed[0] = map[string]hashutil.HashValue{"z.h": 1, "a.h": 2}
	r.hashes["z.h"] = map[hashutil.HashValue][]uint32{1: {0}}
	r.hashes["a.h"] = map[hashutil.HashValue][]uint32{2: {0}}

	owned := r.electOwners()
	got := append([]string{}, owned[0]...)
	sort.Strings(got)
	want := []string{"a.h", "z.h"}
	if !reflect.DeepEqual(owned[0], want) {
		t.Errorf("owned[0] = %v, want sorted %v", owned[0], want)
	}
	_ = got
}

func TestMinUint32(t *testing.T) {
	if got := minUint32([]uint32{5, 2, 9, 2}); got != 2 {
		t.Errorf("minUint32 = %d, want 2", got)
	}
}
