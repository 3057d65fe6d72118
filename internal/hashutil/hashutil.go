// Package hashutil implements the preprocessor-effect hash (spec §3/§4.2.3):
// a 64-bit digest over the post-preprocessing token stream observed when a
// TU enters a header, plus the PreprocessedFileInfo/Multi aggregates a
// semantic-analysis job reports back to the driver.
package hashutil

import (
	"sort"

	"github.com/cespare/xxhash/v2"
)

// HashValue is a 64-bit unsigned preprocessor-effect digest.
type HashValue uint64

// Digest incrementally hashes the token stream seen while a TU consumes one
// header, including nested #include hashes, mirroring the "rolling hash...
// sealed on file-exit" behavior of spec §4.2.3.
type Digest struct {
	d *xxhash.Digest
}

// NewDigest starts a new rolling hash for one header entry.
func NewDigest() *Digest {
	return &Digest{d: xxhash.New()}
}

// WriteToken folds one post-preprocessing token into the rolling hash.
func (d *Digest) WriteToken(tok []byte) {
	_, _ = d.d.Write(tok)
}

// WriteNestedHash folds a nested #include's sealed hash into this header's
// hash, so a header's digest depends on the full resolved content of
// everything it transitively includes at this point.
func (d *Digest) WriteNestedHash(h HashValue) {
	var buf [8]byte
	putUint64(buf[:], uint64(h))
	_, _ = d.d.Write(buf[:])
}

// Seal finalizes the digest into a HashValue, as happens at file-exit.
func (d *Digest) Seal() HashValue {
	return HashValue(d.d.Sum64())
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// PreprocessedFileInfo is a (path, hash) pair for a header observed with
// exactly one hash within a TU. Total ordering is hash first, then path
// (spec §3).
type PreprocessedFileInfo struct {
	Path      string    `json:"path"`
	HashValue HashValue `json:"hashValue"`
}

// Less implements the spec's (hash, path) ordering.
func (a PreprocessedFileInfo) Less(b PreprocessedFileInfo) bool {
	if a.HashValue != b.HashValue {
		return a.HashValue < b.HashValue
	}
	return a.Path < b.Path
}

// PreprocessedFileInfoMulti is (path, sorted distinct hashes) for a header
// observed with more than one hash within a single TU ("ill-behaved").
type PreprocessedFileInfoMulti struct {
	Path       string      `json:"path"`
	HashValues []HashValue `json:"hashValues"`
}

// Less implements the spec's (path, then hash list) ordering.
func (a PreprocessedFileInfoMulti) Less(b PreprocessedFileInfoMulti) bool {
	if a.Path != b.Path {
		return a.Path < b.Path
	}
	n := len(a.HashValues)
	if len(b.HashValues) < n {
		n = len(b.HashValues)
	}
	for i := 0; i < n; i++ {
		if a.HashValues[i] != b.HashValues[i] {
			return a.HashValues[i] < b.HashValues[i]
		}
	}
	return len(a.HashValues) < len(b.HashValues)
}

// Observations accumulates the (path -> set of hashes) map a worker builds
// while processing one TU's Phase A job, then splits it into well-behaved
// and ill-behaved lists on seal (spec §4.2.3).
type Observations struct {
	seen map[string]map[HashValue]struct{}
	// order preserves first-seen path order for non-deterministic runs;
	// under --deterministic the caller sorts on Seal instead.
	order []string
}

// NewObservations creates an empty per-TU observation set.
func NewObservations() *Observations {
	return &Observations{seen: make(map[string]map[HashValue]struct{})}
}

// Record adds one (path, hash) observation, as happens on every file-exit.
func (o *Observations) Record(path string, h HashValue) {
	set, ok := o.seen[path]
	if !ok {
		set = make(map[HashValue]struct{})
		o.seen[path] = set
		o.order = append(o.order, path)
	}
	if _, dup := set[h]; !dup {
		set[h] = struct{}{}
	}
}

// Seal splits accumulated observations into well-behaved (single hash) and
// ill-behaved (multiple hashes) lists. When deterministic is true, both
// lists and the hash-multi lists are sorted per the spec's total order.
func (o *Observations) Seal(deterministic bool) (wellBehaved []PreprocessedFileInfo, illBehaved []PreprocessedFileInfoMulti) {
	paths := o.order
	if deterministic {
		paths = append([]string(nil), o.order...)
		sort.Strings(paths)
	}
	for _, path := range paths {
		hashes := o.seen[path]
		if len(hashes) == 1 {
			for h := range hashes {
				wellBehaved = append(wellBehaved, PreprocessedFileInfo{Path: path, HashValue: h})
			}
			continue
		}
		vals := make([]HashValue, 0, len(hashes))
		for h := range hashes {
			vals = append(vals, h)
		}
		sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
		illBehaved = append(illBehaved, PreprocessedFileInfoMulti{Path: path, HashValues: vals})
	}
	if deterministic {
		sort.Slice(wellBehaved, func(i, j int) bool { return wellBehaved[i].Less(wellBehaved[j]) })
		sort.Slice(illBehaved, func(i, j int) bool { return illBehaved[i].Less(illBehaved[j]) })
	}
	return wellBehaved, illBehaved
}
