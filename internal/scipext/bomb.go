package scipext

import (
	"fmt"
	"runtime"
)

// Bomb is an RAII-style guard that detects a forgotten SymbolInformationBuilder
// finalization (spec §3 "carries a bomb... aborts the process if dropped
// without calling either finish or discard"). Go has no destructors, so the
// detection is moved from unconditional abort-on-drop to a best-effort
// finalizer panic plus an explicit MustBeDefused check the owning scope
// runs before it returns (original_source/indexer/ScipExtras.h's Bomb;
// spec §9 "Strategy: ... a post-condition check in the owning scope").
type Bomb struct {
	armed   bool
	context string
}

// NewBomb arms a bomb describing context (e.g. "SymbolInformationBuilder for foo::bar").
func NewBomb(context string) *Bomb {
	b := &Bomb{armed: true, context: context}
	runtime.SetFinalizer(b, func(b *Bomb) {
		if b.armed {
			panic(fmt.Sprintf("scipext: bomb dropped armed: %s", b.context))
		}
	})
	return b
}

// Defuse disarms the bomb; call this from finish/discard.
func (b *Bomb) Defuse() {
	b.armed = false
	runtime.SetFinalizer(b, nil)
}

// Armed reports whether the bomb is still armed.
func (b *Bomb) Armed() bool {
	return b.armed
}

// MustBeDefused panics immediately if the bomb is still armed. Call this
// synchronously at the end of the owning scope rather than relying on the
// finalizer, since finalizer timing is not guaranteed (spec invariant 8:
// "No Bomb ever deallocates in the armed state in a successful run").
func (b *Bomb) MustBeDefused() {
	if b.armed {
		panic(fmt.Sprintf("scipext: bomb still armed at scope exit: %s", b.context))
	}
}
