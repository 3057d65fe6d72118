package scipext

import "testing"

func TestBombDefuseDisarms(t *testing.T) {
	b := NewBomb("test")
	if !b.Armed() {
		t.Fatal("expected bomb to start armed")
	}
	b.Defuse()
	if b.Armed() {
		t.Error("expected bomb to be disarmed after Defuse")
	}
	b.MustBeDefused() // must not panic
}

func TestBombMustBeDefusedPanicsWhenArmed(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for armed bomb")
		}
	}()
	b := NewBomb("test")
	b.MustBeDefused()
}
