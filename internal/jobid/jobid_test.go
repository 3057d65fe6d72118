package jobid

import (
	"encoding/json"
	"testing"
)

func TestRoundTrip64Bit(t *testing.T) {
	tests := []uint64{0, 1, 0xFFFFFFFF, 0x100000000, 0xFFFFFFFFFFFFFFFF, 1<<32 | 7}
	for _, v := range tests {
		got := From64Bit(v).To64Bit()
		if got != v {
			t.Errorf("From64Bit(%d).To64Bit() = %d, want %d", v, got, v)
		}
	}
}

func TestNewAndFieldSplit(t *testing.T) {
	j := New(42, 1)
	if j.TaskId != 42 || j.SubtaskId != 1 {
		t.Errorf("New(42, 1) = %+v", j)
	}
	packed := j.To64Bit()
	unpacked := From64Bit(packed)
	if unpacked != j {
		t.Errorf("round trip mismatch: %+v != %+v", unpacked, j)
	}
}

func TestDebugString(t *testing.T) {
	j := New(3, 1)
	if j.String() != "3.1" {
		t.Errorf("String() = %q, want %q", j.String(), "3.1")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	j := New(7, EmitIndexSubtask)
	data, err := json.Marshal(j)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got JobId
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got != j {
		t.Errorf("JSON round trip = %+v, want %+v", got, j)
	}
}
