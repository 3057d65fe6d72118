// Package jobid implements JobId (spec §3): a 64-bit identity decomposable
// into a 32-bit task id (one per compile command) and a 32-bit subtask id
// (phase within that task). Grounded on original_source/indexer/
// IpcMessages.cc's JobId::to64Bit/from64Bit/debugString.
package jobid

import "fmt"

// Phase values for the subtask id. SemanticAnalysis is phase A, EmitIndex
// is phase B (spec §4.4).
const (
	SemanticAnalysisSubtask uint32 = 0
	EmitIndexSubtask        uint32 = 1
)

// JobId identifies one (task, phase) unit of work.
type JobId struct {
	TaskId    uint32
	SubtaskId uint32
}

// New constructs a JobId for a given task and subtask phase.
func New(taskID, subtaskID uint32) JobId {
	return JobId{TaskId: taskID, SubtaskId: subtaskID}
}

// To64Bit packs the JobId into a single 64-bit unsigned integer: task id in
// the high 32 bits, subtask id in the low 32 bits.
func (j JobId) To64Bit() uint64 {
	return uint64(j.TaskId)<<32 | uint64(j.SubtaskId)
}

// From64Bit is the inverse of To64Bit. From64Bit(x).To64Bit() == x for all x.
func From64Bit(v uint64) JobId {
	return JobId{TaskId: uint32(v >> 32), SubtaskId: uint32(v)}
}

// String renders the debug form "task.subtask".
func (j JobId) String() string {
	return fmt.Sprintf("%d.%d", j.TaskId, j.SubtaskId)
}

// MarshalJSON serializes the JobId as a single 64-bit unsigned integer,
// per spec §6's wire format.
func (j JobId) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%d", j.To64Bit())), nil
}

// UnmarshalJSON parses a JobId from a single 64-bit unsigned integer.
func (j *JobId) UnmarshalJSON(data []byte) error {
	var v uint64
	if _, err := fmt.Sscanf(string(data), "%d", &v); err != nil {
		return fmt.Errorf("jobid: expected uint64, got %q: %w", data, err)
	}
	*j = From64Bit(v)
	return nil
}
