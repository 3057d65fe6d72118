// Package ipc implements the driver/worker IPC protocol (spec §4.1, §4.4):
// queue naming, the JSON message envelopes exchanged over those queues, and
// a Unix-domain-socket transport. Grounded on
// original_source/indexer/IpcMessages.cc and Worker.h's MessageQueuePair
// usage.
package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/scip-clang-go/scip-clang-go/internal/compdb"
	"github.com/scip-clang-go/scip-clang-go/internal/hashutil"
	"github.com/scip-clang-go/scip-clang-go/internal/jobid"
)

// DriverToWorkerQueueName returns the queue name a driver sends requests to
// worker workerID on (IpcMessages.cc's driverToWorkerQueueName).
func DriverToWorkerQueueName(driverID string, workerID uint32) string {
	return fmt.Sprintf("scip-clang-%s-worker-%d-recv", driverID, workerID)
}

// WorkerToDriverQueueName returns the single queue name all of one driver's
// workers send responses back on (IpcMessages.cc's workerToDriverQueueName).
func WorkerToDriverQueueName(driverID string) string {
	return fmt.Sprintf("scip-clang-%s-worker-send", driverID)
}

// JobKind tags which variant an IndexJob/IndexJobResult's details hold.
type JobKind string

const (
	SemanticAnalysis JobKind = "SemanticAnalysis"
	EmitIndex        JobKind = "EmitIndex"
)

// SemanticAnalysisJobDetails is Phase A's job payload: one compile command
// to preprocess and parse (spec §4.4 step 3).
type SemanticAnalysisJobDetails struct {
	Command compdb.CompileCommand `json:"command"`
}

// EmitIndexJobDetails is Phase B's job payload: the files this task owns
// after owner election (spec §4.4 step 5's "files_to_be_indexed").
type EmitIndexJobDetails struct {
	FilesToBeIndexed []string `json:"filesToBeIndexed"`
}

// IndexJob is a tagged union over the two job kinds, serialized the way
// IpcMessages.cc's toJSONIndexJob does: {"kind": ..., "details": ...}.
type IndexJob struct {
	Kind    JobKind         `json:"kind"`
	Details json.RawMessage `json:"details"`
}

// NewSemanticAnalysisJob builds a Phase A IndexJob.
func NewSemanticAnalysisJob(details SemanticAnalysisJobDetails) (IndexJob, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return IndexJob{}, err
	}
	return IndexJob{Kind: SemanticAnalysis, Details: raw}, nil
}

// NewEmitIndexJob builds a Phase B IndexJob.
func NewEmitIndexJob(details EmitIndexJobDetails) (IndexJob, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return IndexJob{}, err
	}
	return IndexJob{Kind: EmitIndex, Details: raw}, nil
}

// AsSemanticAnalysis unmarshals the job's details, failing if Kind isn't
// SemanticAnalysis.
func (j IndexJob) AsSemanticAnalysis() (SemanticAnalysisJobDetails, error) {
	var d SemanticAnalysisJobDetails
	if j.Kind != SemanticAnalysis {
		return d, fmt.Errorf("ipc: IndexJob.Kind is %q, not %q", j.Kind, SemanticAnalysis)
	}
	err := json.Unmarshal(j.Details, &d)
	return d, err
}

// AsEmitIndex unmarshals the job's details, failing if Kind isn't EmitIndex.
func (j IndexJob) AsEmitIndex() (EmitIndexJobDetails, error) {
	var d EmitIndexJobDetails
	if j.Kind != EmitIndex {
		return d, fmt.Errorf("ipc: IndexJob.Kind is %q, not %q", j.Kind, EmitIndex)
	}
	err := json.Unmarshal(j.Details, &d)
	return d, err
}

// IndexJobRequest is one driver->worker message (IpcMessages.cc's
// DERIVE_SERIALIZE_2(IndexJobRequest, id, job)).
type IndexJobRequest struct {
	ID  jobid.JobId `json:"id"`
	Job IndexJob    `json:"job"`
}

// ShardPaths names the two shard files a Phase B task writes to disk for
// the driver's index builder to pick up (spec §4.2.4).
type ShardPaths struct {
	DocsAndExternals string `json:"docsAndExternals"`
	ForwardDecls     string `json:"forwardDecls"`
}

// IndexingStatistics summarizes one Phase B task's work, extended beyond
// the original's totalTimeMicros with counts the supplemented spec tracks
// for driver-level reporting (SPEC_FULL.md §12 item 5).
type IndexingStatistics struct {
	TotalTimeMicros      int64 `json:"totalTimeMicros"`
	FilesIndexed         int   `json:"filesIndexed"`
	OccurrencesEmitted   int   `json:"occurrencesEmitted"`
	ParseDiagnosticCount int   `json:"parseDiagnosticCount"`
}

// SemanticAnalysisJobResult is Phase A's response payload: the set of
// preprocessor-effect hashes this task observed, split into well-behaved
// and ill-behaved per internal/hashutil.Observations.Seal.
type SemanticAnalysisJobResult struct {
	WellBehavedFiles []hashutil.PreprocessedFileInfo      `json:"wellBehavedFiles"`
	IllBehavedFiles  []hashutil.PreprocessedFileInfoMulti `json:"illBehavedFiles"`
}

// EmitIndexJobResult is Phase B's response payload.
type EmitIndexJobResult struct {
	Statistics IndexingStatistics `json:"statistics"`
	ShardPaths ShardPaths         `json:"shardPaths"`
}

// IndexJobResult is a tagged union over the two result kinds, mirroring
// IndexJob's {"kind", "details"} shape.
type IndexJobResult struct {
	Kind    JobKind         `json:"kind"`
	Details json.RawMessage `json:"details"`
}

// NewSemanticAnalysisResult builds a Phase A IndexJobResult.
func NewSemanticAnalysisResult(result SemanticAnalysisJobResult) (IndexJobResult, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return IndexJobResult{}, err
	}
	return IndexJobResult{Kind: SemanticAnalysis, Details: raw}, nil
}

// NewEmitIndexResult builds a Phase B IndexJobResult.
func NewEmitIndexResult(result EmitIndexJobResult) (IndexJobResult, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return IndexJobResult{}, err
	}
	return IndexJobResult{Kind: EmitIndex, Details: raw}, nil
}

// AsSemanticAnalysis unmarshals the result's details, failing if Kind isn't
// SemanticAnalysis.
func (r IndexJobResult) AsSemanticAnalysis() (SemanticAnalysisJobResult, error) {
	var d SemanticAnalysisJobResult
	if r.Kind != SemanticAnalysis {
		return d, fmt.Errorf("ipc: IndexJobResult.Kind is %q, not %q", r.Kind, SemanticAnalysis)
	}
	err := json.Unmarshal(r.Details, &d)
	return d, err
}

// AsEmitIndex unmarshals the result's details, failing if Kind isn't
// EmitIndex.
func (r IndexJobResult) AsEmitIndex() (EmitIndexJobResult, error) {
	var d EmitIndexJobResult
	if r.Kind != EmitIndex {
		return d, fmt.Errorf("ipc: IndexJobResult.Kind is %q, not %q", r.Kind, EmitIndex)
	}
	err := json.Unmarshal(r.Details, &d)
	return d, err
}

// IndexJobResponse is one worker->driver message (IpcMessages.cc's
// toJSON(const IndexJobResponse&)).
type IndexJobResponse struct {
	WorkerID uint32         `json:"workerId"`
	JobID    jobid.JobId    `json:"jobId"`
	Result   IndexJobResult `json:"result"`
}

// IpcTestMessage is a bare content-carrying message used by the testing
// WorkerMode and by transport tests, mirroring IpcMessages.cc's
// DERIVE_SERIALIZE_1_NEWTYPE(IpcTestMessage, content).
type IpcTestMessage struct {
	Content string `json:"content"`
}
