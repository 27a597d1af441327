package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
)

// JobStatus represents the status of a computation job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusAborted   JobStatus = "ABORTED"
)

// Terminal reports whether the job has been resolved
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusAborted
}

// JobPurpose records why a job was dispatched so the callback knows which
// goal effect, if any, applies.
type JobPurpose string

const (
	JobPurposeNone   JobPurpose = ""
	JobPurposeFold   JobPurpose = "fold"
	JobPurposeCheck  JobPurpose = "check"
	JobPurposeReveal JobPurpose = "reveal"
)

// ComputationJob is one asynchronous invocation of a circuit
type ComputationJob struct {
	Offset      uint64             `json:"offset"`
	Opcode      circuit.Opcode     `json:"opcode"`
	Circuit     string             `json:"circuit"`
	Version     uint32             `json:"version"`
	Inputs      []circuit.Argument `json:"inputs"`
	AudienceKey circuit.PublicKey  `json:"audienceKey"`
	Nonce       circuit.Nonce      `json:"nonce"`
	Status      JobStatus          `json:"status"`

	// Goal binding
	Goal         *GoalKey         `json:"goal,omitempty"`
	Purpose      JobPurpose       `json:"purpose,omitempty"`
	Folds        []common.Address `json:"folds,omitempty"`
	BaseTotal    uint64           `json:"baseTotal,omitempty"`
	Contributors []common.Address `json:"contributors,omitempty"`

	// Set on resolution
	Output *circuit.Output `json:"output,omitempty"`
	Reason string          `json:"reason,omitempty"`

	QueuedAt   time.Time  `json:"queuedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// JobResolution is the terminal state recorded for a job
type JobResolution struct {
	Status JobStatus
	Output *circuit.Output
	Reason string
	At     time.Time
}

// Apply records the resolution on the job
func (j *ComputationJob) Apply(res JobResolution) {
	at := res.At
	j.Status = res.Status
	j.Output = res.Output
	j.Reason = res.Reason
	j.ResolvedAt = &at
}

// IsQueued reports whether the job is still outstanding
func (j *ComputationJob) IsQueued() bool {
	return j.Status == JobStatusQueued
}

// Clone returns a deep copy
func (j *ComputationJob) Clone() *ComputationJob {
	clone := *j
	clone.Inputs = append([]circuit.Argument(nil), j.Inputs...)
	clone.Folds = append([]common.Address(nil), j.Folds...)
	clone.Contributors = append([]common.Address(nil), j.Contributors...)
	if j.Goal != nil {
		g := *j.Goal
		clone.Goal = &g
	}
	if j.Output != nil {
		out := *j.Output
		out.Sealed = append([]circuit.Ciphertext(nil), j.Output.Sealed...)
		clone.Output = &out
	}
	if j.ResolvedAt != nil {
		r := *j.ResolvedAt
		clone.ResolvedAt = &r
	}
	return &clone
}
