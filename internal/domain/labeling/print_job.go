package labeling

import (
	"time"

	"github.com/erp/labelstation/internal/domain/shared"
)

// PrintJob represents one submission of a label document to a printer device.
// It is created by the transport and driven to a terminal state by the monitor.
type PrintJob struct {
	Handle       string    // backend assigned job identifier
	Device       string    // target printer device name
	TagID        TagID     // tag printed by this job, if any
	CreatedAt    time.Time // submission time
	State        JobState  // current lifecycle state
	UnknownReads int       // consecutive indeterminate status reads
	Reason       string    // detail for failure states
	UpdatedAt    time.Time
}

// NewPrintJob creates a job in SUBMITTED state
func NewPrintJob(handle, device string) (*PrintJob, error) {
	if handle == "" {
		return nil, shared.NewDomainError("INVALID_JOB_HANDLE", "Job handle cannot be empty")
	}
	if device == "" {
		return nil, shared.NewDomainError("INVALID_DEVICE", "Device name cannot be empty")
	}
	now := time.Now()
	return &PrintJob{
		Handle:    handle,
		Device:    device,
		CreatedAt: now,
		State:     JobStateSubmitted,
		UpdatedAt: now,
	}, nil
}

// MarkPrinting records a definitive in-progress read and resets the unknown counter
func (j *PrintJob) MarkPrinting() error {
	if err := j.transition(JobStatePrinting); err != nil {
		return err
	}
	j.UnknownReads = 0
	return nil
}

// MarkUnknown records an indeterminate read and returns the consecutive count
func (j *PrintJob) MarkUnknown() (int, error) {
	if err := j.transition(JobStateUnknown); err != nil {
		return j.UnknownReads, err
	}
	j.UnknownReads++
	return j.UnknownReads, nil
}

// Complete marks the job as printed
func (j *PrintJob) Complete() error {
	return j.transition(JobStateCompleted)
}

// MarkDeleted marks the job as removed from the queue
func (j *PrintJob) MarkDeleted(reason string) error {
	j.Reason = reason
	return j.transition(JobStateDeleted)
}

// Fail marks the job as failed with an error reason
func (j *PrintJob) Fail(reason string) error {
	j.Reason = reason
	return j.transition(JobStateError)
}

// Abort marks the job as abandoned after unknown status escalation.
// Only reachable from UNKNOWN.
func (j *PrintJob) Abort(reason string) error {
	j.Reason = reason
	return j.transition(JobStateAborted)
}

// IsTerminal returns true if the job is in a terminal state
func (j *PrintJob) IsTerminal() bool {
	return j.State.IsTerminal()
}

// Succeeded returns true if the job completed
func (j *PrintJob) Succeeded() bool {
	return j.State.IsSuccess()
}

func (j *PrintJob) transition(target JobState) error {
	if !j.State.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot move print job from "+j.State.String()+" to "+target.String())
	}
	j.State = target
	j.UpdatedAt = time.Now()
	return nil
}
