package labeling

// JobState represents the lifecycle state of a print job on a device
type JobState string

const (
	JobStateSubmitted JobState = "SUBMITTED" // handed to the device queue
	JobStatePrinting  JobState = "PRINTING"  // device reports work in progress
	JobStateUnknown   JobState = "UNKNOWN"   // device status indeterminate
	JobStateCompleted JobState = "COMPLETED" // label printed
	JobStateDeleted   JobState = "DELETED"   // removed from the queue before completion
	JobStateError     JobState = "ERROR"     // device reported an error
	JobStateAborted   JobState = "ABORTED"   // cancelled after too many indeterminate reads
)

// IsValid checks if the JobState is a valid value
func (s JobState) IsValid() bool {
	switch s {
	case JobStateSubmitted, JobStatePrinting, JobStateUnknown,
		JobStateCompleted, JobStateDeleted, JobStateError, JobStateAborted:
		return true
	}
	return false
}

// String returns the string representation of JobState
func (s JobState) String() string {
	return string(s)
}

// IsTerminal returns true if this is a terminal state (no further transitions)
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateCompleted, JobStateDeleted, JobStateError, JobStateAborted:
		return true
	}
	return false
}

// IsSuccess returns true only for COMPLETED
func (s JobState) IsSuccess() bool {
	return s == JobStateCompleted
}

// CanTransitionTo checks if the state can transition to the target state
func (s JobState) CanTransitionTo(target JobState) bool {
	switch s {
	case JobStateSubmitted, JobStatePrinting:
		switch target {
		case JobStatePrinting, JobStateUnknown, JobStateCompleted, JobStateDeleted, JobStateError:
			return true
		}
	case JobStateUnknown:
		switch target {
		case JobStatePrinting, JobStateUnknown, JobStateCompleted, JobStateDeleted, JobStateError, JobStateAborted:
			return true
		}
	}
	return false
}

// FailureClass categorises why a batch stopped early
type FailureClass string

const (
	FailureValidation     FailureClass = "VALIDATION"
	FailureSession        FailureClass = "SESSION"
	FailurePrinterOffline FailureClass = "PRINTER_OFFLINE"
	FailureTransport      FailureClass = "TRANSPORT"
	FailureMonitor        FailureClass = "MONITOR"
	FailureRecording      FailureClass = "RECORDING"
)

// String returns the string representation of FailureClass
func (c FailureClass) String() string {
	return string(c)
}

// DisplayName returns the operator facing name of the failure class
func (c FailureClass) DisplayName() string {
	switch c {
	case FailureValidation:
		return "Validation error"
	case FailureSession:
		return "Authentication required"
	case FailurePrinterOffline:
		return "Printer offline"
	case FailureTransport:
		return "Print error"
	case FailureMonitor:
		return "Print job failed"
	case FailureRecording:
		return "Database error"
	default:
		return string(c)
	}
}

// BatchStatus represents the status of a batch run
type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "PENDING"
	BatchStatusRunning   BatchStatus = "RUNNING"
	BatchStatusSucceeded BatchStatus = "SUCCEEDED"
	BatchStatusFailed    BatchStatus = "FAILED"
)

// String returns the string representation of BatchStatus
func (s BatchStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the batch has finished
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusSucceeded || s == BatchStatusFailed
}
