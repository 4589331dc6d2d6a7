package printing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport replays a fixed sequence of job status reads
type scriptedTransport struct {
	mu        sync.Mutex
	statuses  []JobStatus
	statusErr error
	device    DeviceStatus
	reads     int
	calls     []string
}

func (s *scriptedTransport) Name() string { return "scripted" }

func (s *scriptedTransport) DeviceStatus(context.Context, string) (DeviceStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "device")
	return s.device, nil
}

func (s *scriptedTransport) Submit(_ context.Context, device string, _ []byte) (*labeling.PrintJob, error) {
	return labeling.NewPrintJob("job-1", device)
}

func (s *scriptedTransport) JobStatus(context.Context, string, string) (JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "status")
	if s.statusErr != nil {
		return JobStatus{}, s.statusErr
	}
	i := s.reads
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	s.reads++
	return s.statuses[i], nil
}

func (s *scriptedTransport) CancelJob(context.Context, string, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "cancel")
	return nil
}

func (s *scriptedTransport) PurgeQueue(context.Context, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "purge")
	return nil
}

func (s *scriptedTransport) callSequence() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func present(status string) JobStatus { return JobStatus{Present: true, Status: status} }

func awaitScripted(t *testing.T, transport *scriptedTransport) *labeling.PrintJob {
	t.Helper()
	job, err := transport.Submit(context.Background(), "ZD621", nil)
	require.NoError(t, err)
	monitor := NewMonitor(transport, &MonitorConfig{PollInterval: time.Millisecond})
	monitor.Await(context.Background(), job)
	return job
}

func TestMonitor_Transitions(t *testing.T) {
	tests := []struct {
		name     string
		statuses []JobStatus
		device   DeviceStatus
		expected labeling.JobState
	}{
		{"completed", []JobStatus{present("job-printing"), present("job-completed-successfully")}, DeviceStatus{}, labeling.JobStateCompleted},
		{"deleted", []JobStatus{present("job-canceled-by-user")}, DeviceStatus{}, labeling.JobStateDeleted},
		{"error", []JobStatus{present("job-printing"), present("printer-stopped")}, DeviceStatus{}, labeling.JobStateError},
		{"vanished with idle device", []JobStatus{present("job-printing"), {Present: false}}, DeviceStatus{Found: true, Online: true, Idle: true}, labeling.JobStateCompleted},
		{"vanished with missing device", []JobStatus{{Present: false}}, DeviceStatus{Found: false}, labeling.JobStateError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := awaitScripted(t, &scriptedTransport{statuses: tt.statuses, device: tt.device})
			assert.Equal(t, tt.expected, job.State)
		})
	}
}

func TestMonitor_VanishedWithBusyDeviceKeepsPolling(t *testing.T) {
	transport := &scriptedTransport{
		statuses: []JobStatus{{Present: false}, {Present: false}, present("job-completed-successfully")},
		device:   DeviceStatus{Found: true, Online: true, Idle: false},
	}
	job := awaitScripted(t, transport)
	assert.Equal(t, labeling.JobStateCompleted, job.State)
	assert.Equal(t, []string{"status", "device", "status", "device", "status"}, transport.callSequence())
}

func TestMonitor_UnknownEscalationAbortsAfterThreshold(t *testing.T) {
	transport := &scriptedTransport{statuses: []JobStatus{present("something-odd")}}
	job := awaitScripted(t, transport)

	assert.Equal(t, labeling.JobStateAborted, job.State)
	assert.Equal(t, 5, job.UnknownReads)
	assert.Equal(t,
		[]string{"status", "status", "status", "status", "status", "cancel", "purge"},
		transport.callSequence())
}

func TestMonitor_StatusErrorsCountAsUnknown(t *testing.T) {
	transport := &scriptedTransport{statusErr: errors.New("lpstat: scheduler not responding")}
	job := awaitScripted(t, transport)
	assert.Equal(t, labeling.JobStateAborted, job.State)
}

func TestMonitor_DefinitiveReadResetsUnknownCounter(t *testing.T) {
	transport := &scriptedTransport{statuses: []JobStatus{
		present("?"), present("?"), present("?"), present("?"),
		present("job-printing"),
		present("?"), present("?"), present("?"), present("?"),
		present("job-completed-successfully"),
	}}
	job := awaitScripted(t, transport)
	assert.Equal(t, labeling.JobStateCompleted, job.State)
	assert.NotContains(t, transport.callSequence(), "cancel")
}

func TestMonitor_QueuedJobWithoutReasonsKeepsPolling(t *testing.T) {
	transport := &scriptedTransport{statuses: []JobStatus{
		present("none"), present("none"), present("none"), present("none"),
		present("none"), present("none"), present(""),
		present("job-printing, cups-waiting-for-job-completed"),
		present("job-completed-successfully"),
	}}
	job := awaitScripted(t, transport)

	assert.Equal(t, labeling.JobStateCompleted, job.State)
	assert.Equal(t, 0, job.UnknownReads)
	assert.NotContains(t, transport.callSequence(), "cancel")
	assert.NotContains(t, transport.callSequence(), "purge")
}

func TestMonitor_ContextCancelEndsInError(t *testing.T) {
	transport := &scriptedTransport{statuses: []JobStatus{present("job-printing")}}
	job, err := transport.Submit(context.Background(), "ZD621", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	state := NewMonitor(transport, &MonitorConfig{PollInterval: 5 * time.Millisecond}).Await(ctx, job)
	assert.Equal(t, labeling.JobStateError, state)
	assert.Contains(t, job.Reason, "monitoring cancelled")
}

func TestClassifyJobStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected labeling.JobState
	}{
		{"", labeling.JobStatePrinting},
		{"none", labeling.JobStatePrinting},
		{"something-odd", labeling.JobStateUnknown},
		{"something-odd, another-oddity", labeling.JobStateUnknown},
		{"job-completed-successfully", labeling.JobStateCompleted},
		{"job-completed-with-warnings", labeling.JobStateCompleted},
		{"completed", labeling.JobStateCompleted},
		{"cups-waiting-for-job-completed", labeling.JobStatePrinting},
		{"job-printing, cups-waiting-for-job-completed", labeling.JobStatePrinting},
		{"cups-held-for-authentication", labeling.JobStatePrinting},
		{"job-printing, job-completed-successfully", labeling.JobStateCompleted},
		{"job-completed-successfully, printer-stopped", labeling.JobStateError},
		{"job-printing, something-odd", labeling.JobStatePrinting},
		{"job-completed-with-errors", labeling.JobStateError},
		{"job-canceled-by-user", labeling.JobStateDeleted},
		{"Deleted", labeling.JobStateDeleted},
		{"aborted-by-system", labeling.JobStateError},
		{"printer-stopped", labeling.JobStateError},
		{"job-printing", labeling.JobStatePrinting},
		{"processing-to-stop-point", labeling.JobStatePrinting},
		{"job-incoming", labeling.JobStatePrinting},
		{"job-hold-until-specified", labeling.JobStatePrinting},
		{"pending", labeling.JobStatePrinting},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyJobStatus(tt.raw))
		})
	}
}
