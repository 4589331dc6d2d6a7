package printing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRunner is a mock implementation of CommandRunner
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
	callArgs := m.Called(name, strings.Join(args, " "), string(stdin))
	out, _ := callArgs.Get(0).(string)
	return []byte(out), callArgs.Error(1)
}

const (
	lpstatIdle = "printer ZD621 is idle.  enabled since Mon 01 Jan 2024 10:00:00 AM UTC\n" +
		"ZD621 accepting requests since Mon 01 Jan 2024 10:00:00 AM UTC\n"
	lpstatPrinting = "printer ZD621 now printing ZD621-41.  enabled since Mon 01 Jan 2024 10:00:00 AM UTC\n" +
		"ZD621 accepting requests since Mon 01 Jan 2024 10:00:00 AM UTC\n"
	lpstatDisabled = "printer ZD621 disabled since Mon 01 Jan 2024 10:00:00 AM UTC -\n" +
		"\tPaused\n" +
		"ZD621 accepting requests since Mon 01 Jan 2024 10:00:00 AM UTC\n"
	lpstatRejecting = "printer ZD621 is idle.  enabled since Mon 01 Jan 2024 10:00:00 AM UTC\n" +
		"ZD621 not accepting requests since Mon 01 Jan 2024 10:00:00 AM UTC -\n" +
		"\tRejecting Jobs\n"
	lpstatJobs = "ZD621-41                root            1024   Mon 01 Jan 2024 10:00:00 AM UTC\n" +
		"\tStatus: Connected to printer.\n" +
		"\tAlerts: job-printing\n" +
		"\tqueued for ZD621\n" +
		"ZD621-42                root            1024   Mon 01 Jan 2024 10:00:01 AM UTC\n" +
		"\tAlerts: job-incoming\n" +
		"\tqueued for ZD621\n"
	lpstatJobQueued = "ZD621-41                root            1024   Mon 01 Jan 2024 10:00:00 AM UTC\n" +
		"\tAlerts: none\n" +
		"\tqueued for ZD621\n"
	lpstatJobAwaitingCompletion = "ZD621-41                root            1024   Mon 01 Jan 2024 10:00:00 AM UTC\n" +
		"\tStatus: Sending data to printer.\n" +
		"\tAlerts: job-printing, cups-waiting-for-job-completed\n" +
		"\tqueued for ZD621\n"
)

func newTestCUPS(runner CommandRunner) *CUPSTransport {
	return NewCUPSTransport(&CUPSConfig{Runner: runner})
}

func TestParsePrinterStatus(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected DeviceStatus
	}{
		{"idle", lpstatIdle, DeviceStatus{Found: true, Online: true, Idle: true}},
		{"printing", lpstatPrinting, DeviceStatus{Found: true, Online: true, Idle: false}},
		{"disabled", lpstatDisabled, DeviceStatus{Found: true, Online: false, Idle: false}},
		{"rejecting", lpstatRejecting, DeviceStatus{Found: true, Online: false, Idle: true}},
		{"empty", "", DeviceStatus{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePrinterStatus("ZD621", tt.output)
			assert.Equal(t, tt.expected.Found, got.Found)
			assert.Equal(t, tt.expected.Online, got.Online)
			assert.Equal(t, tt.expected.Idle, got.Idle)
		})
	}
}

func TestParseJobStatus(t *testing.T) {
	assert.Equal(t, JobStatus{Present: true, Status: "job-printing"}, parseJobStatus("ZD621-41", lpstatJobs))
	assert.Equal(t, JobStatus{Present: true, Status: "job-incoming"}, parseJobStatus("ZD621-42", lpstatJobs))
	assert.Equal(t, JobStatus{Present: false}, parseJobStatus("ZD621-43", lpstatJobs))
	assert.Equal(t, JobStatus{Present: false}, parseJobStatus("ZD621-4", lpstatJobs))
}

func TestCUPSTransport_DeviceStatusUnknownDestination(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", "lpstat", "-p ZD621 -a ZD621", "").
		Return(`lpstat: Invalid destination name in list "ZD621".`, errors.New("exit status 1"))

	status, err := newTestCUPS(runner).DeviceStatus(context.Background(), "ZD621")
	require.NoError(t, err)
	assert.False(t, status.Found)
	assert.False(t, status.Ready())
}

func TestCUPSTransport_DeviceStatusCommandFailure(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", "lpstat", "-p ZD621 -a ZD621", "").
		Return("lpstat: Bad file descriptor", errors.New("exit status 1"))

	_, err := newTestCUPS(runner).DeviceStatus(context.Background(), "ZD621")
	assert.Error(t, err)
}

func TestCUPSTransport_Submit(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", "lpstat", "-p ZD621 -a ZD621", "").Return(lpstatIdle, nil)
	runner.On("Run", "lp", "-d ZD621 -o raw -t ZPL Print Job", "^XA^XZ").
		Return("request id is ZD621-42 (1 file(s))\n", nil)

	job, err := newTestCUPS(runner).Submit(context.Background(), "ZD621", []byte("^XA^XZ"))
	require.NoError(t, err)
	assert.Equal(t, "ZD621-42", job.Handle)
	assert.Equal(t, "ZD621", job.Device)
	runner.AssertExpectations(t)
}

func TestCUPSTransport_SubmitRefusedWhenOffline(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", "lpstat", "-p ZD621 -a ZD621", "").Return(lpstatDisabled, nil)

	job, err := newTestCUPS(runner).Submit(context.Background(), "ZD621", []byte("^XA^XZ"))
	assert.Nil(t, job)
	assert.ErrorIs(t, err, ErrPrinterOffline)
	runner.AssertNotCalled(t, "Run", "lp", mock.Anything, mock.Anything)
}

func TestCUPSTransport_SubmitRefusedWhenMissing(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", "lpstat", "-p ZD621 -a ZD621", "").
		Return(`lpstat: Invalid destination name in list "ZD621".`, errors.New("exit status 1"))

	_, err := newTestCUPS(runner).Submit(context.Background(), "ZD621", []byte("^XA^XZ"))
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestCUPSTransport_SubmitUnexpectedOutput(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", "lpstat", "-p ZD621 -a ZD621", "").Return(lpstatIdle, nil)
	runner.On("Run", "lp", mock.Anything, mock.Anything).Return("", nil)

	_, err := newTestCUPS(runner).Submit(context.Background(), "ZD621", []byte("^XA^XZ"))
	assert.ErrorIs(t, err, ErrSubmitRefused)
}

func TestCUPSTransport_SubmitLPFailure(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", "lpstat", "-p ZD621 -a ZD621", "").Return(lpstatIdle, nil)
	runner.On("Run", "lp", mock.Anything, mock.Anything).
		Return("lp: The printer or class does not exist.", errors.New("exit status 1"))

	_, err := newTestCUPS(runner).Submit(context.Background(), "ZD621", []byte("^XA^XZ"))
	assert.ErrorIs(t, err, ErrSubmitRefused)
}

func TestCUPSTransport_JobStatusCancelPurge(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", "lpstat", "-l -o ZD621", "").Return(lpstatJobs, nil)
	runner.On("Run", "cancel", "ZD621-42", "").Return("", nil)
	runner.On("Run", "cancel", "-a ZD621", "").Return("", nil)

	cups := newTestCUPS(runner)
	ctx := context.Background()

	status, err := cups.JobStatus(ctx, "ZD621", "ZD621-42")
	require.NoError(t, err)
	assert.True(t, status.Present)
	assert.Equal(t, "job-incoming", status.Status)

	require.NoError(t, cups.CancelJob(ctx, "ZD621", "ZD621-42"))
	require.NoError(t, cups.PurgeQueue(ctx, "ZD621"))
	runner.AssertExpectations(t)
}

func TestCUPSTransport_CancelFailure(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", "cancel", "ZD621-42", "").Return("cancel: Job #42 does not exist.", errors.New("exit status 1"))

	err := newTestCUPS(runner).CancelJob(context.Background(), "ZD621", "ZD621-42")
	assert.Error(t, err)
}

func TestParseJobStatus_RealisticAlerts(t *testing.T) {
	assert.Equal(t, JobStatus{Present: true, Status: "none"}, parseJobStatus("ZD621-41", lpstatJobQueued))
	assert.Equal(t,
		JobStatus{Present: true, Status: "job-printing, cups-waiting-for-job-completed"},
		parseJobStatus("ZD621-41", lpstatJobAwaitingCompletion))
}

func awaitCUPS(t *testing.T, runner *MockRunner) *labeling.PrintJob {
	t.Helper()
	job, err := labeling.NewPrintJob("ZD621-41", "ZD621")
	require.NoError(t, err)
	monitor := NewMonitor(newTestCUPS(runner), &MonitorConfig{PollInterval: time.Millisecond})
	monitor.Await(context.Background(), job)
	return job
}

func TestCUPSMonitor_QueuedJobWithoutAlertsIsNotCancelled(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", "lpstat", "-l -o ZD621", "").Return(lpstatJobQueued, nil).Times(8)
	runner.On("Run", "lpstat", "-l -o ZD621", "").Return("", nil).Once()
	runner.On("Run", "lpstat", "-p ZD621 -a ZD621", "").Return(lpstatIdle, nil).Once()

	job := awaitCUPS(t, runner)

	assert.Equal(t, labeling.JobStateCompleted, job.State)
	runner.AssertExpectations(t)
	runner.AssertNotCalled(t, "Run", "cancel", mock.Anything, mock.Anything)
}

func TestCUPSMonitor_WaitingForCompletionKeepsPolling(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", "lpstat", "-l -o ZD621", "").Return(lpstatJobAwaitingCompletion, nil).Times(3)
	runner.On("Run", "lpstat", "-l -o ZD621", "").Return("", nil).Twice()
	runner.On("Run", "lpstat", "-p ZD621 -a ZD621", "").Return(lpstatPrinting, nil).Once()
	runner.On("Run", "lpstat", "-p ZD621 -a ZD621", "").Return(lpstatIdle, nil).Once()

	job := awaitCUPS(t, runner)

	assert.Equal(t, labeling.JobStateCompleted, job.State)
	assert.Equal(t, 0, job.UnknownReads)
	runner.AssertExpectations(t)
	runner.AssertNotCalled(t, "Run", "cancel", mock.Anything, mock.Anything)
}

func TestCUPSMonitor_UnreadableStatusEscalates(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", "lpstat", "-l -o ZD621", "").
		Return("lpstat: scheduler is not running", errors.New("exit status 1"))
	runner.On("Run", "cancel", "ZD621-41", "").Return("", nil).Once()
	runner.On("Run", "cancel", "-a ZD621", "").Return("", nil).Once()

	job := awaitCUPS(t, runner)

	assert.Equal(t, labeling.JobStateAborted, job.State)
	runner.AssertExpectations(t)
	runner.AssertNumberOfCalls(t, "Run", 7)
}

func TestSpoolerCommand_PinsCLocale(t *testing.T) {
	t.Setenv("LC_ALL", "de_DE.UTF-8")
	t.Setenv("LANG", "de_DE.UTF-8")

	cmd := spoolerCommand(context.Background(), "lpstat", []string{"-p", "ZD621"}, []byte("^XA^XZ"))

	assert.Equal(t, "C", lastEnv(cmd.Env, "LC_ALL"))
	assert.Equal(t, "C", lastEnv(cmd.Env, "LANG"))
	assert.Equal(t, []string{"lpstat", "-p", "ZD621"}, cmd.Args)
	assert.NotNil(t, cmd.Stdin)
}

// lastEnv returns the effective value of key, where later entries win
func lastEnv(env []string, key string) string {
	value := ""
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			value = v
		}
	}
	return value
}
