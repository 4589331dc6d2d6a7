package printing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/erp/labelstation/internal/domain/labeling"
	"go.uber.org/zap"
)

// Transport errors
var (
	ErrPrinterOffline = errors.New("printer is offline or not ready")
	ErrDeviceNotFound = errors.New("printer device not found")
	ErrSubmitRefused  = errors.New("print submission refused")
)

// DeviceStatus is a point-in-time reading of a printer device
type DeviceStatus struct {
	Found  bool   `json:"found"`
	Online bool   `json:"online"` // enabled and accepting jobs
	Idle   bool   `json:"idle"`   // nothing printing
	Detail string `json:"detail,omitempty"`
}

// Ready reports whether a document may be submitted
func (s DeviceStatus) Ready() bool {
	return s.Found && s.Online
}

// Transport submits label documents to a printer device. Implementations
// never panic; every failure is a returned error.
type Transport interface {
	Name() string
	DeviceStatus(ctx context.Context, device string) (DeviceStatus, error)
	// Submit checks readiness first and refuses without sending anything when
	// the device is not ready.
	Submit(ctx context.Context, device string, document []byte) (*labeling.PrintJob, error)
}

// JobStatus is the raw status of a job in the device queue
type JobStatus struct {
	Present bool   // still enumerable in the active queue
	Status  string // backend specific state text
}

// JobInspector is implemented by transports that can introspect and cancel jobs
type JobInspector interface {
	JobStatus(ctx context.Context, device, handle string) (JobStatus, error)
	CancelJob(ctx context.Context, device, handle string) error
	PurgeQueue(ctx context.Context, device string) error
}

// checkReady runs the readiness pre-check shared by all backends
func checkReady(ctx context.Context, t Transport, device string) error {
	status, err := t.DeviceStatus(ctx, device)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubmitRefused, err)
	}
	if !status.Found {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, device)
	}
	if !status.Online {
		return fmt.Errorf("%w: %s", ErrPrinterOffline, device)
	}
	return nil
}

// Backend names accepted by SelectTransport
const (
	BackendAuto      = "auto"
	BackendCUPS      = "cups"
	BackendSimulated = "simulated"
)

// TransportConfig selects and configures the printer transport
type TransportConfig struct {
	Backend   string
	CUPS      CUPSConfig
	Simulated SimulatedConfig
	Logger    *zap.Logger
}

// SelectTransport builds the transport once at startup. In auto mode the CUPS
// backend is used when lp and lpstat are installed, otherwise the simulated one.
func SelectTransport(cfg TransportConfig) (Transport, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.CUPS.Logger = logger
	cfg.Simulated.Logger = logger

	switch cfg.Backend {
	case BackendCUPS:
		if err := cfg.CUPS.resolveBinaries(); err != nil {
			return nil, err
		}
		return NewCUPSTransport(&cfg.CUPS), nil
	case BackendSimulated:
		return NewSimulatedTransport(&cfg.Simulated), nil
	case BackendAuto, "":
		if err := cfg.CUPS.resolveBinaries(); err != nil {
			logger.Info("native printing unavailable, using simulated transport", zap.Error(err))
			return NewSimulatedTransport(&cfg.Simulated), nil
		}
		logger.Info("using CUPS printer transport", zap.String("lp", cfg.CUPS.LPPath))
		return NewCUPSTransport(&cfg.CUPS), nil
	default:
		return nil, fmt.Errorf("unknown printer backend %q", cfg.Backend)
	}
}

// resolveBinaryPath finds the full path to the binary
func resolveBinaryPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}
	return exec.LookPath(path)
}
