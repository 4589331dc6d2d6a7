package printing

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/erp/labelstation/internal/domain/labeling"
	"go.uber.org/zap"
)

const (
	defaultSimulatedDelay = time.Second
	simulatedLogPreview   = 200
	simulatedIDModulus    = 100000
)

// SimulatedConfig contains configuration for the simulated transport
type SimulatedConfig struct {
	// Delay is how long the monitor waits before reporting completion
	Delay  time.Duration
	Now    func() time.Time
	Logger *zap.Logger
}

// SimulatedTransport stands in for a printer when no native spooler exists.
// It logs the document and always succeeds.
type SimulatedTransport struct {
	delay  time.Duration
	now    func() time.Time
	seq    atomic.Uint64
	logger *zap.Logger
}

// NewSimulatedTransport creates a new simulated transport
func NewSimulatedTransport(cfg *SimulatedConfig) *SimulatedTransport {
	if cfg == nil {
		cfg = &SimulatedConfig{}
	}
	if cfg.Delay == 0 {
		cfg.Delay = defaultSimulatedDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedTransport{delay: cfg.Delay, now: cfg.Now, logger: logger}
}

// Name returns the backend name
func (t *SimulatedTransport) Name() string {
	return BackendSimulated
}

// SettleDelay is the bounded wait the monitor applies to simulated jobs
func (t *SimulatedTransport) SettleDelay() time.Duration {
	return t.delay
}

// DeviceStatus always reports a ready, idle device
func (t *SimulatedTransport) DeviceStatus(_ context.Context, device string) (DeviceStatus, error) {
	return DeviceStatus{Found: true, Online: true, Idle: true, Detail: "simulated printer " + device}, nil
}

// Submit logs the document and returns a synthetic job
func (t *SimulatedTransport) Submit(ctx context.Context, device string, document []byte) (*labeling.PrintJob, error) {
	if err := checkReady(ctx, t, device); err != nil {
		return nil, err
	}

	preview := document
	if len(preview) > simulatedLogPreview {
		preview = preview[:simulatedLogPreview]
	}
	handle := fmt.Sprintf("%d-%d", t.now().UnixMilli()%simulatedIDModulus, t.seq.Add(1))

	t.logger.Info("simulated print job",
		zap.String("device", device),
		zap.String("job", handle),
		zap.Int("bytes", len(document)),
		zap.String("content", string(preview)))

	return labeling.NewPrintJob(handle, device)
}
