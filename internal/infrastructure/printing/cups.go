package printing

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/erp/labelstation/internal/domain/labeling"
	"go.uber.org/zap"
)

const (
	defaultLPPath         = "lp"
	defaultLPStatPath     = "lpstat"
	defaultCancelPath     = "cancel"
	defaultCommandTimeout = 5 * time.Second

	cupsJobTitle = "ZPL Print Job"
)

var requestIDPattern = regexp.MustCompile(`request id is (\S+)`)

// CommandRunner executes a spooler command and returns its combined output
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error)
}

// execRunner runs commands on the host
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
	return spoolerCommand(ctx, name, args, stdin).CombinedOutput()
}

// spoolerCommand builds a spooler invocation pinned to the C locale, since
// the status parsers match the untranslated CUPS messages.
func spoolerCommand(ctx context.Context, name string, args []string, stdin []byte) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C", "LANG=C", "LANGUAGE=C")
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	return cmd
}

// CUPSConfig contains configuration for the CUPS transport
type CUPSConfig struct {
	LPPath         string
	LPStatPath     string
	CancelPath     string
	CommandTimeout time.Duration
	Runner         CommandRunner
	Logger         *zap.Logger
}

func (c *CUPSConfig) applyDefaults() {
	if c.LPPath == "" {
		c.LPPath = defaultLPPath
	}
	if c.LPStatPath == "" {
		c.LPStatPath = defaultLPStatPath
	}
	if c.CancelPath == "" {
		c.CancelPath = defaultCancelPath
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = defaultCommandTimeout
	}
}

// resolveBinaries verifies the spooler commands are installed
func (c *CUPSConfig) resolveBinaries() error {
	c.applyDefaults()
	for _, p := range []*string{&c.LPPath, &c.LPStatPath, &c.CancelPath} {
		resolved, err := resolveBinaryPath(*p)
		if err != nil {
			return fmt.Errorf("spooler command %s not found: %w", *p, err)
		}
		*p = resolved
	}
	return nil
}

// CUPSTransport prints raw documents through the host CUPS spooler.
// Every call is one short-lived command; no device handle outlives it.
type CUPSTransport struct {
	config *CUPSConfig
	runner CommandRunner
	logger *zap.Logger
}

// NewCUPSTransport creates a new CUPS transport
func NewCUPSTransport(cfg *CUPSConfig) *CUPSTransport {
	if cfg == nil {
		cfg = &CUPSConfig{}
	}
	cfg.applyDefaults()

	runner := cfg.Runner
	if runner == nil {
		runner = execRunner{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CUPSTransport{config: cfg, runner: runner, logger: logger}
}

// Name returns the backend name
func (t *CUPSTransport) Name() string {
	return BackendCUPS
}

func (t *CUPSTransport) run(ctx context.Context, name string, stdin []byte, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.config.CommandTimeout)
	defer cancel()

	out, err := t.runner.Run(ctx, name, args, stdin)
	if err != nil {
		t.logger.Debug("spooler command failed",
			zap.String("command", name),
			zap.Strings("args", args),
			zap.String("output", string(out)),
			zap.Error(err))
		return string(out), err
	}
	return string(out), nil
}

// DeviceStatus reads the printer and acceptance state with lpstat
func (t *CUPSTransport) DeviceStatus(ctx context.Context, device string) (DeviceStatus, error) {
	out, err := t.run(ctx, t.config.LPStatPath, nil, "-p", device, "-a", device)
	if err != nil {
		if isUnknownDestination(out) {
			return DeviceStatus{Found: false, Detail: strings.TrimSpace(out)}, nil
		}
		return DeviceStatus{}, fmt.Errorf("lpstat %s: %w", device, err)
	}
	return parsePrinterStatus(device, out), nil
}

func isUnknownDestination(out string) bool {
	lower := strings.ToLower(out)
	return strings.Contains(lower, "invalid destination") ||
		strings.Contains(lower, "unknown destination") ||
		strings.Contains(lower, "does not exist")
}

// parsePrinterStatus interprets `lpstat -p <dev> -a <dev>` output
func parsePrinterStatus(device, out string) DeviceStatus {
	status := DeviceStatus{}
	enabled, accepting := false, false

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "printer "+device+" "):
			status.Found = true
			status.Detail = line
			switch {
			case strings.Contains(line, "disabled"):
				enabled = false
			case strings.Contains(line, "is idle"):
				enabled, status.Idle = true, true
			case strings.Contains(line, "now printing"):
				enabled = true
			default:
				enabled = strings.Contains(line, "enabled")
			}
		case strings.HasPrefix(line, device+" "):
			status.Found = true
			accepting = strings.Contains(line, "accepting requests") && !strings.Contains(line, "not accepting")
		}
	}

	status.Online = enabled && accepting
	return status
}

// Submit sends a raw document to the device after a readiness check
func (t *CUPSTransport) Submit(ctx context.Context, device string, document []byte) (*labeling.PrintJob, error) {
	if err := checkReady(ctx, t, device); err != nil {
		return nil, err
	}

	out, err := t.run(ctx, t.config.LPPath, document, "-d", device, "-o", "raw", "-t", cupsJobTitle)
	if err != nil {
		return nil, fmt.Errorf("%w: lp: %s", ErrSubmitRefused, strings.TrimSpace(out))
	}

	m := requestIDPattern.FindStringSubmatch(out)
	if m == nil {
		return nil, fmt.Errorf("%w: unexpected lp output %q", ErrSubmitRefused, strings.TrimSpace(out))
	}

	t.logger.Info("print job submitted",
		zap.String("device", device),
		zap.String("job", m[1]),
		zap.Int("bytes", len(document)))

	return labeling.NewPrintJob(m[1], device)
}

// JobStatus looks the job up in the active queue with `lpstat -l -o`.
// The status is the job's Alerts line (its CUPS state reasons).
func (t *CUPSTransport) JobStatus(ctx context.Context, device, handle string) (JobStatus, error) {
	out, err := t.run(ctx, t.config.LPStatPath, nil, "-l", "-o", device)
	if err != nil {
		if isUnknownDestination(out) {
			return JobStatus{Present: false}, nil
		}
		return JobStatus{}, fmt.Errorf("lpstat -o %s: %w", device, err)
	}
	return parseJobStatus(handle, out), nil
}

// parseJobStatus finds the block for handle in `lpstat -l -o` output
func parseJobStatus(handle, out string) JobStatus {
	result := JobStatus{}
	inBlock := false

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		raw := scanner.Text()
		if raw == "" {
			continue
		}
		indented := raw[0] == ' ' || raw[0] == '\t'
		line := strings.TrimSpace(raw)

		if !indented {
			fields := strings.Fields(line)
			inBlock = len(fields) > 0 && fields[0] == handle
			if inBlock {
				result.Present = true
			}
			continue
		}
		if inBlock {
			if reasons, ok := strings.CutPrefix(line, "Alerts:"); ok {
				result.Status = strings.TrimSpace(reasons)
			}
		}
	}
	return result
}

// CancelJob cancels one job
func (t *CUPSTransport) CancelJob(ctx context.Context, device, handle string) error {
	out, err := t.run(ctx, t.config.CancelPath, nil, handle)
	if err != nil {
		return fmt.Errorf("cancel %s: %s: %w", handle, strings.TrimSpace(out), err)
	}
	t.logger.Warn("print job cancelled", zap.String("device", device), zap.String("job", handle))
	return nil
}

// PurgeQueue cancels every job on the device, including ones this process did not submit
func (t *CUPSTransport) PurgeQueue(ctx context.Context, device string) error {
	out, err := t.run(ctx, t.config.CancelPath, nil, "-a", device)
	if err != nil {
		return fmt.Errorf("cancel -a %s: %s: %w", device, strings.TrimSpace(out), err)
	}
	t.logger.Warn("print queue purged", zap.String("device", device))
	return nil
}

var _ JobInspector = (*CUPSTransport)(nil)
