package printing

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png" // register PNG decoder for DecodeConfig
	"strconv"
	"time"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/erp/labelstation/internal/infrastructure/telemetry"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultLabelaryEndpoint = "https://api.labelary.com/v1/printers"
	defaultDotsPerMM        = 8
	defaultLabelWidthMM     = 42.0
	defaultLabelHeightMM    = 20.0
	defaultPreviewTimeout   = 10 * time.Second
	defaultPreviewRPS       = 3.0

	mmPerInch = 25.4
)

// RasterizerConfig contains configuration for the preview rasterizer
type RasterizerConfig struct {
	// Endpoint is the Labelary printers base URL
	Endpoint  string
	DotsPerMM int
	WidthMM   float64
	HeightMM  float64
	Timeout   time.Duration
	// RequestsPerSecond throttles calls to the rendering service
	RequestsPerSecond float64
	Burst             int
	Logger            *zap.Logger
	Notifier          labeling.Notifier
	Metrics           *telemetry.LabelMetrics
}

// LabelImage is a rendered preview of a label document
type LabelImage struct {
	PNG    []byte
	Width  int
	Height int
}

// Rasterizer renders label documents to PNG through the Labelary service
type Rasterizer struct {
	client   *resty.Client
	limiter  *rate.Limiter
	path     string
	logger   *zap.Logger
	notifier labeling.Notifier
	metrics  *telemetry.LabelMetrics
}

// NewRasterizer creates a new preview rasterizer
func NewRasterizer(cfg *RasterizerConfig) *Rasterizer {
	if cfg == nil {
		cfg = &RasterizerConfig{}
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultLabelaryEndpoint
	}
	if cfg.DotsPerMM == 0 {
		cfg.DotsPerMM = defaultDotsPerMM
	}
	if cfg.WidthMM == 0 {
		cfg.WidthMM = defaultLabelWidthMM
	}
	if cfg.HeightMM == 0 {
		cfg.HeightMM = defaultLabelHeightMM
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultPreviewTimeout
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = defaultPreviewRPS
	}
	if cfg.Burst == 0 {
		cfg.Burst = 1
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = labeling.NotifierFunc(func(labeling.Notice) {})
	}

	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "image/png").
		SetHeader("Content-Type", "application/x-www-form-urlencoded")

	return &Rasterizer{
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		path:     LabelPath(cfg.DotsPerMM, cfg.WidthMM, cfg.HeightMM),
		logger:   logger,
		notifier: notifier,
		metrics:  cfg.Metrics,
	}
}

// LabelPath builds the Labelary label path for the physical label size in inches
func LabelPath(dotsPerMM int, widthMM, heightMM float64) string {
	return fmt.Sprintf("/%ddpmm/labels/%sx%s/0/",
		dotsPerMM,
		strconv.FormatFloat(widthMM/mmPerInch, 'f', -1, 64),
		strconv.FormatFloat(heightMM/mmPerInch, 'f', -1, 64))
}

// Rasterize renders document to an image. It returns nil on any failure and
// posts a notice for the operator instead of returning an error.
func (r *Rasterizer) Rasterize(ctx context.Context, document string) *LabelImage {
	start := time.Now()

	img, err := r.render(ctx, document)
	if err != nil {
		r.metrics.RecordPreview(ctx, "error", time.Since(start))
		r.logger.Warn("label preview failed", zap.Error(err))
		r.notifier.Notify(labeling.Notice{
			Level:     labeling.NoticeError,
			Source:    "preview",
			Message:   "Failed to generate preview: " + err.Error(),
			CreatedAt: time.Now(),
		})
		return nil
	}

	r.metrics.RecordPreview(ctx, "ok", time.Since(start))
	r.logger.Debug("label preview rendered",
		zap.Int("bytes", len(img.PNG)),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
		zap.Duration("duration", time.Since(start)))
	return img
}

func (r *Rasterizer) render(ctx context.Context, document string) (*LabelImage, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("preview throttled: %w", err)
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(document).
		Post(r.path)
	if err != nil {
		return nil, fmt.Errorf("preview request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("preview service returned %d", resp.StatusCode())
	}

	body := resp.Body()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("preview is not a valid image: %w", err)
	}

	return &LabelImage{PNG: body, Width: cfg.Width, Height: cfg.Height}, nil
}
