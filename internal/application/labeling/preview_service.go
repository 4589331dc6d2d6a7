package labeling

import (
	"context"
	"time"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/erp/labelstation/internal/domain/shared"
	"github.com/erp/labelstation/internal/infrastructure/printing"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrPreviewUnavailable is returned when the preview could not be rendered.
// The reason has already been posted as an operator notice.
var ErrPreviewUnavailable = shared.NewDomainError("PREVIEW_UNAVAILABLE", "Failed to generate preview")

// LabelRasterizer renders a label document to an image, returning nil on failure
type LabelRasterizer interface {
	Rasterize(ctx context.Context, document string) *printing.LabelImage
}

// PreviewService renders what the next label will look like
type PreviewService struct {
	renderer   LabelRenderer
	rasterizer LabelRasterizer
	defaults   *StationDefaults
	validate   *validator.Validate
	now        func() time.Time
	logger     *zap.Logger
}

// NewPreviewService creates a new PreviewService
func NewPreviewService(renderer LabelRenderer, rasterizer LabelRasterizer, defaults *StationDefaults, logger *zap.Logger) *PreviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreviewService{
		renderer:   renderer,
		rasterizer: rasterizer,
		defaults:   defaults,
		validate:   NewValidator(),
		now:        time.Now,
		logger:     logger,
	}
}

// Document renders the label document a batch would print for req. A missing
// tag id is replaced by the first id a batch started now would get; a missing
// expiration date uses the station default.
func (s *PreviewService) Document(req PreviewRequest) (string, error) {
	req.Normalize()
	if err := s.validate.Struct(req); err != nil {
		return "", validationError(err)
	}

	expiration := s.defaults.ExpirationDate()
	if req.ExpirationDate != "" {
		parsed, err := time.ParseInLocation(labeling.ISODateLayout, req.ExpirationDate, time.Local)
		if err != nil {
			return "", shared.NewDomainError(ValidationErrorCode, "expiration_date is not a valid date")
		}
		expiration = parsed
	}

	tag := labeling.TagID(req.TagID)
	if tag == "" {
		tag = labeling.GenerateTagIDs(s.now(), 1)[0]
	}

	return s.renderer.Render(printing.LabelFields{
		SKU:            req.SKU,
		ItemName:       req.ItemName,
		TagID:          tag,
		InventoryBin:   labeling.InventoryBin(req.InventoryBin),
		ExpirationDate: expiration.Format(labeling.LabelDateLayout),
	}), nil
}

// Render produces a PNG preview of the label for req
func (s *PreviewService) Render(ctx context.Context, req PreviewRequest) (*printing.LabelImage, error) {
	document, err := s.Document(req)
	if err != nil {
		return nil, err
	}
	img := s.rasterizer.Rasterize(ctx, document)
	if img == nil {
		return nil, ErrPreviewUnavailable
	}
	return img, nil
}
