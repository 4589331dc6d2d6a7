package handler

import (
	"net/http"
	"testing"

	"github.com/erp/labelstation/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labelRouter(st *testStation) http.Handler {
	h := NewLabelHandler(st.preview, st.batches)
	router := newTestRouter()
	router.POST("/labels/preview", h.Preview)
	router.GET("/labels/defaults", h.Defaults)
	router.GET("/printer/status", h.PrinterStatus)
	return router
}

func TestLabelHandler_PreviewPNG(t *testing.T) {
	st := newTestStation(t)

	w := doJSON(labelRouter(st), http.MethodPost, "/labels/preview", map[string]string{
		"sku":           "CHK-THIGH-1KG",
		"item_name":     "Chicken Thigh",
		"inventory_bin": "02-c-4-1a",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "336", w.Header().Get("X-Label-Width"))
	assert.Equal(t, "160", w.Header().Get("X-Label-Height"))
	assert.Equal(t, "\x89PNG\r\n", w.Body.String())
}

func TestLabelHandler_PreviewDocument(t *testing.T) {
	st := newTestStation(t)

	w := doJSON(labelRouter(st), http.MethodPost, "/labels/preview?format=zpl", map[string]string{
		"sku":             "CHK-THIGH-1KG",
		"inventory_bin":   "02-c-4-1a",
		"expiration_date": "2025-06-01",
		"tag_id":          "2503010900000007",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	body := w.Body.String()
	assert.Contains(t, body, "^XA")
	assert.Contains(t, body, "02-C-4-1A")
	assert.Contains(t, body, "01 Jun 2025")
	assert.Contains(t, body, "2503010900000007")
}

func TestLabelHandler_PreviewValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{"missing sku", map[string]string{"item_name": "x"}, "sku"},
		{"bad bin", map[string]string{"sku": "A", "inventory_bin": "02-C-44-1A"}, "inventory_bin"},
		{"bad date", map[string]string{"sku": "A", "expiration_date": "01/06/2025"}, "expiration_date"},
		{"short tag", map[string]string{"sku": "A", "tag_id": "12345"}, "tag_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStation(t)
			w := doJSON(labelRouter(st), http.MethodPost, "/labels/preview", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Details)
			assert.Equal(t, tt.field, resp.Error.Details[0].Field)
		})
	}
}

func TestLabelHandler_PreviewUnavailable(t *testing.T) {
	st := newTestStation(t)
	st.rasterizer.img = nil

	w := doJSON(labelRouter(st), http.MethodPost, "/labels/preview", map[string]string{"sku": "A"})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, dto.ErrCodePreviewUnavailable, decodeResponse(t, w).Error.Code)
}

func TestLabelHandler_Defaults(t *testing.T) {
	st := newTestStation(t)

	w := doJSON(labelRouter(st), http.MethodGet, "/labels/defaults", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, decodeResponse(t, w))
	assert.Equal(t, "2025-03-01", data["expiration_date"])
	assert.Equal(t, "ZD621R", data["device"])
	assert.Equal(t, float64(999), data["max_quantity"])
}

func TestLabelHandler_PrinterStatus(t *testing.T) {
	st := newTestStation(t)

	w := doJSON(labelRouter(st), http.MethodGet, "/printer/status", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, decodeResponse(t, w))
	assert.Equal(t, "simulated", data["backend"])
	assert.Equal(t, "ZD621R", data["device"])
	assert.Equal(t, true, data["ready"])
}
