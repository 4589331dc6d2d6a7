package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	app "github.com/erp/labelstation/internal/application/labeling"
	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/erp/labelstation/internal/infrastructure/auth"
	"github.com/erp/labelstation/internal/infrastructure/event"
	"github.com/erp/labelstation/internal/infrastructure/printing"
	"github.com/erp/labelstation/internal/interfaces/http/dto"
	"github.com/erp/labelstation/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

// =============================================================================
// Mock Implementations
// =============================================================================

type mockInventory struct {
	mock.Mock
}

func (m *mockInventory) FetchPurchaseOrders(ctx context.Context) ([]labeling.PurchaseOrder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]labeling.PurchaseOrder), args.Error(1)
}

func (m *mockInventory) FetchLineItems(ctx context.Context, warehouseID, purchaseOrder string) ([]labeling.LineItem, error) {
	args := m.Called(ctx, warehouseID, purchaseOrder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]labeling.LineItem), args.Error(1)
}

func (m *mockInventory) FetchWarehouses(ctx context.Context) ([]labeling.Warehouse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]labeling.Warehouse), args.Error(1)
}

func (m *mockInventory) RecordPrintedTag(ctx context.Context, record labeling.StockRecord) error {
	return m.Called(ctx, record).Error(0)
}

type mockJournal struct {
	mock.Mock
}

func (m *mockJournal) Save(ctx context.Context, entry *labeling.ReconciliationEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockJournal) FindByID(ctx context.Context, id uuid.UUID) (*labeling.ReconciliationEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*labeling.ReconciliationEntry), args.Error(1)
}

func (m *mockJournal) FindUnresolved(ctx context.Context) ([]labeling.ReconciliationEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]labeling.ReconciliationEntry), args.Error(1)
}

func (m *mockJournal) FindByTag(ctx context.Context, tag labeling.TagID) (*labeling.ReconciliationEntry, error) {
	args := m.Called(ctx, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*labeling.ReconciliationEntry), args.Error(1)
}

// fakeAuthenticator accepts one password and keeps a real session
type fakeAuthenticator struct {
	password string
	session  *auth.Session
}

func (f *fakeAuthenticator) Login(_ context.Context, username, password string) error {
	if password != f.password {
		return auth.ErrInvalidCredentials
	}
	f.session.Set(username, "opaque-token")
	return nil
}

func (f *fakeAuthenticator) Logout(context.Context) {
	f.session.Clear()
}

func (f *fakeAuthenticator) Session() *auth.Session {
	return f.session
}

// stubRasterizer returns a fixed image, or nil to simulate a failed render
type stubRasterizer struct {
	img *printing.LabelImage
}

func (s *stubRasterizer) Rasterize(context.Context, string) *printing.LabelImage {
	return s.img
}

// =============================================================================
// Station
// =============================================================================

var stationNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// testStation wires the application services over fakes
type testStation struct {
	inventory  *mockInventory
	journal    *mockJournal
	auth       *fakeAuthenticator
	rasterizer *stubRasterizer
	notices    *app.NoticeBoard
	runner     *app.Runner

	sessions       *app.SessionService
	receiving      *app.ReceivingService
	batches        *app.BatchService
	preview        *app.PreviewService
	reconciliation *app.ReconciliationService
}

func newTestStation(t *testing.T) *testStation {
	t.Helper()

	st := &testStation{
		inventory:  new(mockInventory),
		journal:    new(mockJournal),
		auth:       &fakeAuthenticator{password: "s3cret", session: auth.NewSession()},
		rasterizer: &stubRasterizer{img: &printing.LabelImage{PNG: []byte("\x89PNG\r\n"), Width: 336, Height: 160}},
		notices:    app.NewNoticeBoard(0),
	}

	defaults := app.NewStationDefaults("ZD621R", func() time.Time { return stationNow })
	transport := printing.NewSimulatedTransport(&printing.SimulatedConfig{Delay: time.Millisecond})
	st.reconciliation = app.NewReconciliationService(st.journal, st.inventory, nil)

	orchestrator := app.NewOrchestrator(app.OrchestratorDeps{
		Transport: transport,
		Monitor:   printing.NewMonitor(transport, nil),
		Renderer:  printing.NewZPLRenderer(),
		Inventory: st.inventory,
		Session:   st.auth.session,
		Events:    event.NewInMemoryEventBus(nil),
		Defaults:  defaults,
		Notifier:  st.notices,
	})
	st.runner = app.NewRunner(orchestrator, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = st.runner.Shutdown(ctx)
	})

	st.sessions = app.NewSessionService(st.auth, nil)
	st.receiving = app.NewReceivingService(st.inventory, nil)
	st.batches = app.NewBatchService(st.inventory, transport, st.runner, defaults, &app.BatchServiceConfig{MaxQuantity: 999})
	st.preview = app.NewPreviewService(printing.NewZPLRenderer(), st.rasterizer, defaults, nil)
	return st
}

func (st *testStation) login() {
	st.auth.session.Set("receiver01", "opaque-token")
}

func testLineItem() labeling.LineItem {
	return labeling.LineItem{
		ItemID:            "4411",
		SKU:               "CHK-THIGH-1KG",
		Name:              "Chicken Thigh Boneless Skinless Frozen 1kg",
		UnitName:          "pack",
		Quantity:          decimal.NewFromInt(12),
		ReceiveItemNumber: "RI-0087",
	}
}

// =============================================================================
// Request helpers
// =============================================================================

func newTestRouter() *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	return router
}

func doJSON(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return data
}
