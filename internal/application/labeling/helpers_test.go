package labeling_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	app "github.com/erp/labelstation/internal/application/labeling"
	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/erp/labelstation/internal/domain/shared"
	"github.com/erp/labelstation/internal/infrastructure/event"
	"github.com/erp/labelstation/internal/infrastructure/printing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mock Implementations
// =============================================================================

type MockInventory struct {
	mock.Mock
}

func (m *MockInventory) FetchPurchaseOrders(ctx context.Context) ([]labeling.PurchaseOrder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]labeling.PurchaseOrder), args.Error(1)
}

func (m *MockInventory) FetchLineItems(ctx context.Context, warehouseID, purchaseOrder string) ([]labeling.LineItem, error) {
	args := m.Called(ctx, warehouseID, purchaseOrder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]labeling.LineItem), args.Error(1)
}

func (m *MockInventory) FetchWarehouses(ctx context.Context) ([]labeling.Warehouse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]labeling.Warehouse), args.Error(1)
}

func (m *MockInventory) RecordPrintedTag(ctx context.Context, record labeling.StockRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

type MockReconciliationRepository struct {
	mock.Mock
}

func (m *MockReconciliationRepository) Save(ctx context.Context, entry *labeling.ReconciliationEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockReconciliationRepository) FindByID(ctx context.Context, id uuid.UUID) (*labeling.ReconciliationEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*labeling.ReconciliationEntry), args.Error(1)
}

func (m *MockReconciliationRepository) FindUnresolved(ctx context.Context) ([]labeling.ReconciliationEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]labeling.ReconciliationEntry), args.Error(1)
}

func (m *MockReconciliationRepository) FindByTag(ctx context.Context, tag labeling.TagID) (*labeling.ReconciliationEntry, error) {
	args := m.Called(ctx, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*labeling.ReconciliationEntry), args.Error(1)
}

// =============================================================================
// Fakes
// =============================================================================

// fakeTransport records submitted documents and fails on configured indexes
type fakeTransport struct {
	mu        sync.Mutex
	status    printing.DeviceStatus
	statusErr error
	submitErr map[int]error
	submitted []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		status:    printing.DeviceStatus{Found: true, Online: true, Idle: true},
		submitErr: map[int]error{},
	}
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) DeviceStatus(_ context.Context, _ string) (printing.DeviceStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.statusErr
}

func (f *fakeTransport) Submit(_ context.Context, device string, document []byte) (*labeling.PrintJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.submitted)
	f.submitted = append(f.submitted, string(document))
	if err := f.submitErr[idx]; err != nil {
		return nil, err
	}
	return labeling.NewPrintJob(fmt.Sprintf("job-%d", idx), device)
}

func (f *fakeTransport) submissions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submitted...)
}

// fakeMonitor completes every job except the tags configured to fail
type fakeMonitor struct {
	mu     sync.Mutex
	fail   map[labeling.TagID]labeling.JobState
	awaits []labeling.TagID
	block  chan struct{}
}

func newFakeMonitor() *fakeMonitor {
	return &fakeMonitor{fail: map[labeling.TagID]labeling.JobState{}}
}

func (f *fakeMonitor) Await(ctx context.Context, job *labeling.PrintJob) labeling.JobState {
	f.mu.Lock()
	f.awaits = append(f.awaits, job.TagID)
	state, failed := f.fail[job.TagID]
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			job.State = labeling.JobStateError
			return job.State
		}
	}
	if failed {
		job.State = state
		job.Reason = "device reported " + state.String()
		return state
	}
	job.State = labeling.JobStateCompleted
	return job.State
}

// sessionFunc adapts a function to labeling.SessionChecker
type sessionFunc func() bool

func (f sessionFunc) IsActive() bool { return f() }

func alwaysActive() labeling.SessionChecker {
	return sessionFunc(func() bool { return true })
}

// activeFor reports an active session for the first n checks
func activeFor(n int) labeling.SessionChecker {
	var mu sync.Mutex
	calls := 0
	return sessionFunc(func() bool {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return calls <= n
	})
}

// eventRecorder captures every published domain event
type eventRecorder struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (r *eventRecorder) Handle(_ context.Context, evt shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *eventRecorder) EventTypes() []string { return nil }

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

func (r *eventRecorder) ofType(eventType string) []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range r.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// Fixtures
// =============================================================================

var generatedAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return generatedAt }

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

func newTestRun(t *testing.T, quantity int) *labeling.BatchRun {
	t.Helper()
	run, err := labeling.NewBatchRun(
		"PO-2025-0042",
		"7",
		testLineItem(),
		quantity,
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		labeling.InventoryBin("02-C-4-1A"),
		"ZD621R",
	)
	require.NoError(t, err)
	return run
}

type harness struct {
	transport *fakeTransport
	monitor   *fakeMonitor
	inventory *MockInventory
	events    *eventRecorder
	defaults  *app.StationDefaults
	notices   *app.NoticeBoard
	session   labeling.SessionChecker
}

func newHarness() *harness {
	return &harness{
		transport: newFakeTransport(),
		monitor:   newFakeMonitor(),
		inventory: new(MockInventory),
		events:    &eventRecorder{},
		defaults:  app.NewStationDefaults("ZD621R", fixedClock),
		notices:   app.NewNoticeBoard(0),
		session:   alwaysActive(),
	}
}

func (h *harness) orchestrator() *app.Orchestrator {
	bus := event.NewInMemoryEventBus(nil)
	bus.Subscribe(h.events)
	return app.NewOrchestrator(app.OrchestratorDeps{
		Transport: h.transport,
		Monitor:   h.monitor,
		Renderer:  printing.NewZPLRenderer(),
		Inventory: h.inventory,
		Session:   h.session,
		Events:    bus,
		Defaults:  h.defaults,
		Notifier:  h.notices,
		Tags:      labeling.NewTagGenerator(fixedClock),
	})
}

func expectedTags(n int) []labeling.TagID {
	return labeling.GenerateTagIDs(generatedAt, n)
}

func drain(ch chan app.Progress) []app.Progress {
	close(ch)
	var out []app.Progress
	for p := range ch {
		out = append(out, p)
	}
	return out
}

func recordFor(tag labeling.TagID) any {
	return mock.MatchedBy(func(r labeling.StockRecord) bool { return r.TagID == tag })
}
