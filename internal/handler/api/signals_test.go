package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	models "SignalFlow/internal/domain/models"
	"SignalFlow/internal/rules"
	xhttp "SignalFlow/pkg/http"
	xlogger "SignalFlow/pkg/logger"

	"github.com/labstack/echo/v4"
)

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger.New failed: %v", err)
	}
	return log
}

type fakeHistory struct {
	mu    sync.Mutex
	query models.HistoryQuery
	since time.Time
	rows  []models.Signal
}

func (h *fakeHistory) Init(ctx context.Context) error                    { return nil }
func (h *fakeHistory) Insert(ctx context.Context, s models.Signal) error { return nil }
func (h *fakeHistory) Recent(ctx context.Context, q models.HistoryQuery) ([]models.Signal, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.query = q
	return h.rows, nil
}
func (h *fakeHistory) Stats(ctx context.Context, since time.Time) (*models.HistoryStats, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.since = since
	return &models.HistoryStats{}, nil
}
func (h *fakeHistory) Purge(ctx context.Context, olderThan time.Time) error { return nil }
func (h *fakeHistory) Close() error                                         { return nil }

func newSignalsServer(t *testing.T, h *fakeHistory) *echo.Echo {
	t.Helper()
	reg, err := rules.Load()
	if err != nil {
		t.Fatalf("rules load: %v", err)
	}
	e := echo.New()
	NewSignalsHandler(testLogger(t), h, reg).RegisterRoutes(e)
	return e
}

func TestRecentPassesQueryFilters(t *testing.T) {
	h := &fakeHistory{rows: []models.Signal{{Symbol: "BTCUSDT", Direction: models.DirectionBuy}}}
	e := newSignalsServer(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/signals/recent?limit=10&symbol=BTCUSDT&direction=BUY", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("http status = %d", rec.Code)
	}
	var resp xhttp.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Fatalf("envelope status = %d", resp.Status)
	}
	if h.query.Limit != 10 || h.query.Symbol != "BTCUSDT" || h.query.Direction != models.DirectionBuy {
		t.Fatalf("store saw query %+v", h.query)
	}
}

func TestRecentDefaultsToUnfiltered(t *testing.T) {
	h := &fakeHistory{}
	e := newSignalsServer(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/signals/recent", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if h.query.Limit != 50 || h.query.Symbol != "" || h.query.Direction != "" {
		t.Fatalf("store saw query %+v, want default limit and no filters", h.query)
	}
}

func TestRecentRejectsUnknownDirection(t *testing.T) {
	h := &fakeHistory{}
	e := newSignalsServer(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/signals/recent?direction=SIDEWAYS", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp xhttp.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != http.StatusBadRequest {
		t.Fatalf("envelope status = %d, want 400", resp.Status)
	}
	if h.query.Limit != 0 {
		t.Fatalf("store was queried despite invalid direction")
	}
}

func TestStatsSinceOverridesHours(t *testing.T) {
	h := &fakeHistory{}
	e := newSignalsServer(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/signals/stats?hours=48&since=2026-01-01T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("http status = %d", rec.Code)
	}
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if !h.since.Equal(want) {
		t.Fatalf("store saw since %v, want %v", h.since, want)
	}
}
