package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"booking-pricing/internal/model"
	"booking-pricing/internal/pricing"
	"booking-pricing/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/datatypes"
)

type stubSnapshots struct {
	lastReq       service.SnapshotRequest
	lastOverrides map[string]any
	err           error
	latest        *model.BookingPriceSnapshot
}

func (s *stubSnapshots) snapshot(req service.SnapshotRequest, source string) (*model.BookingPriceSnapshot, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	if req.Source == "" {
		req.Source = source
	}
	return &model.BookingPriceSnapshot{
		ID:             1,
		BookingID:      req.BookingID,
		SequenceNumber: 1,
		Source:         req.Source,
		Snapshot:       datatypes.NewJSONType(model.SnapshotPayload{SchemaVersion: 1, Totals: model.Totals{"total": 185.0}}),
		CreatedBy:      req.ActorID,
	}, nil
}

func (s *stubSnapshots) CreateSnapshotFromBasket(_ context.Context, req service.SnapshotRequest) (*model.BookingPriceSnapshot, error) {
	return s.snapshot(req, model.SourceBasket)
}

func (s *stubSnapshots) CreateSnapshotFromCalculator(_ context.Context, req service.SnapshotRequest) (*model.BookingPriceSnapshot, error) {
	return s.snapshot(req, model.SourceReprice)
}

func (s *stubSnapshots) CreateManualSnapshot(_ context.Context, req service.SnapshotRequest, overrides map[string]any) (*model.BookingPriceSnapshot, error) {
	s.lastOverrides = overrides
	return s.snapshot(req, model.SourceManual)
}

func (s *stubSnapshots) GetLatestSnapshot(context.Context, uint) (*model.BookingPriceSnapshot, error) {
	return s.latest, s.err
}

func (s *stubSnapshots) GetSnapshot(_ context.Context, _ uint, version int) (*model.BookingPriceSnapshot, error) {
	if version > 1 {
		return nil, service.ErrSnapshotNotFound
	}
	return s.snapshot(service.SnapshotRequest{BookingID: 1}, model.SourceReprice)
}

func (s *stubSnapshots) ListSnapshots(context.Context, uint) ([]*model.BookingPriceSnapshot, error) {
	return nil, s.err
}

func (s *stubSnapshots) ListAudits(context.Context, uint) ([]*model.BookingPriceAudit, error) {
	return nil, s.err
}

type stubPricing struct{}

func (stubPricing) Preview(_ context.Context, bookingID uint) (*service.PricePreview, error) {
	if bookingID == 404 {
		return nil, service.ErrBookingNotFound
	}
	return &service.PricePreview{BookingID: bookingID, Calculated: pricing.BookingTotal{TotalFinal: 185}}, nil
}

func do(t *testing.T, srv http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestServer_SnapshotRoutes(t *testing.T) {
	snapshots := &stubSnapshots{}
	srv := NewServer(snapshots, stubPricing{}, prometheus.NewRegistry(), "")

	rec := do(t, srv, http.MethodPost, "/api/bookings/7/snapshots/reprice", `{"note":"admin edit"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if snapshots.lastReq.BookingID != 7 || *snapshots.lastReq.Note != "admin edit" || snapshots.lastReq.ActorID != nil {
		t.Fatalf("unexpected request %+v", snapshots.lastReq)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["version"] != 1.0 || body["source"] != model.SourceReprice {
		t.Fatalf("unexpected body %v", body)
	}
	payload, _ := body["snapshot"].(map[string]any)
	if payload["schema_version"] != 1.0 {
		t.Fatalf("snapshot payload should be inlined, got %v", body["snapshot"])
	}

	if rec := do(t, srv, http.MethodPost, "/api/bookings/7/snapshots/basket", "", ""); rec.Code != http.StatusCreated {
		t.Fatalf("empty body should be accepted, got %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/api/bookings/7/snapshots/manual", `{"overrides":{"totals":{"total":10}}}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := snapshots.lastOverrides["totals"]; !ok {
		t.Fatalf("overrides should be passed through, got %v", snapshots.lastOverrides)
	}
}

func TestServer_Validation(t *testing.T) {
	srv := NewServer(&stubSnapshots{}, stubPricing{}, prometheus.NewRegistry(), "")

	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "bad id", path: "/api/bookings/abc/snapshots/reprice", body: `{}`},
		{name: "manual without overrides", path: "/api/bookings/1/snapshots/manual", body: `{"note":"x"}`},
		{name: "note too long", path: "/api/bookings/1/snapshots/reprice", body: fmt.Sprintf(`{"note":%q}`, strings.Repeat("a", 1001))},
		{name: "broken json", path: "/api/bookings/1/snapshots/reprice", body: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, srv, http.MethodPost, tt.path, tt.body, ""); rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{service.ErrBookingNotFound, http.StatusNotFound},
		{service.ErrSnapshotBusy, http.StatusConflict},
		{service.ErrSnapshotConflict, http.StatusConflict},
		{service.ErrInvalidSource, http.StatusBadRequest},
		{fmt.Errorf("insert snapshot: %w", context.DeadlineExceeded), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			srv := NewServer(&stubSnapshots{err: tt.err}, stubPricing{}, prometheus.NewRegistry(), "")
			if rec := do(t, srv, http.MethodPost, "/api/bookings/1/snapshots/reprice", `{}`, ""); rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
		})
	}
}

func TestServer_ReadRoutes(t *testing.T) {
	snapshots := &stubSnapshots{}
	srv := NewServer(snapshots, stubPricing{}, prometheus.NewRegistry(), "")

	if rec := do(t, srv, http.MethodGet, "/api/bookings/1/snapshots/latest", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("no snapshot yet should be 404, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/bookings/1/snapshots/1", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/bookings/1/snapshots/2", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/bookings/1/snapshots", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/bookings/1/audits", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/bookings/1/price", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/bookings/404/price", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServer_AuthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_total", Help: "probe"}))
	snapshots := &stubSnapshots{}
	srv := NewServer(snapshots, stubPricing{}, reg, "s3cret")

	if rec := do(t, srv, http.MethodPost, "/api/bookings/1/snapshots/reprice", `{}`, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "5",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if rec := do(t, srv, http.MethodPost, "/api/bookings/1/snapshots/reprice", `{}`, token); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 with token, got %d", rec.Code)
	}
	if snapshots.lastReq.ActorID == nil || *snapshots.lastReq.ActorID != 5 {
		t.Fatalf("actor should come from token subject")
	}

	if rec := do(t, srv, http.MethodGet, "/api/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", rec.Code)
	}
	rec := do(t, srv, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "probe_total") {
		t.Fatalf("metrics endpoint should expose the registry, got %d", rec.Code)
	}
}
