package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/a-voskov/delivera/services/slot-service/internal/availability"
)

type stubProvider struct {
	schedule availability.Schedule
	found    bool
	err      error
}

func (p *stubProvider) Schedule(_ context.Context, _ string) (availability.Schedule, bool, error) {
	return p.schedule, p.found, p.err
}

func testSchedule() availability.Schedule {
	s := availability.Schedule{
		AccountID:         "acc_123",
		AllowSameDay:      true,
		MinLeadTimeMins:   60,
		MaxSchedulingDays: 30,
	}
	for d := availability.Sunday; d <= availability.Saturday; d++ {
		open, close := availability.Clock{Hour: 8}, availability.Clock{Hour: 20}
		s.OperatingHours = append(s.OperatingHours, availability.OperatingHour{
			Day: d, Open: &open, Close: &close, IsOpen: true,
		})
	}
	return s
}

func newTestHandler(p *stubProvider, now time.Time) *SlotsHandler {
	h := NewSlotsHandler(p, slog.New(slog.DiscardHandler), 0)
	h.now = func() time.Time { return now }
	return h
}

func TestWindows_HappyPath(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	h := newTestHandler(&stubProvider{schedule: testSchedule(), found: true}, now)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?account_id=acc_123&date=2026-03-11", nil)
	rw := httptest.NewRecorder()
	h.Windows(rw, req)

	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rw.Code, rw.Body.String())
	}
	var resp struct {
		Slots []struct {
			Start string `json:"start"`
			End   string `json:"end"`
			Label string `json:"label"`
		} `json:"slots"`
		UnavailableReason *string `json:"unavailable_reason"`
	}
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UnavailableReason != nil {
		t.Fatalf("unexpected reason %q", *resp.UnavailableReason)
	}
	if len(resp.Slots) != 6 {
		t.Fatalf("expected 6 slots, got %d", len(resp.Slots))
	}
	if resp.Slots[0].Start != "08:00" || resp.Slots[0].End != "10:00" || resp.Slots[0].Label != "08:00 - 10:00" {
		t.Fatalf("unexpected first slot %+v", resp.Slots[0])
	}
}

func TestWindows_SameDayUsesInjectedNow(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	h := newTestHandler(&stubProvider{schedule: testSchedule(), found: true}, now)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?account_id=acc_123&date=2026-03-10", nil)
	rw := httptest.NewRecorder()
	h.Windows(rw, req)

	var resp struct {
		Slots []struct {
			Start string `json:"start"`
		} `json:"slots"`
	}
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Slots) == 0 || resp.Slots[0].Start != "10:20" {
		t.Fatalf("expected first slot 10:20, got %+v", resp.Slots)
	}
}

func TestWindows_UnknownAccount(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	h := newTestHandler(&stubProvider{found: false}, now)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?account_id=acc_missing&date=2026-03-11", nil)
	rw := httptest.NewRecorder()
	h.Windows(rw, req)

	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	var resp struct {
		Slots             []any   `json:"slots"`
		UnavailableReason *string `json:"unavailable_reason"`
	}
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Slots) != 0 || resp.UnavailableReason == nil {
		t.Fatalf("expected empty slots with reason, got %s", rw.Body.String())
	}
}

func TestWindows_BadInputs(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	h := newTestHandler(&stubProvider{schedule: testSchedule(), found: true}, now)

	for _, target := range []string{
		"/api/v1/public/slots",
		"/api/v1/public/slots?account_id=acc_123",
		"/api/v1/public/slots?account_id=acc_123&date=11-03-2026",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rw := httptest.NewRecorder()
		h.Windows(rw, req)
		if rw.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rw.Code)
		}
	}
}

func TestWindows_ProviderFailure(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	h := newTestHandler(&stubProvider{err: errors.New("replica down")}, now)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?account_id=acc_123&date=2026-03-11", nil)
	rw := httptest.NewRecorder()
	h.Windows(rw, req)
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rw.Code)
	}

	// Malformed stored configuration is a hard server error, not a
	// business outcome.
	badClock := availability.ErrMalformedClock
	h = newTestHandler(&stubProvider{err: badClock}, now)
	rw = httptest.NewRecorder()
	h.Windows(rw, httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?account_id=acc_123&date=2026-03-11", nil))
	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rw.Code)
	}
}

func TestValidate(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	h := newTestHandler(&stubProvider{schedule: testSchedule(), found: true}, now)

	cases := []struct {
		name       string
		body       string
		wantOK     bool
		wantReason string
	}{
		{
			"tomorrow fine",
			`{"account_id":"acc_123","date":"2026-03-11","slot_start":"10:00","slot_end":"12:00"}`,
			true, "",
		},
		{
			"shifted same-day start fine",
			`{"account_id":"acc_123","date":"2026-03-10","slot_start":"10:20","slot_end":"12:00"}`,
			true, "",
		},
		{
			"same-day start inside lead time",
			`{"account_id":"acc_123","date":"2026-03-10","slot_start":"09:30","slot_end":"12:00"}`,
			false, "cutoff_passed",
		},
		{
			"past date",
			`{"account_id":"acc_123","date":"2026-03-09","slot_start":"10:00","slot_end":"12:00"}`,
			false, "date_in_past",
		},
		{
			"beyond scheduling horizon",
			`{"account_id":"acc_123","date":"2026-05-10","slot_start":"10:00","slot_end":"12:00"}`,
			false, "date_too_far_ahead",
		},
		{
			"window ends after close",
			`{"account_id":"acc_123","date":"2026-03-11","slot_start":"19:00","slot_end":"21:00"}`,
			false, "store_closed",
		},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/public/slots/validate", strings.NewReader(tc.body))
		rw := httptest.NewRecorder()
		h.Validate(rw, req)
		if rw.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", tc.name, rw.Code, rw.Body.String())
		}
		var resp struct {
			Orderable bool    `json:"orderable"`
			Reason    *string `json:"reason"`
		}
		if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if resp.Orderable != tc.wantOK {
			t.Fatalf("%s: orderable = %v, want %v", tc.name, resp.Orderable, tc.wantOK)
		}
		gotReason := ""
		if resp.Reason != nil {
			gotReason = *resp.Reason
		}
		if gotReason != tc.wantReason {
			t.Fatalf("%s: reason = %q, want %q", tc.name, gotReason, tc.wantReason)
		}
	}
}

func TestValidate_BadBody(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	h := newTestHandler(&stubProvider{schedule: testSchedule(), found: true}, now)

	for _, body := range []string{
		`not json`,
		`{"account_id":"acc_123"}`,
		`{"account_id":"acc_123","date":"2026-03-11","slot_start":"25:00","slot_end":"12:00"}`,
		`{"account_id":"acc_123","date":"2026-03-11","slot_start":"12:00","slot_end":"10:00"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/public/slots/validate", strings.NewReader(body))
		rw := httptest.NewRecorder()
		h.Validate(rw, req)
		if rw.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rw.Code)
		}
	}
}
