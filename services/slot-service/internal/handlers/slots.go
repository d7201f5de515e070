package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/a-voskov/delivera/services/slot-service/internal/availability"
	"github.com/a-voskov/delivera/services/slot-service/internal/schedule"
)

// SlotsHandler serves the public delivery-window API. Each request takes a
// single now snapshot so generation and validation inside one request can
// never disagree with each other.
type SlotsHandler struct {
	schedules   schedule.Provider
	logger      *slog.Logger
	granularity time.Duration
	now         func() time.Time
}

func NewSlotsHandler(schedules schedule.Provider, logger *slog.Logger, granularity time.Duration) *SlotsHandler {
	return &SlotsHandler{
		schedules:   schedules,
		logger:      logger,
		granularity: granularity,
		now:         time.Now,
	}
}

type slotItem struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

type slotsResponse struct {
	Slots             []slotItem `json:"slots"`
	UnavailableReason *string    `json:"unavailable_reason"`
}

type validateRequest struct {
	AccountID string `json:"account_id"`
	Date      string `json:"date"`
	SlotStart string `json:"slot_start"`
	SlotEnd   string `json:"slot_end"`
}

type validateResponse struct {
	Orderable bool    `json:"orderable"`
	Reason    *string `json:"reason"`
}

// Windows handles GET /api/v1/public/slots?account_id=&date=.
func (h *SlotsHandler) Windows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accountID := strings.TrimSpace(r.URL.Query().Get("account_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if accountID == "" || dateStr == "" {
		http.Error(w, "account_id and date are required", http.StatusBadRequest)
		return
	}

	date, err := availability.ParseDate(dateStr)
	if err != nil {
		http.Error(w, "invalid date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	cfg, found, err := h.loadSchedule(w, r, accountID)
	if err != nil {
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, evaluationResponse(availability.Evaluation{
			Reason:  availability.ReasonConfigMissing,
			Message: "schedule configuration unavailable",
		}))
		return
	}

	now := h.now().In(h.location(cfg))
	ev := availability.Evaluate(cfg, date, now, availability.Options{Granularity: h.granularity})
	writeJSON(w, http.StatusOK, evaluationResponse(ev))
}

// Validate handles POST /api/v1/public/slots/validate: the submission-time
// re-check of an already-chosen date and window.
func (h *SlotsHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AccountID = strings.TrimSpace(req.AccountID)
	if req.AccountID == "" || req.Date == "" || req.SlotStart == "" || req.SlotEnd == "" {
		http.Error(w, "account_id, date, slot_start, and slot_end are required", http.StatusBadRequest)
		return
	}

	date, err := availability.ParseDate(req.Date)
	if err != nil {
		http.Error(w, "invalid date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	start, err := availability.ParseClock(req.SlotStart)
	if err != nil {
		http.Error(w, "invalid slot_start (expected HH:MM)", http.StatusBadRequest)
		return
	}
	end, err := availability.ParseClock(req.SlotEnd)
	if err != nil {
		http.Error(w, "invalid slot_end (expected HH:MM)", http.StatusBadRequest)
		return
	}
	if end.MinuteOfDay() <= start.MinuteOfDay() {
		http.Error(w, "slot_end must be after slot_start", http.StatusBadRequest)
		return
	}

	cfg, found, err := h.loadSchedule(w, r, req.AccountID)
	if err != nil {
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, verdictResponse(false, availability.ReasonConfigMissing))
		return
	}

	loc := h.location(cfg)
	now := h.now().In(loc)
	at := date.Time(start, loc)

	ok, reason := availability.Orderable(cfg, at, now)
	if ok {
		// The chosen window's end must also stay within closing time.
		if hours, has := cfg.HoursFor(date.Weekday()); has && hours.Close != nil &&
			end.MinuteOfDay() > hours.Close.MinuteOfDay() {
			ok, reason = false, availability.ReasonClosed
		}
	}
	writeJSON(w, http.StatusOK, verdictResponse(ok, reason))
}

// loadSchedule fetches the merchant configuration, writing the error
// response itself when the fetch fails. Malformed stored configuration is
// a hard error, not an empty-slots outcome.
func (h *SlotsHandler) loadSchedule(w http.ResponseWriter, r *http.Request, accountID string) (availability.Schedule, bool, error) {
	cfg, found, err := h.schedules.Schedule(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, availability.ErrMalformedClock) {
			h.logger.Error("stored schedule configuration is malformed", "err", err, "account_id", accountID)
			http.Error(w, "invalid schedule configuration", http.StatusInternalServerError)
			return availability.Schedule{}, false, err
		}
		h.logger.Error("schedule fetch failed", "err", err, "account_id", accountID)
		http.Error(w, "schedule configuration unavailable", http.StatusServiceUnavailable)
		return availability.Schedule{}, false, err
	}
	return cfg, found, nil
}

func (h *SlotsHandler) location(cfg availability.Schedule) *time.Location {
	if cfg.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		h.logger.Warn("unknown merchant timezone, using UTC", "timezone", cfg.Timezone, "account_id", cfg.AccountID)
		return time.UTC
	}
	return loc
}

func evaluationResponse(ev availability.Evaluation) slotsResponse {
	resp := slotsResponse{Slots: make([]slotItem, 0, len(ev.Windows))}
	for _, win := range ev.Windows {
		resp.Slots = append(resp.Slots, slotItem{
			Start: win.Start.String(),
			End:   win.End.String(),
			Label: win.Label,
		})
	}
	if ev.Reason != availability.ReasonNone {
		msg := ev.Message
		resp.UnavailableReason = &msg
	}
	return resp
}

func verdictResponse(ok bool, reason availability.Reason) validateResponse {
	resp := validateResponse{Orderable: ok}
	if !ok && reason != availability.ReasonNone {
		s := string(reason)
		resp.Reason = &s
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
