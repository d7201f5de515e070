package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/a-voskov/delivera/services/merchant-service/internal/outbox"
	"github.com/a-voskov/delivera/services/merchant-service/internal/storage"
)

type Handler struct {
	repo   *storage.Repository
	outbox *outbox.Repository
	logger *slog.Logger
}

func New(repo *storage.Repository, ob *outbox.Repository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, outbox: ob, logger: logger}
}

func accountIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Account-Id"))
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accountID := accountIDFromHeader(r)
	if accountID == "" {
		http.Error(w, "missing X-Account-Id", http.StatusBadRequest)
		return
	}

	p, found, err := h.repo.GetProfile(r.Context(), accountID)
	if err != nil {
		http.Error(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "no schedule configured", http.StatusNotFound)
		return
	}
	hours, err := h.repo.ListHours(r.Context(), accountID)
	if err != nil {
		http.Error(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(buildDocument(p, hours))
}

// PutSchedule replaces the merchant's whole weekly schedule and policy
// in one transaction, writing the new document to the outbox so slot
// consumers pick it up without a dual write.
func (h *Handler) PutSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accountID := accountIDFromHeader(r)
	if accountID == "" {
		http.Error(w, "missing X-Account-Id", http.StatusBadRequest)
		return
	}

	var doc scheduleDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	p, hours, err := validateSchedule(accountID, doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		http.Error(w, "unknown timezone", http.StatusBadRequest)
		return
	}

	payload, err := json.Marshal(buildDocument(p, hours))
	if err != nil {
		http.Error(w, "failed to update schedule", http.StatusInternalServerError)
		return
	}

	tx, err := h.repo.Begin(r.Context())
	if err != nil {
		http.Error(w, "failed to update schedule", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	if err := h.repo.ReplaceSchedule(r.Context(), tx, p, hours); err != nil {
		h.logger.Error("schedule replace failed", "account_id", accountID, "err", err)
		http.Error(w, "failed to update schedule", http.StatusInternalServerError)
		return
	}
	if err := h.outbox.Insert(r.Context(), tx, outbox.Event{
		AggregateType: "merchant_schedule",
		AggregateID:   accountID,
		EventType:     outbox.TopicScheduleUpdated,
		Payload:       payload,
	}); err != nil {
		h.logger.Error("outbox insert failed", "account_id", accountID, "err", err)
		http.Error(w, "failed to update schedule", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		http.Error(w, "failed to update schedule", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
