package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/apexsend/sequence-engine/internal/errors"
	"github.com/apexsend/sequence-engine/internal/service"
)

// SequenceHandler holds the dependencies for enrollment and cancellation
// HTTP handlers
type SequenceHandler struct {
	Service *service.MessageService
}

func NewSequenceHandler(svc *service.MessageService) *SequenceHandler {
	return &SequenceHandler{Service: svc}
}

// EnrollHandler enrolls one recipient into a sequence. Returns 202: nothing
// is sent synchronously, rows are only scheduled.
func (h *SequenceHandler) EnrollHandler(w http.ResponseWriter, r *http.Request) {
	sequenceID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid sequence id", http.StatusBadRequest)
		return
	}

	var body struct {
		RecipientID int `json:"recipient_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.Service.Enroll(ScopeFrom(r), sequenceID, body.RecipientID, time.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"scheduled": result.ScheduledIDs,
		"skipped":   result.SkippedSteps,
	})
}

// CancelHandler cancels pending messages for a sequence, optionally for a
// single recipient (e.g. on unsubscribe).
func (h *SequenceHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	sequenceID, err := strconv.Atoi(chi.URLParam(r, "campaignId"))
	if err != nil {
		http.Error(w, "invalid sequence id", http.StatusBadRequest)
		return
	}

	var body struct {
		RecipientID *int `json:"recipient_id"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	count, err := h.Service.CancelPending(ScopeFrom(r), sequenceID, body.RecipientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"cancelled_count": count})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var seqNotFound *appErrors.ErrSequenceNotFound
	var recNotFound *appErrors.ErrRecipientNotFound
	var notActive *appErrors.ErrSequenceNotActive
	var validation *appErrors.ErrValidation

	switch {
	case errors.As(err, &seqNotFound), errors.As(err, &recNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &notActive), errors.As(err, &validation):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
