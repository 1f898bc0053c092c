package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/apexsend/sequence-engine/internal/service"
)

// ProcessorHandler exposes the pending sweep and its read-only rollups.
type ProcessorHandler struct {
	Processor *service.Processor
	Service   *service.MessageService
}

func NewProcessorHandler(proc *service.Processor, svc *service.MessageService) *ProcessorHandler {
	return &ProcessorHandler{Processor: proc, Service: svc}
}

// ProcessHandler runs one sweep. Intended for a cron caller behind the
// bearer-token middleware; limit is clamped inside the processor.
func (h *ProcessorHandler) ProcessHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.Processor.ProcessPending(r.Context(), limit)
	if err != nil {
		http.Error(w, "processing failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// StatsHandler returns counts by status, tenant-scoped, optionally for one
// campaign.
func (h *ProcessorHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	var sequenceID *int
	if idStr := r.URL.Query().Get("campaign_id"); idStr != "" {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			http.Error(w, "invalid campaign_id", http.StatusBadRequest)
			return
		}
		sequenceID = &id
	}

	stats, err := h.Service.Stats(ScopeFrom(r), sequenceID)
	if err != nil {
		http.Error(w, "failed to fetch stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// MessagesHandler returns a paginated, tenant- and campaign-scoped listing.
func (h *ProcessorHandler) MessagesHandler(w http.ResponseWriter, r *http.Request) {
	sequenceID, err := strconv.Atoi(chi.URLParam(r, "campaignId"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	status := r.URL.Query().Get("status")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	msgs, pagination, err := h.Service.ListMessages(ScopeFrom(r), sequenceID, status, page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":       msgs,
		"pagination": pagination,
	})
}
