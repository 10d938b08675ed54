package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/smc1992/leadgen-ai/internal/auth"
	"github.com/smc1992/leadgen-ai/internal/ingest"
	"github.com/smc1992/leadgen-ai/internal/model"
	"github.com/smc1992/leadgen-ai/internal/resilience"
	"github.com/smc1992/leadgen-ai/internal/store"
)

// maxIngestBody caps batch-ingest request bodies at 10 MiB.
const maxIngestBody = 10 << 20

// handleListLeads serves the dashboard lead table. The read path degrades
// instead of failing: a malformed list filter or a store error yields a
// well-formed empty page, never a 5xx.
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	filter, ok := parseLeadFilter(r)
	filter = filter.Normalize()
	if !ok {
		writeJSON(w, http.StatusOK, model.EmptyPage(filter.Page, filter.Limit))
		return
	}

	page, err := s.store.ListLeads(r.Context(), userID, filter)
	if err != nil {
		zap.L().Error("server: list leads degraded to empty page",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, model.EmptyPage(filter.Page, filter.Limit))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// parseLeadFilter reads the query parameters into a LeadFilter. The second
// return value is false when the filter cannot possibly match anything, such
// as a listId that is not a UUID.
func parseLeadFilter(r *http.Request) (store.LeadFilter, bool) {
	q := r.URL.Query()
	f := store.LeadFilter{
		Search:      q.Get("search"),
		Region:      q.Get("region"),
		EmailStatus: model.EmailStatus(q.Get("emailStatus")),
		ListID:      q.Get("listId"),
	}

	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	if v := q.Get("scoreMin"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.ScoreMin = &n
		}
	}
	if v := q.Get("scoreMax"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.ScoreMax = &n
		}
	}
	if v := q.Get("outreachReady"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.OutreachReady = &b
		}
	}

	if f.ListID != "" {
		if _, err := uuid.Parse(f.ListID); err != nil {
			return f, false
		}
	}
	return f, true
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id := chi.URLParam(r, "id")

	lead, err := s.store.GetLead(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "lead not found"})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id := chi.URLParam(r, "id")

	var upd model.LeadUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, resilience.Classify(resilience.ClassBadRequest, eris.Wrap(err, "decode lead update")))
		return
	}

	lead, err := s.store.UpdateLead(r.Context(), userID, id, upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "lead not found"})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id := chi.URLParam(r, "id")

	if err := s.store.DeleteLead(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "lead not found"})
			return
		}
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req ingest.Request
	body := http.MaxBytesReader(w, r.Body, maxIngestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, resilience.Classify(resilience.ClassBadRequest, eris.Wrap(err, "decode ingest request")))
		return
	}

	result, err := s.pipeline.Ingest(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	s.metrics.leadsInserted.Add(float64(len(result.Leads)))
	s.metrics.leadsDuplicate.Add(float64(result.Duplicates))

	status := http.StatusCreated
	if result.AttachError != "" {
		// Leads are committed; the failed list attachment is reported in the
		// body rather than by failing the whole request.
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

type startRunRequest struct {
	Type  string         `json:"type"`
	Input map[string]any `json:"input"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	if s.tracker == nil {
		writeError(w, resilience.Classify(resilience.ClassUnavailable, errors.New("scrape provider is not configured")))
		return
	}

	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, resilience.Classify(resilience.ClassBadRequest, eris.Wrap(err, "decode run request")))
		return
	}

	run, err := s.tracker.Start(r.Context(), userID, req.Type, req.Input)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.runsStarted.WithLabelValues(req.Type).Inc()
	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	if s.tracker == nil {
		writeError(w, resilience.Classify(resilience.ClassUnavailable, errors.New("scrape provider is not configured")))
		return
	}

	result, err := s.tracker.CheckStatus(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
