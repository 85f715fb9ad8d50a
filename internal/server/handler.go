// Package server exposes the pipeline over HTTP and WebSocket.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/airlock-sh/airlock/internal/audit"
	"github.com/airlock-sh/airlock/internal/engine/gate"
	"github.com/airlock-sh/airlock/internal/engine/intent"
	"github.com/airlock-sh/airlock/internal/engine/plan"
	"github.com/airlock-sh/airlock/internal/engine/service"
	"github.com/airlock-sh/airlock/pkg/core/logging"
)

// Handler serves the JSON API.
type Handler struct {
	svc    *service.Service
	logger *logging.Logger
}

// NewHandler creates the API handler around svc.
func NewHandler(svc *service.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.New("api")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes registers all API endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/intents", h.submitIntent)
	mux.HandleFunc("POST /api/v1/plans/{plan_id}/approve", h.approvePlan)
	mux.HandleFunc("POST /api/v1/plans/{plan_id}/execute", h.executePlan)
	mux.HandleFunc("GET /api/v1/audit/records", h.listRecords)
	mux.HandleFunc("GET /api/v1/audit/records/{plan_id}", h.planRecords)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// intentRequest is the submit payload.
type intentRequest struct {
	Verb        string            `json:"verb"`
	Target      string            `json:"target"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	SafetyLevel string            `json:"safety_level,omitempty"`
}

func (h *Handler) submitIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}

	safety := intent.SafetyStandard
	if req.SafetyLevel != "" {
		safety = intent.SafetyLevel(req.SafetyLevel)
	}

	sub, err := h.svc.Submit(r.Context(), intent.Verb(req.Verb), req.Target, req.Parameters, safety)
	switch {
	case errors.Is(err, intent.ErrUnsupportedVerb):
		writeError(w, http.StatusBadRequest, "unsupported_verb", err.Error())
		return
	case errors.Is(err, intent.ErrEmptyTarget), errors.Is(err, plan.ErrMissingRollback):
		writeError(w, http.StatusBadRequest, "invalid_intent", err.Error())
		return
	case err != nil:
		h.logger.Error("intent submission failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) approvePlan(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("plan_id")
	tok, err := h.svc.Approve(planID)
	if errors.Is(err, service.ErrUnknownPlan) {
		writeError(w, http.StatusNotFound, "unknown_plan", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// executeRequest carries the externally supplied approval token.
type executeRequest struct {
	Token gate.Token `json:"token"`
}

func (h *Handler) executePlan(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("plan_id")

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}

	res, err := h.svc.Execute(r.Context(), planID, req.Token)
	if err != nil {
		h.writeExecuteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) writeExecuteError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrUnknownPlan) {
		writeError(w, http.StatusNotFound, "unknown_plan", err.Error())
		return
	}
	if errors.Is(err, service.ErrPlanBusy) {
		writeError(w, http.StatusConflict, "plan_busy", err.Error())
		return
	}
	var rej *gate.Rejection
	if errors.As(err, &rej) {
		status := http.StatusConflict
		if rej.Gate == gate.GateApproval {
			status = http.StatusForbidden
		}
		writeError(w, status, "gate_"+string(rej.Gate), rej.Reason)
		return
	}
	h.logger.Error("execution failed", "error", err.Error())
	writeError(w, http.StatusInternalServerError, "internal", err.Error())
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	f := audit.Filter{}
	if kind := r.URL.Query().Get("kind"); kind != "" {
		f.Kind = audit.RecordKind(kind)
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}

	recs, err := h.svc.Trail().Query(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if recs == nil {
		recs = []audit.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) planRecords(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("plan_id")
	recs, err := h.svc.Trail().Query(r.Context(), audit.Filter{PlanID: planID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if len(recs) == 0 {
		writeError(w, http.StatusNotFound, "unknown_plan", "no audit records for plan "+planID)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
