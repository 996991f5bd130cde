package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ashureev/planbridge/internal/plan"
	"github.com/go-chi/chi/v5"
)

// PlanGenerator is the part of plan.Service used by the generate endpoints.
type PlanGenerator interface {
	GenerateSection(ctx context.Context, sessionID, section string) (string, error)
	GenerateFullPlan(ctx context.Context, sessionID string) (plan.FullPlanResult, error)
}

// GenerateHandler handles section and full-plan generation.
type GenerateHandler struct {
	plans   PlanGenerator
	maxBody int64
}

// NewGenerateHandler creates a generate handler. maxBody <= 0 uses DefaultMaxBodyBytes.
func NewGenerateHandler(plans PlanGenerator, maxBody int64) *GenerateHandler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &GenerateHandler{plans: plans, maxBody: maxBody}
}

// RegisterRoutes registers generate routes behind the given middlewares.
func (h *GenerateHandler) RegisterRoutes(r chi.Router, middlewares ...func(http.Handler) http.Handler) {
	r.Route("/api/generate", func(r chi.Router) {
		r.Use(middlewares...)
		r.Post("/section", h.Section)
		r.Post("/full", h.Full)
	})
}

type generateSectionRequest struct {
	SessionID string `json:"sessionId"`
	Section   string `json:"section"`
}

// Section generates (or returns) one plan section.
func (h *GenerateHandler) Section(w http.ResponseWriter, r *http.Request) {
	var req generateSectionRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeDomainError(w, r, err, "Errore nella generazione della sezione")
		return
	}
	if req.SessionID == "" || req.Section == "" {
		Error(w, http.StatusBadRequest, "Dati mancanti. Richiesti: sessionId e section")
		return
	}

	content, err := h.plans.GenerateSection(r.Context(), req.SessionID, req.Section)
	if err != nil {
		writeDomainError(w, r, err, "Errore nella generazione della sezione")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Sezione %s generata con successo", req.Section),
		"content": content,
	})
}

type generateFullRequest struct {
	SessionID string `json:"sessionId"`
}

// Full generates every pending section in plan order.
func (h *GenerateHandler) Full(w http.ResponseWriter, r *http.Request) {
	var req generateFullRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeDomainError(w, r, err, "Errore nella generazione del business plan completo")
		return
	}
	if req.SessionID == "" {
		Error(w, http.StatusBadRequest, "SessionId mancante")
		return
	}

	result, err := h.plans.GenerateFullPlan(r.Context(), req.SessionID)
	if err != nil {
		// Sections committed before the failure stay; clients see them via GET.
		slog.Warn("Full plan incomplete",
			"session_id", req.SessionID,
			"generated", result.Generated,
			"failed", result.Failed)
		writeDomainError(w, r, err, "Errore nella generazione del business plan completo")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Business plan completo generato con successo",
	})
}
