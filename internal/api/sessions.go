package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ashureev/planbridge/internal/domain"
	"github.com/ashureev/planbridge/internal/progress"
	"github.com/ashureev/planbridge/internal/store"
	"github.com/go-chi/chi/v5"
)

// SessionHandler handles session and form endpoints.
type SessionHandler struct {
	repo    store.Repository
	maxBody int64
}

// NewSessionHandler creates a session handler. maxBody <= 0 uses DefaultMaxBodyBytes.
func NewSessionHandler(repo store.Repository, maxBody int64) *SessionHandler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &SessionHandler{repo: repo, maxBody: maxBody}
}

// RegisterRoutes registers session routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Post("/form", h.SaveForm)
		r.Get("/{sessionId}", h.Get)
		r.Get("/{sessionId}/progress", h.Progress)
	})
}

type createSessionRequest struct {
	Language string `json:"language"`
}

// Create starts a new session.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	// The body is optional.
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeDomainError(w, r, err, "Errore nella creazione della sessione")
		return
	}

	id, err := h.repo.CreateSession(r.Context(), strings.TrimSpace(req.Language))
	if err != nil {
		writeDomainError(w, r, err, "Errore nella creazione della sessione")
		return
	}

	slog.Info("Session created", "session_id", id)
	JSON(w, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"sessionId": id,
		"message":   "Sessione creata con successo",
	})
}

// formNumber accepts 3 and "3".
type formNumber int

func (n *formNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*n = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("formNumber must be an integer, got %s", data)
	}
	*n = formNumber(v)
	return nil
}

type saveFormRequest struct {
	SessionID  string          `json:"sessionId"`
	FormNumber formNumber      `json:"formNumber"`
	FormData   json.RawMessage `json:"formData"`
}

// SaveForm stores the payload of one form and returns the new progress.
func (h *SessionHandler) SaveForm(w http.ResponseWriter, r *http.Request) {
	var req saveFormRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeDomainError(w, r, err, "Errore nel salvataggio dei dati del form")
		return
	}

	if req.SessionID == "" || req.FormNumber == 0 || domain.IsNull(req.FormData) {
		Error(w, http.StatusBadRequest, "Dati mancanti. Richiesti: sessionId, formNumber e formData")
		return
	}

	status, err := h.repo.SaveForm(r.Context(), req.SessionID, int(req.FormNumber), req.FormData)
	if err != nil {
		writeDomainError(w, r, err, "Errore nel salvataggio dei dati del form")
		return
	}

	slog.Info("Form saved",
		"session_id", req.SessionID,
		"form", int(req.FormNumber),
		"progress", status.OverallProgress)
	JSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  fmt.Sprintf("Form %d salvato con successo", req.FormNumber),
		"progress": status.OverallProgress,
	})
}

// Get returns the full session document.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.repo.GetSession(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeDomainError(w, r, err, "Errore nel recupero dei dati della sessione")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    session,
	})
}

// Progress returns completed and remaining forms and sections.
func (h *SessionHandler) Progress(w http.ResponseWriter, r *http.Request) {
	session, err := h.repo.GetSession(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeDomainError(w, r, err, "Errore nel recupero dei dati della sessione")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    progress.Of(session),
	})
}
