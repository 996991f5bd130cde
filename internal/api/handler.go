// Package api provides HTTP handlers for the planbridge API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/planbridge/internal/domain"
)

// DefaultMaxBodyBytes matches the 50MB JSON limit of the form frontend.
const DefaultMaxBodyBytes = 50 << 20

// errorResponse is the body of every failed request.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// The status line is already out; all that is left is to record it.
		slog.Error("Failed to encode response", "status", status, "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorResponse{Success: false, Message: message})
}

var (
	// errBodyTooLarge marks a request body over the configured limit.
	errBodyTooLarge = errors.New("request body too large")
	// errEmptyBody marks a request without a body. Handlers with an optional
	// body ignore it.
	errEmptyBody = fmt.Errorf("%w: empty request body", domain.ErrValidation)
)

// decodeJSON reads at most limit bytes of r's body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("%w: invalid JSON: %w", domain.ErrValidation, err)
	}
	return nil
}

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInsufficientData):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSectionBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError translates err into a response. Client errors get a fixed
// message; everything else uses fallback.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := statusFor(err)

	message := fallback
	switch {
	case errors.Is(err, errBodyTooLarge):
		message = "Richiesta troppo grande"
	case errors.Is(err, domain.ErrInsufficientData):
		message = "Dati insufficienti per generare la sezione. Compila almeno un form."
	case errors.Is(err, domain.ErrValidation):
		message = "Dati non validi"
	case errors.Is(err, domain.ErrNotFound):
		message = "Sessione non trovata"
	case errors.Is(err, domain.ErrSectionBusy):
		message = "Generazione della sezione già in corso"
	}

	if status >= http.StatusInternalServerError {
		slog.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err)
	}

	JSON(w, status, errorResponse{Success: false, Message: message, Error: err.Error()})
}
