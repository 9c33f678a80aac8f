package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/rentwheels/internal/domain"
	"github.com/yourorg/rentwheels/internal/security/middleware"
	"github.com/yourorg/rentwheels/internal/service"
)

// envelope is the uniform response shape for every API endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{
		Success: status < 400,
		Message: message,
		Data:    data,
	})
}

// writeError maps a tagged domain error to its HTTP status. Untagged errors
// become opaque 500s; domain.UserMessage already hides their internals.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusForKind(domain.KindOf(err))
	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
	}
	writeJSON(w, status, domain.UserMessage(err), nil)
}

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.WrapErr(domain.KindValidation, "invalid request body", err)
	}
	return nil
}

// identityFrom builds the caller identity from the validated JWT claims set
// by the middleware. The zero Identity means an unauthenticated caller.
func identityFrom(r *http.Request) service.Identity {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		return service.Identity{}
	}
	return service.Identity{
		UserID: claims.UserID,
		Role:   domain.Role(claims.Role),
	}
}

// parseDate accepts either a bare date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, domain.Ef(domain.KindValidation, "invalid date %q, want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
