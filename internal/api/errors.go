package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/itz-ankit01/inbotiq-core/internal/auth"
)

// envelope is the uniform response body.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Token   string `json:"token,omitempty"`
}

// Client-facing messages.
const (
	msgNoToken       = "Not authorized, no token"
	msgTokenFailed   = "Not authorized, token failed"
	msgTokenExpired  = "Not authorized, token expired"
	msgBadLogin      = "Invalid email or password"
	msgEmailTaken    = "User already exists with this email"
	msgForbidden     = "Forbidden"
	msgCORS          = "Not allowed by CORS"
	msgInvalidBody   = "Invalid request body"
	msgBodyTooLarge  = "Request body too large"
	msgServerError   = "Server error"
	msgUserNotFound  = "Not authorized, user not found"
	msgSignupSuccess = "User registered successfully"
	msgLoginSuccess  = "Login successful"
	msgLogoutSuccess = "Logged out successfully"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes the {success:false, message} envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, msgServerError)
}

// writeServiceError maps auth errors to status codes. Anything unrecognised
// is logged and reported as a bare 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		writeBadRequest(w, verr.Message)
	case errors.Is(err, auth.ErrEmailExists):
		writeError(w, http.StatusConflict, msgEmailTaken)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeUnauthorized(w, msgBadLogin)
	case errors.Is(err, auth.ErrTokenExpired):
		writeUnauthorized(w, msgTokenExpired)
	case errors.Is(err, auth.ErrTokenRevoked), errors.Is(err, auth.ErrTokenInvalid):
		writeUnauthorized(w, msgTokenFailed)
	case errors.Is(err, auth.ErrUserNotFound):
		writeUnauthorized(w, msgUserNotFound)
	case errors.Is(err, auth.ErrForbidden):
		writeForbidden(w, msgForbidden)
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
			"error", err,
		)
		writeInternalError(w)
	}
}

// decodeJSON reads a JSON body into v, writing a 400 or 413 on failure.
// An empty body leaves v zeroed so field validation reports what is missing.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return false
		}
		writeBadRequest(w, msgInvalidBody)
		return false
	}
	return true
}
