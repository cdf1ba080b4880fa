package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/digital-blueprint/apiserver/internal/services"
	"github.com/digital-blueprint/apiserver/internal/store"
	"github.com/digital-blueprint/apiserver/types"
)

const maxBodyBytes = 1 << 20

type contextKey string

const contextSubjectKey contextKey = "sub"

// ErrorResponse is the error payload of every endpoint.
type ErrorResponse struct {
	Error      string               `json:"error"`
	Violations []services.Violation `json:"violations,omitempty"`
}

func subjectFromContext(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(contextSubjectKey).(string)
	if !ok {
		return "", errors.New("missing subject")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", errors.New("invalid subject")
	}
	return subject, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeValidation(w http.ResponseWriter, verr *services.ValidationError) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:      "invalid request",
		Violations: verr.Violations,
	})
}

// writeServiceError maps service errors to responses. Unclassified errors are
// logged and answered with failMessage only.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFoundMessage, failMessage string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidation(w, verr)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMessage)
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "record already exists")
	default:
		log.Printf("%s %s: %s: %v", r.Method, r.URL.Path, failMessage, err)
		writeError(w, http.StatusInternalServerError, failMessage)
	}
}

// decodeJSON reads a JSON body into dst. Type mismatches are reported as
// field violations.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &typeErr) && typeErr.Field != "":
			writeValidation(w, &services.ValidationError{Violations: []services.Violation{{
				Field:   typeErr.Field,
				Message: fmt.Sprintf("must be of type %s", typeErr.Type),
			}}})
		case errors.Is(err, types.ErrInvalidAnswer):
			writeValidation(w, &services.ValidationError{Violations: []services.Violation{{
				Field:   "responses",
				Message: err.Error(),
			}}})
		case errors.As(err, &maxErr):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		default:
			writeError(w, http.StatusBadRequest, "invalid request")
		}
		return false
	}
	return true
}
