package http

import (
	"context"
	"encoding/json"
	"net/http"

	"khoroch/internal/core"
	"khoroch/internal/log"
)

// errorResponse is the single error envelope the API speaks. Message carries
// a human hint on server faults, Messages the field violations on 400s.
type errorResponse struct {
	Error    string   `json:"error"`
	Message  string   `json:"message,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

type deleteResponse struct {
	Message        string       `json:"message"`
	DeletedExpense core.Expense `json:"deletedExpense"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// respondValidation reports every violated constraint in one 400.
func (s *Server) respondValidation(w http.ResponseWriter, v *core.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:    "Validation error",
		Messages: v.Messages,
	})
}

func (s *Server) respondNotFound(w http.ResponseWriter) {
	s.respondError(w, http.StatusNotFound, "Expense not found")
}

// respondInternal logs the real error and sends a generic envelope; internal
// details never reach the client.
func (s *Server) respondInternal(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	s.logger.ErrorContext(ctx, msg, log.FieldError, err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   msg,
		Message: "internal server error",
	})
}
