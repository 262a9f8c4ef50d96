package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/notekeeper/apiserver/types"
)

const maxBodyBytes = 1 << 20

type contextKey string

const contextActorKey contextKey = "actor"

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse lists the rejected fields of a submitted form.
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// FormResponse is returned by the GET side of create and edit routes.
type FormResponse struct {
	Form       any              `json:"form"`
	Categories []types.Category `json:"categories,omitempty"`
}

// ConfirmResponse is returned by the GET side of delete routes.
type ConfirmResponse struct {
	Confirm      string `json:"confirm"`
	Resource     any    `json:"resource"`
	CanBeDeleted *bool  `json:"can_be_deleted,omitempty"`
}

// ListResponse is one page of a listing plus the flash messages queued for
// the session.
type ListResponse[T any] struct {
	types.Page[T]
	Flashes []Flash `json:"flashes"`
}

func withActor(ctx context.Context, actor types.User) context.Context {
	return context.WithValue(ctx, contextActorKey, actor)
}

// actorFromContext returns the authenticated user, or the zero User when
// the request is anonymous.
func actorFromContext(ctx context.Context) types.User {
	actor, _ := ctx.Value(contextActorKey).(types.User)
	return actor
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeValidation(w http.ResponseWriter, fields fieldErrors) {
	writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
		Error:  "validation failed",
		Fields: fields,
	})
}

// serverError logs err and answers 500 with message.
func serverError(w http.ResponseWriter, r *http.Request, message string, err error) {
	slog.ErrorContext(r.Context(), message,
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
	writeError(w, http.StatusInternalServerError, message)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request")
	}
	return nil
}

// parsePage reads the 1-based page query parameter.
func parsePage(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("page"))
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 || page > types.MaxPage {
		return 0, errors.New("invalid page")
	}
	return page, nil
}

func parseID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// fieldErrors maps a field name to what is wrong with it.
type fieldErrors map[string]string

func (f fieldErrors) requireText(field, value string, maxLen int) {
	switch {
	case value == "":
		f[field] = "is required"
	case utf8.RuneCountInString(value) > maxLen:
		f[field] = "is too long (max " + strconv.Itoa(maxLen) + " characters)"
	}
}

func (f fieldErrors) requireID(field string, value int) {
	if value < 1 {
		f[field] = "is required"
	}
}
