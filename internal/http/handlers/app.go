package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"wardrobe/internal/adapter/repo"
	"wardrobe/internal/domain"
	"wardrobe/internal/infra"
	"wardrobe/internal/middleware"
	"wardrobe/internal/queue"
	"wardrobe/internal/search"
	"wardrobe/internal/state"
	"wardrobe/internal/storage"
)

// App bundles the handler dependencies. Fields are exported so tests can
// construct an App with stubs.
type App struct {
	Config *infra.Config
	Logger infra.Logger
	Store  *repo.Store
	Blobs  storage.BlobStore
	Queue  queue.Dispatcher
	Search *search.Indexer
	States *state.Service
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, detail string) {
	a.json(w, code, map[string]string{"error": errCode, "detail": detail})
}

// domainError maps a business error to its HTTP shape. Rejected transitions
// come back as 409 with the allowed events so clients can render valid
// actions; unknown persisted states are a data fault and stay a 500.
func (a *App) domainError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *domain.InvalidTransitionError
	if errors.As(err, &invalid) {
		allowed := make([]string, len(invalid.Allowed))
		for i, ev := range invalid.Allowed {
			allowed[i] = string(ev)
		}
		a.json(w, http.StatusConflict, map[string]any{
			"error":          "invalid_transition",
			"detail":         invalid.Error(),
			"allowed_events": allowed,
		})
		return
	}
	var unknown *domain.UnknownStateError
	if errors.As(err, &unknown) {
		a.Logger.Error().
			Str("entity_type", string(unknown.EntityType)).
			Str("entity_id", unknown.EntityID).
			Str("state", unknown.State).
			Msg("persisted state outside the enumerated set")
		a.error(w, http.StatusInternalServerError, "internal", "entity state is corrupt")
		return
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrForbidden):
		a.error(w, http.StatusForbidden, "forbidden", "resource belongs to another user")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.Is(err, domain.ErrDuplicateEmail):
		a.error(w, http.StatusConflict, "conflict", "email already registered")
	case errors.Is(err, domain.ErrEmptyUpload):
		a.error(w, http.StatusBadRequest, "bad_request", "empty upload")
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// dispatch enqueues a task after the surrounding state is committed. Queue
// errors are logged, not surfaced: the reaper or a manual retry re-drives the
// work.
func (a *App) dispatch(r *http.Request, kind, id string) {
	if a.Queue == nil {
		return
	}
	if _, err := a.Queue.Dispatch(r.Context(), queue.Task{Kind: kind, ID: id}); err != nil {
		a.Logger.Error().Err(err).Str("kind", kind).Str("id", id).Msg("dispatch failed")
	}
}

func paging(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
