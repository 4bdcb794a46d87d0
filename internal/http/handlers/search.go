package handlers

import (
	"net/http"

	"wardrobe/internal/search"
)

// SearchProducts queries the catalog index, always scoped to the caller. The
// index is write-behind, so results may trail a recent write by a moment.
func (a *App) SearchProducts(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if a.Search == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "search is not configured")
		return
	}
	limit, offset := paging(r)
	result, err := a.Search.Search(r.Context(), search.Query{
		OwnerID: userID,
		Text:    r.URL.Query().Get("q"),
		State:   r.URL.Query().Get("state"),
		Limit:   int64(limit),
		Offset:  int64(offset),
		Sort:    []string{"updated_at:desc"},
	})
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"items":              result.Hits,
		"total":              result.EstimatedTotal,
		"processing_time_ms": result.ProcessingTimeMs,
	})
}
