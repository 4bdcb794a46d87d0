package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"wardrobe/internal/adapter/repo"
	"wardrobe/internal/domain"
)

type wearLogCreateRequest struct {
	ProductID string     `json:"product_id"`
	WornAt    *time.Time `json:"worn_at"`
	Context   string     `json:"context"`
	Notes     string     `json:"notes"`
}

type wearLogDTO struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	WornAt    time.Time `json:"worn_at"`
	Context   string    `json:"context,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func wearLogToDTO(e *domain.WearLogEntry) wearLogDTO {
	return wearLogDTO{
		ID:        e.ID,
		ProductID: e.ProductID,
		WornAt:    e.WornAt,
		Context:   e.Context,
		Notes:     e.Notes,
		CreatedAt: e.CreatedAt,
	}
}

func (a *App) WearLogCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req wearLogCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "product_id required")
		return
	}

	product, err := a.Store.Products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if product.OwnerID != userID {
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}

	now := time.Now()
	wornAt := now
	if req.WornAt != nil {
		wornAt = *req.WornAt
	}
	entry := &domain.WearLogEntry{
		ID:        uuid.NewString(),
		OwnerID:   userID,
		ProductID: product.ID,
		WornAt:    wornAt,
		Context:   req.Context,
		Notes:     req.Notes,
		CreatedAt: now,
	}
	if err := a.Store.WearLog.Create(r.Context(), entry); err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, wearLogToDTO(entry))
}

func (a *App) WearLogList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	limit, offset := paging(r)
	filter := repo.WearLogFilter{
		ProductID: r.URL.Query().Get("product_id"),
		Limit:     limit,
		Offset:    offset,
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid from timestamp")
			return
		}
		filter.From = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid to timestamp")
			return
		}
		filter.To = &t
	}

	entries, total, err := a.Store.WearLog.ListByOwner(r.Context(), userID, filter)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	items := make([]wearLogDTO, 0, len(entries))
	for i := range entries {
		items = append(items, wearLogToDTO(&entries[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items, "total": total})
}
