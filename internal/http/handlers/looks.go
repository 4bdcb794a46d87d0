package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"wardrobe/internal/domain"
)

type lookPayload struct {
	Title    string `json:"title"`
	Occasion string `json:"occasion"`
	Season   string `json:"season"`
}

type lookDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Occasion  string    `json:"occasion,omitempty"`
	Season    string    `json:"season,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func lookToDTO(l *domain.Look) lookDTO {
	return lookDTO{
		ID:        l.ID,
		Title:     l.Title,
		Occasion:  l.Occasion,
		Season:    l.Season,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func (a *App) LooksCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req lookPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Title == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "title required")
		return
	}
	now := time.Now()
	look := &domain.Look{
		ID:        uuid.NewString(),
		OwnerID:   userID,
		Title:     req.Title,
		Occasion:  req.Occasion,
		Season:    req.Season,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.Store.Looks.Create(r.Context(), look); err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, lookToDTO(look))
}

func (a *App) loadOwnedLook(r *http.Request, userID string) (*domain.Look, error) {
	look, err := a.Store.Looks.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if look.OwnerID != userID {
		return nil, domain.ErrNotFound
	}
	return look, nil
}

func (a *App) LooksGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	look, err := a.loadOwnedLook(r, userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	items, err := a.Store.Looks.ListItems(r.Context(), look.ID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	dto := lookToDTO(look)
	a.json(w, http.StatusOK, map[string]any{"look": dto, "product_ids": items})
}

func (a *App) LooksList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	limit, offset := paging(r)
	looks, total, err := a.Store.Looks.ListByOwner(r.Context(), userID, limit, offset)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	items := make([]lookDTO, 0, len(looks))
	for i := range looks {
		items = append(items, lookToDTO(&looks[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (a *App) LooksUpdate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req lookPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	look, err := a.loadOwnedLook(r, userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	look.Title = req.Title
	look.Occasion = req.Occasion
	look.Season = req.Season
	look.UpdatedAt = time.Now()
	if err := a.Store.Looks.Update(r.Context(), look); err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, lookToDTO(look))
}

func (a *App) LooksDelete(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	look, err := a.loadOwnedLook(r, userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if err := a.Store.Looks.Delete(r.Context(), look.ID); err != nil {
		a.domainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type lookItemRequest struct {
	ProductID string `json:"product_id"`
}

func (a *App) LookItemsAdd(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req lookItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "product_id required")
		return
	}
	look, err := a.loadOwnedLook(r, userID)
	if err != nil {
		a.domainError(w, r, err)
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
	if err := a.Store.Looks.AddItem(r.Context(), look.ID, product.ID); err != nil {
		a.domainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) LookItemsRemove(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	look, err := a.loadOwnedLook(r, userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if err := a.Store.Looks.RemoveItem(r.Context(), look.ID, chi.URLParam(r, "productID")); err != nil {
		a.domainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
