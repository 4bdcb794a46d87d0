package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"wardrobe/internal/adapter/repo"
	"wardrobe/internal/domain"
	"wardrobe/internal/queue"
	"wardrobe/pkg/zip"
)

type productPayload struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	CategoryID  string         `json:"category_id"`
	Attributes  map[string]any `json:"attributes"`
	Tags        []string       `json:"tags"`
}

type productDTO struct {
	ID          string         `json:"id"`
	State       string         `json:"state"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	CategoryID  string         `json:"category_id,omitempty"`
	Attributes  map[string]any `json:"attributes"`
	Tags        []string       `json:"tags"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func productToDTO(p *domain.Product) productDTO {
	return productDTO{
		ID:          p.ID,
		State:       string(p.State()),
		Title:       p.Title,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		Attributes:  p.Attributes,
		Tags:        p.Tags,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (a *App) ProductsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req productPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	product := domain.NewProduct(uuid.NewString(), userID, time.Now())
	product.Title = req.Title
	product.Description = req.Description
	product.CategoryID = req.CategoryID
	if req.Attributes != nil {
		product.Attributes = req.Attributes
	}
	if req.Tags != nil {
		product.Tags = req.Tags
	}

	err := a.Store.InTx(r.Context(), func(tx *repo.TxStore) error {
		if err := tx.Products.Create(r.Context(), product); err != nil {
			return err
		}
		return a.States.Record(r.Context(), tx.History, domain.EntityProduct, product.ID, "created", userID)
	})
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.dispatch(r, queue.KindIndexProduct, product.ID)
	a.json(w, http.StatusCreated, productToDTO(product))
}

// loadOwnedProduct fetches a product and enforces ownership. A foreign
// product reads as not found so ids cannot be probed.
func (a *App) loadOwnedProduct(r *http.Request, userID string) (*domain.Product, error) {
	product, err := a.Store.Products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if product.OwnerID != userID {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

func (a *App) ProductsGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	product, err := a.loadOwnedProduct(r, userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, productToDTO(product))
}

func (a *App) ProductsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	limit, offset := paging(r)
	products, total, err := a.Store.Products.ListByOwner(r.Context(), userID, limit, offset)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	items := make([]productDTO, 0, len(products))
	for _, p := range products {
		items = append(items, productToDTO(p))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (a *App) ProductsUpdate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req productPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	var updated *domain.Product
	err := a.Store.InTx(r.Context(), func(tx *repo.TxStore) error {
		product, err := tx.Products.GetByIDForUpdate(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			return err
		}
		if product.OwnerID != userID {
			return domain.ErrNotFound
		}
		product.Title = req.Title
		product.Description = req.Description
		product.CategoryID = req.CategoryID
		if req.Attributes != nil {
			product.Attributes = req.Attributes
		}
		if req.Tags != nil {
			product.Tags = req.Tags
		}
		product.UpdatedAt = time.Now()
		if err := tx.Products.Update(r.Context(), product); err != nil {
			return err
		}
		updated = product
		return nil
	})
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.dispatch(r, queue.KindIndexProduct, updated.ID)
	a.json(w, http.StatusOK, productToDTO(updated))
}

func (a *App) ProductsDelete(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	product, err := a.loadOwnedProduct(r, userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if err := a.Store.Products.Delete(r.Context(), product.ID); err != nil {
		a.domainError(w, r, err)
		return
	}
	if a.Search != nil {
		if err := a.Search.DeleteProduct(r.Context(), product.ID); err != nil {
			a.Logger.Error().Err(err).Str("product_id", product.ID).Msg("search deindex failed")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProductsApplyEvent moves a product through its lifecycle. The transition and
// its ledger row commit atomically; a rejected event rolls everything back and
// surfaces the allowed alternatives.
func (a *App) ProductsApplyEvent(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	event := domain.Event(chi.URLParam(r, "event"))

	var updated *domain.Product
	err := a.Store.InTx(r.Context(), func(tx *repo.TxStore) error {
		product, err := tx.Products.GetByIDForUpdate(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			return err
		}
		if product.OwnerID != userID {
			return domain.ErrNotFound
		}
		if _, err := a.States.Apply(r.Context(), tx.History, product, event, userID); err != nil {
			return err
		}
		product.UpdatedAt = time.Now()
		if err := tx.Products.Update(r.Context(), product); err != nil {
			return err
		}
		updated = product
		return nil
	})
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.dispatch(r, queue.KindIndexProduct, updated.ID)
	a.json(w, http.StatusOK, productToDTO(updated))
}

type historyDTO struct {
	FromState *string   `json:"from_state"`
	ToState   *string   `json:"to_state"`
	Event     string    `json:"event"`
	Actor     *string   `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *App) ProductsHistory(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	product, err := a.loadOwnedProduct(r, userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	rows, err := a.Store.History.ListByEntity(r.Context(), domain.EntityProduct, product.ID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	items := make([]historyDTO, 0, len(rows))
	for _, h := range rows {
		items = append(items, historyDTO{
			FromState: h.FromState,
			ToState:   h.ToState,
			Event:     h.Event,
			Actor:     h.Actor,
			CreatedAt: h.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

type attachMediaRequest struct {
	MediaID string `json:"media_id"`
}

func (a *App) ProductsAttachMedia(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req attachMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MediaID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "media_id required")
		return
	}
	product, err := a.loadOwnedProduct(r, userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	media, err := a.Store.Media.GetByID(r.Context(), req.MediaID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if media.OwnerID != userID {
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	if err := a.Store.Products.AttachMedia(r.Context(), product.ID, media.ID); err != nil {
		a.domainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProductsMediaArchive streams every attached media file as one zip download.
func (a *App) ProductsMediaArchive(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	product, err := a.loadOwnedProduct(r, userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	mediaList, err := a.Store.Products.ListMedia(r.Context(), product.ID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if len(mediaList) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "product has no media")
		return
	}

	assets := make([]zip.Asset, 0, len(mediaList))
	for _, m := range mediaList {
		data, err := a.Blobs.Read(r.Context(), m.ObjectKey)
		if err != nil {
			a.Logger.Error().Err(err).Str("media_id", m.ID).Msg("blob read failed")
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: path.Base(m.ObjectKey),
			MIME:     m.ContentType,
			Data:     data,
		})
	}
	if len(assets) == 0 {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load media")
		return
	}

	archive := zip.ArchiveAssets(assets)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", product.ID+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
