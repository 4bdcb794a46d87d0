package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"wardrobe/internal/adapter/repo"
	"wardrobe/internal/domain"
	"wardrobe/internal/queue"
)

type jobCreateRequest struct {
	MediaID string         `json:"media_id"`
	Hint    map[string]any `json:"hint"`
}

type jobDTO struct {
	ID             string          `json:"id"`
	MediaID        string          `json:"media_id"`
	Status         string          `json:"status"`
	Error          string          `json:"error,omitempty"`
	DraftProductID string          `json:"draft_product_id,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func jobToDTO(j *domain.AIJob) jobDTO {
	return jobDTO{
		ID:             j.ID,
		MediaID:        j.MediaID,
		Status:         string(j.Status),
		Error:          j.Error,
		DraftProductID: j.DraftProductID,
		Result:         j.Result,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}
}

// JobsCreate enqueues analysis of an uploaded media file. The job row commits
// before the dispatch; a lost dispatch is re-driven by the reaper sweep or a
// manual retry.
func (a *App) JobsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MediaID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "media_id required")
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

	job := domain.NewAIJob(uuid.NewString(), userID, media.ID, req.Hint, time.Now())
	err = a.Store.InTx(r.Context(), func(tx *repo.TxStore) error {
		if err := tx.Jobs.Create(r.Context(), job); err != nil {
			return err
		}
		return a.States.Record(r.Context(), tx.History, domain.EntityAIJob, job.ID, "queued", userID)
	})
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.dispatch(r, queue.KindProcessAIJob, job.ID)
	a.json(w, http.StatusAccepted, jobToDTO(job))
}

func (a *App) JobsGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	job, err := a.Store.Jobs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if job.OwnerID != userID {
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	a.json(w, http.StatusOK, jobToDTO(job))
}

// JobsRetry resets a failed job to queued and re-dispatches it. Only failed
// jobs are eligible; anything else is a conflict.
func (a *App) JobsRetry(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	var job *domain.AIJob
	err := a.Store.InTx(r.Context(), func(tx *repo.TxStore) error {
		j, err := tx.Jobs.GetByIDForUpdate(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			return err
		}
		if j.OwnerID != userID {
			return domain.ErrNotFound
		}
		if err := j.ResetForRetry(time.Now()); err != nil {
			return err
		}
		if err := tx.Jobs.Update(r.Context(), j); err != nil {
			return err
		}
		if err := a.States.Record(r.Context(), tx.History, domain.EntityAIJob, j.ID, "requeued", userID); err != nil {
			return err
		}
		job = j
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrJobNotRetryable) {
			a.error(w, http.StatusConflict, "conflict", err.Error())
			return
		}
		a.domainError(w, r, err)
		return
	}
	a.dispatch(r, queue.KindProcessAIJob, job.ID)
	a.json(w, http.StatusAccepted, jobToDTO(job))
}
