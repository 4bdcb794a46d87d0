package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"wardrobe/internal/domain"
)

const maxUploadBytes = 32 << 20

type mediaDTO struct {
	ID          string    `json:"id"`
	Bucket      string    `json:"bucket"`
	ObjectKey   string    `json:"object_key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Checksum    string    `json:"checksum_sha256"`
	CreatedAt   time.Time `json:"created_at"`
}

func mediaToDTO(m *domain.Media) mediaDTO {
	return mediaDTO{
		ID:          m.ID,
		Bucket:      m.Bucket,
		ObjectKey:   m.ObjectKey,
		ContentType: m.ContentType,
		SizeBytes:   m.SizeBytes,
		Checksum:    m.ChecksumSHA256,
		CreatedAt:   m.CreatedAt,
	}
}

// MediaUpload accepts one multipart file, writes the bytes to blob storage and
// records the Media row. The row is created after the blob write so a failed
// write never leaves a dangling reference.
func (a *App) MediaUpload(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read upload")
		return
	}
	if len(data) == 0 {
		a.domainError(w, r, domain.ErrEmptyUpload)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	sum := sha256.Sum256(data)

	id := uuid.NewString()
	key := userID + "/" + id + safeExt(header.Filename)
	if _, err := a.Blobs.Write(r.Context(), key, data, contentType); err != nil {
		a.domainError(w, r, err)
		return
	}

	media := &domain.Media{
		ID:             id,
		OwnerID:        userID,
		Bucket:         a.Blobs.Bucket(),
		ObjectKey:      key,
		ContentType:    contentType,
		SizeBytes:      int64(len(data)),
		ChecksumSHA256: hex.EncodeToString(sum[:]),
		CreatedAt:      time.Now(),
	}
	if err := a.Store.Media.Create(r.Context(), media); err != nil {
		a.domainError(w, r, err)
		return
	}
	if err := a.States.Record(r.Context(), a.Store.History, domain.EntityMedia, media.ID, "uploaded", userID); err != nil {
		a.Logger.Error().Err(err).Str("media_id", media.ID).Msg("history append failed")
	}
	a.json(w, http.StatusCreated, mediaToDTO(media))
}

func (a *App) MediaGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	media, err := a.Store.Media.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if media.OwnerID != userID {
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	a.json(w, http.StatusOK, mediaToDTO(media))
}

func (a *App) MediaDownload(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	media, err := a.Store.Media.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if media.OwnerID != userID {
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	data, err := a.Blobs.Read(r.Context(), media.ObjectKey)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", media.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// safeExt keeps at most one short extension from the client filename.
func safeExt(filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
