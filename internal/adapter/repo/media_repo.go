package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"wardrobe/internal/domain"
)

// MediaRepositoryPG persists media metadata. Rows are immutable after
// creation.
type MediaRepositoryPG struct {
	db Querier
}

// NewMediaRepository creates a media repository over db.
func NewMediaRepository(db Querier) *MediaRepositoryPG {
	return &MediaRepositoryPG{db: db}
}

// Create inserts a media row.
func (r *MediaRepositoryPG) Create(ctx context.Context, m *domain.Media) error {
	query := `
INSERT INTO media (id, owner_id, bucket, object_key, content_type, size_bytes, checksum_sha256, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8);
`
	_, err := r.db.Exec(ctx, query,
		m.ID, m.OwnerID, m.Bucket, m.ObjectKey, m.ContentType, m.SizeBytes, m.ChecksumSHA256, m.CreatedAt,
	)
	return err
}

// GetByID fetches a media row by its identifier.
func (r *MediaRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Media, error) {
	query := `
SELECT id, owner_id, bucket, object_key, content_type, size_bytes, COALESCE(checksum_sha256, ''), created_at
FROM media
WHERE id = $1;
`
	var m domain.Media
	err := r.db.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.OwnerID, &m.Bucket, &m.ObjectKey, &m.ContentType, &m.SizeBytes, &m.ChecksumSHA256, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
