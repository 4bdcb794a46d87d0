package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"wardrobe/internal/domain"
)

// LookRepositoryPG persists looks and their product references.
type LookRepositoryPG struct {
	db Querier
}

// NewLookRepository creates a look repository over db.
func NewLookRepository(db Querier) *LookRepositoryPG {
	return &LookRepositoryPG{db: db}
}

// Create inserts a look.
func (r *LookRepositoryPG) Create(ctx context.Context, l *domain.Look) error {
	query := `
INSERT INTO looks (id, owner_id, title, occasion, season, created_at, updated_at)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7);
`
	_, err := r.db.Exec(ctx, query, l.ID, l.OwnerID, l.Title, l.Occasion, l.Season, l.CreatedAt, l.UpdatedAt)
	return err
}

// GetByID fetches a look.
func (r *LookRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Look, error) {
	query := `
SELECT id, owner_id, COALESCE(title, ''), COALESCE(occasion, ''), COALESCE(season, ''), created_at, updated_at
FROM looks
WHERE id = $1;
`
	var l domain.Look
	err := r.db.QueryRow(ctx, query, id).Scan(&l.ID, &l.OwnerID, &l.Title, &l.Occasion, &l.Season, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// ListByOwner returns a page of the owner's looks plus the total count.
func (r *LookRepositoryPG) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Look, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM looks WHERE owner_id = $1;`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `
SELECT id, owner_id, COALESCE(title, ''), COALESCE(occasion, ''), COALESCE(season, ''), created_at, updated_at
FROM looks
WHERE owner_id = $1
ORDER BY updated_at DESC, created_at DESC
LIMIT $2 OFFSET $3;
`
	rows, err := r.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var looks []domain.Look
	for rows.Next() {
		var l domain.Look
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Title, &l.Occasion, &l.Season, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, 0, err
		}
		looks = append(looks, l)
	}
	return looks, total, rows.Err()
}

// Update writes back a look's editable fields.
func (r *LookRepositoryPG) Update(ctx context.Context, l *domain.Look) error {
	query := `
UPDATE looks
SET title = NULLIF($2, ''),
    occasion = NULLIF($3, ''),
    season = NULLIF($4, ''),
    updated_at = now()
WHERE id = $1;
`
	tag, err := r.db.Exec(ctx, query, l.ID, l.Title, l.Occasion, l.Season)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a look; its items cascade.
func (r *LookRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM looks WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddItem links a product to the look.
func (r *LookRepositoryPG) AddItem(ctx context.Context, lookID, productID string) error {
	query := `
INSERT INTO look_items (look_id, product_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING;
`
	_, err := r.db.Exec(ctx, query, lookID, productID)
	return err
}

// RemoveItem unlinks a product from the look.
func (r *LookRepositoryPG) RemoveItem(ctx context.Context, lookID, productID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM look_items WHERE look_id = $1 AND product_id = $2;`, lookID, productID)
	return err
}

// ListItems returns the product ids referenced by the look in insertion order.
func (r *LookRepositoryPG) ListItems(ctx context.Context, lookID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT product_id FROM look_items WHERE look_id = $1 ORDER BY added_at;`, lookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
