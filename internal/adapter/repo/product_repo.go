package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wardrobe/internal/domain"
)

// ProductRepositoryPG persists products. The state column round-trips through
// domain.ProductRecord so hydration always re-validates the enumerated set.
type ProductRepositoryPG struct {
	db Querier
}

// NewProductRepository creates a product repository over db.
func NewProductRepository(db Querier) *ProductRepositoryPG {
	return &ProductRepositoryPG{db: db}
}

const productColumns = `id, owner_id, state, title, description, COALESCE(category_id, ''), attributes, tags, created_at, updated_at`

// Create inserts a new product row.
func (r *ProductRepositoryPG) Create(ctx context.Context, p *domain.Product) error {
	rec := p.Record()
	attrs, tags, err := encodeProductJSON(rec)
	if err != nil {
		return err
	}
	query := `
INSERT INTO products (id, owner_id, state, title, description, category_id, attributes, tags, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10);
`
	_, err = r.db.Exec(ctx, query,
		rec.ID, rec.OwnerID, rec.State, rec.Title, rec.Description, rec.CategoryID,
		attrs, tags, rec.CreatedAt, rec.UpdatedAt,
	)
	return err
}

// GetByID fetches a product by its identifier.
func (r *ProductRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1;`
	return r.scanProduct(r.db.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a product under a row lock for the duration of the
// surrounding transaction.
func (r *ProductRepositoryPG) GetByIDForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE;`
	return r.scanProduct(r.db.QueryRow(ctx, query, id))
}

// ListByOwner returns a page of the owner's products, newest first, plus the
// total count.
func (r *ProductRepositoryPG) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Product, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM products WHERE owner_id = $1;`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `
SELECT ` + productColumns + `
FROM products
WHERE owner_id = $1
ORDER BY updated_at DESC, created_at DESC
LIMIT $2 OFFSET $3;
`
	rows, err := r.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := r.scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// Update writes back mutable fields including the lifecycle state.
func (r *ProductRepositoryPG) Update(ctx context.Context, p *domain.Product) error {
	rec := p.Record()
	attrs, tags, err := encodeProductJSON(rec)
	if err != nil {
		return err
	}
	query := `
UPDATE products
SET state = $2,
    title = $3,
    description = $4,
    category_id = NULLIF($5, ''),
    attributes = $6,
    tags = $7,
    updated_at = now()
WHERE id = $1;
`
	tag, err := r.db.Exec(ctx, query, rec.ID, rec.State, rec.Title, rec.Description, rec.CategoryID, attrs, tags)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a product; media links and look items cascade.
func (r *ProductRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AttachMedia links a media row to the product.
func (r *ProductRepositoryPG) AttachMedia(ctx context.Context, productID, mediaID string) error {
	query := `
INSERT INTO product_media (product_id, media_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING;
`
	_, err := r.db.Exec(ctx, query, productID, mediaID)
	return err
}

// ListMedia returns the media rows attached to the product.
func (r *ProductRepositoryPG) ListMedia(ctx context.Context, productID string) ([]domain.Media, error) {
	query := `
SELECT m.id, m.owner_id, m.bucket, m.object_key, m.content_type, m.size_bytes, COALESCE(m.checksum_sha256, ''), m.created_at
FROM media m
JOIN product_media pm ON pm.media_id = m.id
WHERE pm.product_id = $1
ORDER BY m.created_at;
`
	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var media []domain.Media
	for rows.Next() {
		var m domain.Media
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Bucket, &m.ObjectKey, &m.ContentType, &m.SizeBytes, &m.ChecksumSHA256, &m.CreatedAt); err != nil {
			return nil, err
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

func (r *ProductRepositoryPG) scanProduct(row pgx.Row) (*domain.Product, error) {
	var rec domain.ProductRecord
	var attrs, tags []byte
	if err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.State, &rec.Title, &rec.Description, &rec.CategoryID,
		&attrs, &tags, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &rec.Attributes); err != nil {
			return nil, fmt.Errorf("decode product attributes: %w", err)
		}
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &rec.Tags); err != nil {
			return nil, fmt.Errorf("decode product tags: %w", err)
		}
	}
	return domain.ProductFromRecord(rec)
}

func encodeProductJSON(rec domain.ProductRecord) ([]byte, []byte, error) {
	attrs, err := json.Marshal(rec.Attributes)
	if err != nil {
		return nil, nil, fmt.Errorf("encode product attributes: %w", err)
	}
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return nil, nil, fmt.Errorf("encode product tags: %w", err)
	}
	return attrs, tags, nil
}
