package repo

import (
	"context"
	"strconv"
	"time"

	"wardrobe/internal/domain"
)

// WearLogRepositoryPG persists wear log entries.
type WearLogRepositoryPG struct {
	db Querier
}

// NewWearLogRepository creates a wear log repository over db.
func NewWearLogRepository(db Querier) *WearLogRepositoryPG {
	return &WearLogRepositoryPG{db: db}
}

// Create inserts a wear log entry.
func (r *WearLogRepositoryPG) Create(ctx context.Context, e *domain.WearLogEntry) error {
	query := `
INSERT INTO wear_log (id, owner_id, product_id, worn_at, context, notes, created_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7);
`
	_, err := r.db.Exec(ctx, query, e.ID, e.OwnerID, e.ProductID, e.WornAt, e.Context, e.Notes, e.CreatedAt)
	return err
}

// Filter narrows a wear log listing.
type WearLogFilter struct {
	ProductID string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// ListByOwner returns a filtered page of the owner's wear log, most recent
// wear first, plus the total count for the filter.
func (r *WearLogRepositoryPG) ListByOwner(ctx context.Context, ownerID string, f WearLogFilter) ([]domain.WearLogEntry, int, error) {
	where := `WHERE owner_id = $1`
	args := []any{ownerID}
	if f.ProductID != "" {
		args = append(args, f.ProductID)
		where += ` AND product_id = $2`
	}
	// Date bounds are appended positionally after the optional product filter.
	if f.From != nil {
		args = append(args, *f.From)
		where += ` AND worn_at >= $` + itoa(len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where += ` AND worn_at <= $` + itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM wear_log `+where+`;`, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	query := `
SELECT id, owner_id, product_id, worn_at, COALESCE(context, ''), COALESCE(notes, ''), created_at
FROM wear_log ` + where + `
ORDER BY worn_at DESC
LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args)) + `;`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []domain.WearLogEntry
	for rows.Next() {
		var e domain.WearLogEntry
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.ProductID, &e.WornAt, &e.Context, &e.Notes, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
