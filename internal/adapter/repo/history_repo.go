package repo

import (
	"context"

	"wardrobe/internal/domain"
)

// HistoryRepositoryPG persists the append-only state ledger. Rows are never
// updated or deleted.
type HistoryRepositoryPG struct {
	db Querier
}

// NewHistoryRepository creates a ledger repository over db.
func NewHistoryRepository(db Querier) *HistoryRepositoryPG {
	return &HistoryRepositoryPG{db: db}
}

// Append inserts one ledger row.
func (r *HistoryRepositoryPG) Append(ctx context.Context, h *domain.StateHistory) error {
	query := `
INSERT INTO state_history (id, entity_type, entity_id, from_state, to_state, event, actor, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := r.db.Exec(ctx, query,
		h.ID, h.EntityType, h.EntityID, h.FromState, h.ToState, h.Event, h.Actor, h.CreatedAt,
	)
	return err
}

// ListByEntity returns the entity's full transition history in order: by
// created_at, ties broken by the insertion sequence.
func (r *HistoryRepositoryPG) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.StateHistory, error) {
	query := `
SELECT id, seq, entity_type, entity_id, from_state, to_state, event, actor, created_at
FROM state_history
WHERE entity_type = $1 AND entity_id = $2
ORDER BY created_at, seq;
`
	rows, err := r.db.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.StateHistory
	for rows.Next() {
		var h domain.StateHistory
		if err := rows.Scan(&h.ID, &h.Seq, &h.EntityType, &h.EntityID, &h.FromState, &h.ToState, &h.Event, &h.Actor, &h.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
