package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wardrobe/internal/domain"
)

// AIJobRepositoryPG persists AI jobs. Jobs are mutated only by the worker and
// the explicit retry operation; they are never deleted.
type AIJobRepositoryPG struct {
	db Querier
}

// NewAIJobRepository creates a job repository over db.
func NewAIJobRepository(db Querier) *AIJobRepositoryPG {
	return &AIJobRepositoryPG{db: db}
}

const jobColumns = `id, owner_id, media_id, status, hint, result, COALESCE(error, ''), COALESCE(draft_product_id, ''), created_at, updated_at`

// Create inserts a queued job.
func (r *AIJobRepositoryPG) Create(ctx context.Context, j *domain.AIJob) error {
	hint, err := json.Marshal(j.Hint)
	if err != nil {
		return fmt.Errorf("encode job hint: %w", err)
	}
	query := `
INSERT INTO ai_jobs (id, owner_id, media_id, status, hint, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err = r.db.Exec(ctx, query, j.ID, j.OwnerID, j.MediaID, j.Status, hint, j.CreatedAt, j.UpdatedAt)
	return err
}

// GetByID fetches a job by its identifier.
func (r *AIJobRepositoryPG) GetByID(ctx context.Context, id string) (*domain.AIJob, error) {
	query := `SELECT ` + jobColumns + ` FROM ai_jobs WHERE id = $1;`
	return scanJob(r.db.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a job under a row lock. The claim phase relies on
// this lock so two workers cannot both observe queued.
func (r *AIJobRepositoryPG) GetByIDForUpdate(ctx context.Context, id string) (*domain.AIJob, error) {
	query := `SELECT ` + jobColumns + ` FROM ai_jobs WHERE id = $1 FOR UPDATE;`
	return scanJob(r.db.QueryRow(ctx, query, id))
}

// Update writes back status, result, error and draft product reference.
func (r *AIJobRepositoryPG) Update(ctx context.Context, j *domain.AIJob) error {
	var result []byte
	if len(j.Result) > 0 {
		result = j.Result
	}
	query := `
UPDATE ai_jobs
SET status = $2,
    result = $3,
    error = NULLIF($4, ''),
    draft_product_id = NULLIF($5, ''),
    updated_at = $6
WHERE id = $1;
`
	tag, err := r.db.Exec(ctx, query, j.ID, j.Status, result, j.Error, j.DraftProductID, j.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.AIJob, error) {
	var j domain.AIJob
	var hint, result []byte
	if err := row.Scan(
		&j.ID, &j.OwnerID, &j.MediaID, &j.Status, &hint, &result, &j.Error, &j.DraftProductID,
		&j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(hint) > 0 {
		if err := json.Unmarshal(hint, &j.Hint); err != nil {
			return nil, fmt.Errorf("decode job hint: %w", err)
		}
	}
	if j.Hint == nil {
		j.Hint = map[string]any{}
	}
	if len(result) > 0 {
		j.Result = append([]byte(nil), result...)
	}
	return &j, nil
}
