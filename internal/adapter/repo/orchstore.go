package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wardrobe/internal/domain"
)

// OrchestratorStore opens the transactions the job pipeline works in. The
// worker package defines the consumer-side interfaces; this type satisfies
// them structurally.
type OrchestratorStore struct {
	db DB
}

// NewOrchestratorStore creates a store over db.
func NewOrchestratorStore(db DB) *OrchestratorStore {
	return &OrchestratorStore{db: db}
}

// Begin opens one pipeline transaction.
func (s *OrchestratorStore) Begin(ctx context.Context) (*OrchestratorTx, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &OrchestratorTx{
		tx:       tx,
		jobs:     NewAIJobRepository(tx),
		media:    NewMediaRepository(tx),
		products: NewProductRepository(tx),
		history:  NewHistoryRepository(tx),
	}, nil
}

// OrchestratorTx is one transaction over the rows the pipeline touches.
type OrchestratorTx struct {
	tx       pgx.Tx
	jobs     *AIJobRepositoryPG
	media    *MediaRepositoryPG
	products *ProductRepositoryPG
	history  *HistoryRepositoryPG
}

// JobForUpdate loads the job under a row lock.
func (t *OrchestratorTx) JobForUpdate(ctx context.Context, jobID string) (*domain.AIJob, error) {
	return t.jobs.GetByIDForUpdate(ctx, jobID)
}

// MediaByID loads the job's source media.
func (t *OrchestratorTx) MediaByID(ctx context.Context, mediaID string) (*domain.Media, error) {
	return t.media.GetByID(ctx, mediaID)
}

// InsertProduct persists a freshly created draft product.
func (t *OrchestratorTx) InsertProduct(ctx context.Context, p *domain.Product) error {
	return t.products.Create(ctx, p)
}

// UpdateJob writes back the job's status fields.
func (t *OrchestratorTx) UpdateJob(ctx context.Context, j *domain.AIJob) error {
	return t.jobs.Update(ctx, j)
}

// Append writes one ledger row within the transaction.
func (t *OrchestratorTx) Append(ctx context.Context, h *domain.StateHistory) error {
	return t.history.Append(ctx, h)
}

// Commit commits the transaction.
func (t *OrchestratorTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback aborts the transaction; safe to call after Commit.
func (t *OrchestratorTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
