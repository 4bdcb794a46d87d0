// Package repo implements PostgreSQL persistence for the wardrobe domain.
package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the query surface shared by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB adds transaction support on top of Querier. *pgxpool.Pool satisfies it.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store bundles the repositories over one database handle.
type Store struct {
	db       DB
	Users    *UserRepositoryPG
	Products *ProductRepositoryPG
	Media    *MediaRepositoryPG
	Jobs     *AIJobRepositoryPG
	History  *HistoryRepositoryPG
	Looks    *LookRepositoryPG
	WearLog  *WearLogRepositoryPG
}

// NewStore creates a store over the given database handle.
func NewStore(db DB) *Store {
	return &Store{
		db:       db,
		Users:    NewUserRepository(db),
		Products: NewProductRepository(db),
		Media:    NewMediaRepository(db),
		Jobs:     NewAIJobRepository(db),
		History:  NewHistoryRepository(db),
		Looks:    NewLookRepository(db),
		WearLog:  NewWearLogRepository(db),
	}
}

// TxStore is a Store view scoped to one transaction.
type TxStore struct {
	Products *ProductRepositoryPG
	Media    *MediaRepositoryPG
	Jobs     *AIJobRepositoryPG
	History  *HistoryRepositoryPG
	Looks    *LookRepositoryPG
}

// InTx runs fn inside a transaction, committing on nil and rolling back on
// error or panic.
func (s *Store) InTx(ctx context.Context, fn func(tx *TxStore) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	view := &TxStore{
		Products: NewProductRepository(tx),
		Media:    NewMediaRepository(tx),
		Jobs:     NewAIJobRepository(tx),
		History:  NewHistoryRepository(tx),
		Looks:    NewLookRepository(tx),
	}
	if err := fn(view); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
