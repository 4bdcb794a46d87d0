// Package state records entity lifecycle changes in the append-only ledger.
//
// Products go through the strict transition table; media and AI jobs use the
// event-only path, which logs the event without state validation.
package state

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wardrobe/internal/domain"
)

// HistoryAppender persists ledger rows. Implementations may be scoped to a
// transaction so that the append commits or rolls back with the caller's
// entity writes.
type HistoryAppender interface {
	Append(ctx context.Context, h *domain.StateHistory) error
}

// Service is the only legal path for recording state changes.
type Service struct {
	// NewID and Now are injectable for tests.
	NewID func() string
	Now   func() time.Time
}

// NewService returns a service with uuid identifiers and wall-clock time.
func NewService() *Service {
	return &Service{
		NewID: uuid.NewString,
		Now:   time.Now,
	}
}

// Apply validates event against the product transition table, mutates the
// product and appends exactly one ledger row. On rejection the product is
// unchanged and nothing is appended.
func (s *Service) Apply(ctx context.Context, ledger HistoryAppender, p *domain.Product, event domain.Event, actor string) (domain.ProductState, error) {
	from := string(p.State())
	next, err := p.Transition(event)
	if err != nil {
		return "", err
	}
	to := string(next)
	h := &domain.StateHistory{
		ID:         s.NewID(),
		EntityType: domain.EntityProduct,
		EntityID:   p.ID,
		FromState:  &from,
		ToState:    &to,
		Event:      string(event),
		Actor:      optional(actor),
		CreatedAt:  s.Now(),
	}
	if err := ledger.Append(ctx, h); err != nil {
		return "", fmt.Errorf("append history: %w", err)
	}
	return next, nil
}

// Record appends an event-only ledger row for entities without a formal state
// machine. FromState and ToState are left null.
func (s *Service) Record(ctx context.Context, ledger HistoryAppender, entityType domain.EntityType, entityID, event, actor string) error {
	h := &domain.StateHistory{
		ID:         s.NewID(),
		EntityType: entityType,
		EntityID:   entityID,
		Event:      event,
		Actor:      optional(actor),
		CreatedAt:  s.Now(),
	}
	if err := ledger.Append(ctx, h); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
