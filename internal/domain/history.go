package domain

import "time"

// EntityType names the kind of entity a ledger row refers to.
type EntityType string

const (
	EntityProduct EntityType = "product"
	EntityMedia   EntityType = "media"
	EntityAIJob   EntityType = "ai_job"
)

// StateHistory is one immutable ledger row. Rows are append-only and are never
// updated or deleted; per (EntityType, EntityID) they form a total order by
// CreatedAt with ties broken by Seq, the insertion id.
//
// For product transitions FromState and ToState carry the full move. For
// event-only entities (media, ai_job) both are nil and only the event name and
// actor are recorded.
type StateHistory struct {
	ID         string
	Seq        int64
	EntityType EntityType
	EntityID   string
	FromState  *string
	ToState    *string
	Event      string
	Actor      *string
	CreatedAt  time.Time
}
