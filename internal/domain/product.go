package domain

import "time"

// Product is a wardrobe item. The lifecycle state is deliberately unexported:
// the only way to move it is Transition, which validates the move against the
// transition table. Repositories rehydrate products through ProductFromRecord,
// which rejects states outside the enumerated set.
type Product struct {
	ID          string
	OwnerID     string
	state       ProductState
	Title       string
	Description string
	CategoryID  string
	Attributes  map[string]any
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewProduct returns an empty draft owned by ownerID.
func NewProduct(id, ownerID string, now time.Time) *Product {
	return &Product{
		ID:         id,
		OwnerID:    ownerID,
		state:      StateDraft,
		Attributes: map[string]any{},
		Tags:       []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// State returns the current lifecycle state.
func (p *Product) State() ProductState {
	return p.state
}

// Transition applies event to the product and returns the new state. The
// product is left untouched when the move is rejected.
func (p *Product) Transition(event Event) (ProductState, error) {
	moves, ok := productTransitions[p.state]
	if !ok {
		return "", &UnknownStateError{EntityType: EntityProduct, EntityID: p.ID, State: string(p.state)}
	}
	next, ok := moves[event]
	if !ok {
		return "", &InvalidTransitionError{State: p.state, Event: event, Allowed: AllowedEvents(p.state)}
	}
	p.state = next
	return next, nil
}

// ProductRecord is the storage representation of a product row.
type ProductRecord struct {
	ID          string
	OwnerID     string
	State       string
	Title       string
	Description string
	CategoryID  string
	Attributes  map[string]any
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductFromRecord rehydrates a product from its storage row. A state outside
// the enumerated set yields UnknownStateError.
func ProductFromRecord(rec ProductRecord) (*Product, error) {
	st := ProductState(rec.State)
	if !ValidProductState(st) {
		return nil, &UnknownStateError{EntityType: EntityProduct, EntityID: rec.ID, State: rec.State}
	}
	attrs := rec.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	return &Product{
		ID:          rec.ID,
		OwnerID:     rec.OwnerID,
		state:       st,
		Title:       rec.Title,
		Description: rec.Description,
		CategoryID:  rec.CategoryID,
		Attributes:  attrs,
		Tags:        tags,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}, nil
}

// Record converts the product back to its storage representation.
func (p *Product) Record() ProductRecord {
	return ProductRecord{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		State:       string(p.state),
		Title:       p.Title,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		Attributes:  p.Attributes,
		Tags:        p.Tags,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
