package domain

import "time"

// Look is a named outfit: an ordered set of product references.
type Look struct {
	ID        string
	OwnerID   string
	Title     string
	Occasion  string
	Season    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WearLogEntry records that a product was worn.
type WearLogEntry struct {
	ID        string
	OwnerID   string
	ProductID string
	WornAt    time.Time
	Context   string
	Notes     string
	CreatedAt time.Time
}
