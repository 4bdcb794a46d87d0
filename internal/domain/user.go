package domain

import "time"

// User owns products, media and jobs. Ownership is exclusive; deleting a user
// cascades to owned rows.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Category is a node in the wardrobe category tree. Referenced by products,
// seeded out of band.
type Category struct {
	ID       string
	ParentID string
	Name     string
	Slug     string
	Path     string
}
