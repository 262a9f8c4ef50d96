package types

import "time"

// Category groups notes and tasks. Categories are shared by all users.
type Category struct {
	// ID is the unique identifier of the category.
	ID int `json:"id" db:"id"`

	// Title is the human-readable name of the category.
	Title string `json:"title" db:"title"`

	// Slug is the URL-friendly form of the title.
	Slug string `json:"slug" db:"slug"`

	// CreatedAt is the timestamp at which the category was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the category.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
