package types

import "time"

// Entry is a record owned by exactly one user and filed under exactly one
// category. Note and Task are entries.
type Entry interface {
	Note | Task

	// EntryID returns the ID of the entry, zero when not yet stored.
	EntryID() int

	// OwnerID returns the ID of the authoring user.
	OwnerID() int

	// CategoryRef returns the ID of the category the entry is filed under.
	CategoryRef() int
}

// Note is a titled text owned by its author.
type Note struct {
	// ID is the unique identifier of the note.
	ID int `json:"id" db:"id"`

	// Title is the headline of the note.
	Title string `json:"title" db:"title"`

	// Content is the body of the note.
	Content string `json:"content" db:"content"`

	// CategoryID identifies the category the note is filed under.
	CategoryID int `json:"category_id" db:"category_id"`

	// CategoryTitle is the title of the category, populated on reads.
	CategoryTitle string `json:"category_title,omitempty" db:"category_title"`

	// AuthorID identifies the user who owns the note.
	AuthorID int `json:"author_id" db:"author_id"`

	// CreatedAt is the timestamp at which the note was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the note.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (n Note) EntryID() int     { return n.ID }
func (n Note) OwnerID() int     { return n.AuthorID }
func (n Note) CategoryRef() int { return n.CategoryID }

// Task is a titled to-do item owned by its author.
type Task struct {
	// ID is the unique identifier of the task.
	ID int `json:"id" db:"id"`

	// Title describes the task.
	Title string `json:"title" db:"title"`

	// CategoryID identifies the category the task is filed under.
	CategoryID int `json:"category_id" db:"category_id"`

	// CategoryTitle is the title of the category, populated on reads.
	CategoryTitle string `json:"category_title,omitempty" db:"category_title"`

	// AuthorID identifies the user who owns the task.
	AuthorID int `json:"author_id" db:"author_id"`

	// CreatedAt is the timestamp at which the task was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the task.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (t Task) EntryID() int     { return t.ID }
func (t Task) OwnerID() int     { return t.AuthorID }
func (t Task) CategoryRef() int { return t.CategoryID }
