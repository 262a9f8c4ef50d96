package types

import "time"

// EventKind names a change that happened to a record.
type EventKind string

// Published event kinds.
const (
	EventCategoryCreated EventKind = "category.created"
	EventCategoryUpdated EventKind = "category.updated"
	EventCategoryDeleted EventKind = "category.deleted"
	EventNoteCreated     EventKind = "note.created"
	EventNoteUpdated     EventKind = "note.updated"
	EventNoteDeleted     EventKind = "note.deleted"
	EventTaskCreated     EventKind = "task.created"
	EventTaskUpdated     EventKind = "task.updated"
	EventTaskDeleted     EventKind = "task.deleted"
	EventUserRegistered  EventKind = "user.registered"
	EventUserUpdated     EventKind = "user.updated"
	EventUserDeleted     EventKind = "user.deleted"
)

// Event describes a committed change. Events carry identifiers only, never
// note contents or credentials.
type Event struct {
	// Kind is the type of change.
	Kind EventKind `json:"kind"`

	// SubjectID is the ID of the changed record.
	SubjectID int `json:"subject_id"`

	// OwnerID is the ID of the owning user for notes and tasks.
	OwnerID int `json:"owner_id,omitempty"`

	// Deleted carries cascade counts for user deletions.
	Deleted *DeletionSummary `json:"deleted,omitempty"`

	// OccurredAt is when the change was committed.
	OccurredAt time.Time `json:"occurred_at"`
}
