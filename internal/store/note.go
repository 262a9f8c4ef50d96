package store

import (
	"context"
	"time"

	"github.com/notekeeper/apiserver/types"
)

// NoteRepository handles persistence for notes.
type NoteRepository struct {
	entryTable[types.Note]
}

func NewNoteRepository(db DBTX) *NoteRepository {
	return &NoteRepository{entryTable[types.Note]{
		db:      db,
		table:   "notes",
		columns: "e.id, e.title, e.content, e.category_id, e.author_id, e.created_at, e.updated_at",
		scan:    scanNote,
	}}
}

func scanNote(row rowScanner) (types.Note, error) {
	var note types.Note
	err := row.Scan(
		&note.ID,
		&note.Title,
		&note.Content,
		&note.CategoryID,
		&note.AuthorID,
		&note.CreatedAt,
		&note.UpdatedAt,
		&note.CategoryTitle,
	)
	return note, err
}

func (r *NoteRepository) Create(ctx context.Context, note types.Note) (types.Note, error) {
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now

	const query = `
		INSERT INTO notes (title, content, category_id, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		note.Title,
		note.Content,
		note.CategoryID,
		note.AuthorID,
		note.CreatedAt,
		note.UpdatedAt,
	).Scan(&note.ID); err != nil {
		return types.Note{}, mapError(err)
	}
	return note, nil
}

// Update rewrites the editable fields. The author never changes.
func (r *NoteRepository) Update(ctx context.Context, note types.Note) (types.Note, error) {
	note.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE notes
		SET title = $1,
			content = $2,
			category_id = $3,
			updated_at = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(
		ctx,
		query,
		note.Title,
		note.Content,
		note.CategoryID,
		note.UpdatedAt,
		note.ID,
	)
	if err != nil {
		return types.Note{}, mapError(err)
	}
	if err := expectAffected(result); err != nil {
		return types.Note{}, err
	}
	return note, nil
}
