package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/notekeeper/apiserver/types"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// entryTable implements the queries notes and tasks have in common. Every
// read joins the category to fill in its title.
type entryTable[T types.Entry] struct {
	db      DBTX
	table   string
	columns string
	scan    func(rowScanner) (T, error)
}

func (t entryTable[T]) selectFrom() string {
	return fmt.Sprintf(`
		SELECT %s, c.title
		FROM %s e
		JOIN categories c ON c.id = e.category_id`, t.columns, t.table)
}

// ListByAuthor returns a page of the author's entries, most recently updated
// first, and the author's total entry count.
func (t entryTable[T]) ListByAuthor(ctx context.Context, authorID, offset, limit int) ([]T, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = types.DefaultPageSize
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(1) FROM %s WHERE author_id = $1`, t.table)
	var total int
	if err := t.db.QueryRowContext(ctx, countQuery, authorID).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := t.selectFrom() + `
		WHERE e.author_id = $1
		ORDER BY e.updated_at DESC, e.id DESC
		LIMIT $2 OFFSET $3`
	rows, err := t.db.QueryContext(ctx, listQuery, authorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := make([]T, 0, limit)
	for rows.Next() {
		entry, err := t.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (t entryTable[T]) Get(ctx context.Context, id int) (T, error) {
	query := t.selectFrom() + `
		WHERE e.id = $1`
	entry, err := t.scan(t.db.QueryRowContext(ctx, query, id))
	if err != nil {
		var zero T
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return entry, nil
}

// CountByCategory returns how many entries reference the category.
func (t entryTable[T]) CountByCategory(ctx context.Context, categoryID int) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(DISTINCT id) FROM %s WHERE category_id = $1`, t.table)
	var count int
	if err := t.db.QueryRowContext(ctx, query, categoryID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (t entryTable[T]) Delete(ctx context.Context, id int) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t.table)
	result, err := t.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(result)
}

// DeleteByAuthor removes every entry of the author and reports how many
// rows were deleted.
func (t entryTable[T]) DeleteByAuthor(ctx context.Context, authorID int) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE author_id = $1`, t.table)
	result, err := t.db.ExecContext(ctx, query, authorID)
	if err != nil {
		return 0, mapError(err)
	}
	return result.RowsAffected()
}
