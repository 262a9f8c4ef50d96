package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/notekeeper/apiserver/types"
)

// CategoryRepository handles persistence for categories.
type CategoryRepository struct {
	db DBTX
}

func NewCategoryRepository(db DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, title, slug, created_at, updated_at`

func (r *CategoryRepository) List(ctx context.Context, offset, limit int) ([]types.Category, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = types.DefaultPageSize
	}

	const countQuery = `SELECT COUNT(1) FROM categories`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT ` + categoryColumns + `
		FROM categories
		ORDER BY updated_at DESC, id DESC
		LIMIT $1 OFFSET $2`
	categories, err := r.query(ctx, listQuery, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return categories, total, nil
}

// All returns every category ordered by title.
func (r *CategoryRepository) All(ctx context.Context) ([]types.Category, error) {
	const query = `
		SELECT ` + categoryColumns + `
		FROM categories
		ORDER BY title, id`
	return r.query(ctx, query)
}

func (r *CategoryRepository) Get(ctx context.Context, id int) (types.Category, error) {
	const query = `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE id = $1`
	return r.get(ctx, query, id)
}

// GetForUpdate fetches the category and locks its row until the surrounding
// transaction ends. Inserting a note or task that references the row blocks
// on the lock.
func (r *CategoryRepository) GetForUpdate(ctx context.Context, id int) (types.Category, error) {
	const query = `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE id = $1
		FOR UPDATE`
	return r.get(ctx, query, id)
}

func (r *CategoryRepository) Create(ctx context.Context, category types.Category) (types.Category, error) {
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now

	const query = `
		INSERT INTO categories (title, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		category.Title,
		category.Slug,
		category.CreatedAt,
		category.UpdatedAt,
	).Scan(&category.ID); err != nil {
		return types.Category{}, mapError(err)
	}
	return category, nil
}

func (r *CategoryRepository) Update(ctx context.Context, category types.Category) (types.Category, error) {
	category.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE categories
		SET title = $1,
			slug = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(
		ctx,
		query,
		category.Title,
		category.Slug,
		category.UpdatedAt,
		category.ID,
	)
	if err != nil {
		return types.Category{}, mapError(err)
	}
	if err := expectAffected(result); err != nil {
		return types.Category{}, err
	}
	return category, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM categories WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(result)
}

func (r *CategoryRepository) get(ctx context.Context, query string, id int) (types.Category, error) {
	var category types.Category
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.Title,
		&category.Slug,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, ErrNotFound
		}
		return types.Category{}, err
	}
	return category, nil
}

func (r *CategoryRepository) query(ctx context.Context, query string, args ...any) ([]types.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]types.Category, 0)
	for rows.Next() {
		var category types.Category
		if err := rows.Scan(
			&category.ID,
			&category.Title,
			&category.Slug,
			&category.CreatedAt,
			&category.UpdatedAt,
		); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func expectAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
