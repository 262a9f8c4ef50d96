package store

import (
	"context"
	"time"

	"github.com/notekeeper/apiserver/types"
)

// TaskRepository handles persistence for tasks.
type TaskRepository struct {
	entryTable[types.Task]
}

func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{entryTable[types.Task]{
		db:      db,
		table:   "tasks",
		columns: "e.id, e.title, e.category_id, e.author_id, e.created_at, e.updated_at",
		scan:    scanTask,
	}}
}

func scanTask(row rowScanner) (types.Task, error) {
	var task types.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.CategoryID,
		&task.AuthorID,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.CategoryTitle,
	)
	return task, err
}

func (r *TaskRepository) Create(ctx context.Context, task types.Task) (types.Task, error) {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	const query = `
		INSERT INTO tasks (title, category_id, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		task.Title,
		task.CategoryID,
		task.AuthorID,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID); err != nil {
		return types.Task{}, mapError(err)
	}
	return task, nil
}

func (r *TaskRepository) Update(ctx context.Context, task types.Task) (types.Task, error) {
	task.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE tasks
		SET title = $1,
			category_id = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(
		ctx,
		query,
		task.Title,
		task.CategoryID,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return types.Task{}, mapError(err)
	}
	if err := expectAffected(result); err != nil {
		return types.Task{}, err
	}
	return task, nil
}
