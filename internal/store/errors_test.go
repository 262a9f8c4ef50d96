package store

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	unique := &pq.Error{Code: "23505", Constraint: "categories_slug_key"}
	assert.ErrorIs(t, mapError(unique), ErrConflict)

	foreign := &pq.Error{Code: "23503", Constraint: "notes_category_id_fkey"}
	assert.ErrorIs(t, mapError(foreign), ErrReferenced)

	other := &pq.Error{Code: "42P01"}
	assert.Same(t, other, mapError(other))

	plain := errors.New("boom")
	assert.Same(t, plain, mapError(plain))
}
