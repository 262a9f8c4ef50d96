package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a unique constraint.
var ErrConflict = errors.New("conflict")

// ErrReferenced is returned when a write would break a foreign key, e.g.
// deleting a row that other rows still point at.
var ErrReferenced = errors.New("referenced by other records")

// mapError translates postgres constraint violations into store errors.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code.Name() {
	case "unique_violation":
		return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
	case "foreign_key_violation":
		return fmt.Errorf("%w: %s", ErrReferenced, pqErr.Constraint)
	default:
		return err
	}
}
