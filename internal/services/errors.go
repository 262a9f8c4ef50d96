package services

import "errors"

var (
	// ErrCategoryInUse is returned when deleting a category that notes or
	// tasks still reference.
	ErrCategoryInUse = errors.New("category is in use")

	// ErrUnknownCategory is returned when an entry points at a missing category.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned when an email and password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
