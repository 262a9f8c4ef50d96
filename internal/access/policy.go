// Package access decides what an actor may do. Every handler asks these
// predicates before touching a record; a false result means the request is
// denied.
package access

import "github.com/notekeeper/apiserver/types"

// CanView reports whether actor may read entry. Only the author may.
func CanView[T types.Entry](actor types.User, entry T) bool {
	return isOwner(actor, entry)
}

// CanEdit reports whether actor may modify entry.
func CanEdit[T types.Entry](actor types.User, entry T) bool {
	return isOwner(actor, entry)
}

// CanDelete reports whether actor may delete entry.
func CanDelete[T types.Entry](actor types.User, entry T) bool {
	return isOwner(actor, entry)
}

func CanListUsers(actor types.User) bool {
	return isAdmin(actor)
}

func CanViewUser(actor types.User, _ types.User) bool {
	return isAdmin(actor)
}

func CanEditUser(actor types.User, _ types.User) bool {
	return isAdmin(actor)
}

func CanDeleteUser(actor types.User, _ types.User) bool {
	return isAdmin(actor)
}

// CanManageCategories reports whether actor may create, edit or delete
// categories. Categories are shared, so any signed-in user may.
func CanManageCategories(actor types.User) bool {
	return authenticated(actor)
}

func isOwner[T types.Entry](actor types.User, entry T) bool {
	return authenticated(actor) && actor.ID == entry.OwnerID()
}

func isAdmin(actor types.User) bool {
	return authenticated(actor) && actor.IsAdmin()
}

// The zero User is the anonymous actor.
func authenticated(actor types.User) bool {
	return actor.ID > 0
}
