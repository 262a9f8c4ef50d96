package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/notekeeper/apiserver/internal/access"
	"github.com/notekeeper/apiserver/internal/services"
	"github.com/notekeeper/apiserver/types"
)

const (
	userIndexPath = "/user"
	// Users without access to user management land on their notes.
	deniedUserPath = "/note"
)

// UserHandler provides the administrator's user management.
type UserHandler struct {
	users *services.UserService
	flash *Flasher
}

func NewUserHandler(users *services.UserService, flash *Flasher) *UserHandler {
	return &UserHandler{users: users, flash: flash}
}

// UserRouter registers user management routes. Every route requires an
// administrator.
func UserRouter(r chi.Router, h *UserHandler) {
	r.Use(h.requireListAccess)
	r.Get("/", h.List)
	r.Get("/create", h.CreateForm)
	r.Post("/create", h.Create)
	r.Route("/{id:[1-9][0-9]*}", func(r chi.Router) {
		r.Get("/", h.Show)
		r.Get("/edit", h.EditForm)
		r.Put("/edit", h.Update)
		r.Get("/delete", h.DeleteForm)
		r.Delete("/delete", h.Delete)
	})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, err := h.users.ListPaginated(r.Context(), page)
	if err != nil {
		serverError(w, r, "failed to list users", err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[types.User]{Page: users, Flashes: h.flash.Pop(r.Context())})
}

func (h *UserHandler) Show(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r, access.CanViewUser)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FormResponse{Form: UserRequest{Roles: []types.Role{types.RoleUser}}})
}

// Create registers an account on behalf of the administrator. New accounts
// always start with ROLE_USER only.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	if _, err := h.users.Register(r.Context(), types.User{Email: req.Email}, req.Password); err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			writeValidation(w, fieldErrors{"email": "is already registered"})
			return
		}
		serverError(w, r, "failed to create user", err)
		return
	}
	h.flash.Redirect(w, r, userIndexPath, FlashSuccess, msgCreated)
}

func (h *UserHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r, access.CanEditUser)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, FormResponse{Form: UserRequest{Email: user.Email, Roles: user.Roles}})
}

// Update changes the email and roles and, when a password is given, the
// password. Administrators cannot revoke their own ROLE_ADMIN.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r, access.CanEditUser)
	if !ok {
		return
	}

	var req UserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	fields := fieldErrors{}
	validateEmail(fields, req.Email)
	for _, role := range req.Roles {
		if !role.Valid() {
			fields["roles"] = "contains an unknown role"
		}
	}
	if req.Password != "" {
		validatePassword(fields, req.Password)
	}
	roles := types.NormalizeRoles(req.Roles)
	actor := actorFromContext(r.Context())
	if user.ID == actor.ID && !(types.User{Roles: roles}).IsAdmin() {
		fields["roles"] = "cannot revoke your own administrator role"
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	user.Email = req.Email
	user.Roles = roles
	if _, err := h.users.Update(r.Context(), user, req.Password); err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			writeValidation(w, fieldErrors{"email": "is already registered"})
			return
		}
		serverError(w, r, "failed to save user", err)
		return
	}
	h.flash.Redirect(w, r, userIndexPath, FlashSuccess, msgEdited)
}

func (h *UserHandler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r, access.CanDeleteUser)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ConfirmResponse{Confirm: http.MethodDelete, Resource: user})
}

// Delete removes the user together with every note and task they own.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r, access.CanDeleteUser)
	if !ok {
		return
	}
	if user.ID == actorFromContext(r.Context()).ID {
		h.flash.Redirect(w, r, userIndexPath, FlashWarning, msgSelfDelete)
		return
	}

	if _, err := h.users.DeleteWithDependents(r.Context(), user); err != nil {
		serverError(w, r, "failed to delete user", err)
		return
	}
	h.flash.Redirect(w, r, userIndexPath, FlashSuccess, msgDeleted)
}

// load fetches the user named in the URL. A missing user redirects to the
// user index; a denied actor is sent to their notes.
func (h *UserHandler) load(w http.ResponseWriter, r *http.Request, allowed func(actor, subject types.User) bool) (types.User, bool) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return types.User{}, false
	}

	user, found, err := h.users.FindByID(r.Context(), id)
	if err != nil {
		serverError(w, r, "failed to fetch user", err)
		return types.User{}, false
	}
	if !found {
		h.flash.Redirect(w, r, userIndexPath, FlashWarning, msgNotFound)
		return types.User{}, false
	}
	if !allowed(actorFromContext(r.Context()), user) {
		h.flash.Redirect(w, r, deniedUserPath, "", "")
		return types.User{}, false
	}
	return user, true
}

func (h *UserHandler) requireListAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !access.CanListUsers(actorFromContext(r.Context())) {
			h.flash.Redirect(w, r, deniedUserPath, "", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type UserRequest struct {
	Email    string       `json:"email"`
	Roles    []types.Role `json:"roles"`
	Password string       `json:"password,omitempty"`
}
