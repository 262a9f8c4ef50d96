package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/notekeeper/apiserver/internal/access"
	"github.com/notekeeper/apiserver/internal/services"
	"github.com/notekeeper/apiserver/internal/store"
	"github.com/notekeeper/apiserver/types"
)

const (
	categoryIndexPath      = "/category"
	maxCategoryTitleLength = 64
)

// CategoryHandler provides HTTP handlers for the shared categories.
type CategoryHandler struct {
	categories *services.CategoryService
	flash      *Flasher
}

func NewCategoryHandler(categories *services.CategoryService, flash *Flasher) *CategoryHandler {
	return &CategoryHandler{categories: categories, flash: flash}
}

// CategoryRouter registers category routes on the given router.
func CategoryRouter(r chi.Router, h *CategoryHandler) {
	r.Get("/", h.List)
	r.Group(func(r chi.Router) {
		r.Use(h.requireManager)
		r.Get("/create", h.CreateForm)
		r.Post("/create", h.Create)
	})
	r.Route("/{id:[1-9][0-9]*}", func(r chi.Router) {
		r.Get("/", h.Show)
		r.Group(func(r chi.Router) {
			r.Use(h.requireManager)
			r.Get("/edit", h.EditForm)
			r.Put("/edit", h.Update)
			r.Get("/delete", h.DeleteForm)
			r.Delete("/delete", h.Delete)
		})
	})
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	categories, err := h.categories.ListPaginated(r.Context(), page)
	if err != nil {
		serverError(w, r, "failed to list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[types.Category]{Page: categories, Flashes: h.flash.Pop(r.Context())})
}

// Show answers 404 for a missing category, unlike the other category
// routes which redirect to the index.
func (h *CategoryHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	category, found, err := h.categories.FindByID(r.Context(), id)
	if err != nil {
		serverError(w, r, "failed to fetch category", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FormResponse{Form: types.Category{}})
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, types.Category{}, msgCreated)
}

func (h *CategoryHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	category, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, FormResponse{Form: category})
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	category, ok := h.load(w, r)
	if !ok {
		return
	}
	h.save(w, r, category, msgEdited)
}

func (h *CategoryHandler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	category, ok := h.load(w, r)
	if !ok {
		return
	}
	deletable, err := h.categories.CanBeDeleted(r.Context(), category.ID)
	if err != nil {
		serverError(w, r, "failed to check category usage", err)
		return
	}
	writeJSON(w, http.StatusOK, ConfirmResponse{
		Confirm:      http.MethodDelete,
		Resource:     category,
		CanBeDeleted: &deletable,
	})
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	category, ok := h.load(w, r)
	if !ok {
		return
	}

	err := h.categories.DeleteIfUnused(r.Context(), category.ID)
	switch {
	case errors.Is(err, services.ErrCategoryInUse):
		h.flash.Redirect(w, r, categoryIndexPath, FlashWarning, msgCategoryInUse)
	case errors.Is(err, store.ErrNotFound):
		h.flash.Redirect(w, r, categoryIndexPath, FlashWarning, msgNotFound)
	case err != nil:
		serverError(w, r, "failed to delete category", err)
	default:
		h.flash.Redirect(w, r, categoryIndexPath, FlashSuccess, msgDeleted)
	}
}

func (h *CategoryHandler) load(w http.ResponseWriter, r *http.Request) (types.Category, bool) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return types.Category{}, false
	}

	category, found, err := h.categories.FindByID(r.Context(), id)
	if err != nil {
		serverError(w, r, "failed to fetch category", err)
		return types.Category{}, false
	}
	if !found {
		h.flash.Redirect(w, r, categoryIndexPath, FlashWarning, msgNotFound)
		return types.Category{}, false
	}
	return category, true
}

func (h *CategoryHandler) save(w http.ResponseWriter, r *http.Request, category types.Category, message string) {
	var req CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	fields := fieldErrors{}
	fields.requireText("title", req.Title, maxCategoryTitleLength)
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	category.Title = req.Title
	if _, err := h.categories.Save(r.Context(), category); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.flash.Redirect(w, r, categoryIndexPath, FlashWarning, msgNotFound)
			return
		}
		if errors.Is(err, store.ErrConflict) {
			writeValidation(w, fieldErrors{"title": "is already taken"})
			return
		}
		serverError(w, r, "failed to save category", err)
		return
	}
	h.flash.Redirect(w, r, categoryIndexPath, FlashSuccess, message)
}

func (h *CategoryHandler) requireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !access.CanManageCategories(actorFromContext(r.Context())) {
			h.flash.Redirect(w, r, categoryIndexPath, FlashWarning, msgAccessDenied)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type CategoryRequest struct {
	Title string `json:"title"`
}
