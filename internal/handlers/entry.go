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
	maxTitleLength   = 255
	maxContentLength = 65535
)

// binder decodes a submitted form onto entry. Field errors are returned
// separately from malformed-request errors.
type binder[T types.Entry] func(w http.ResponseWriter, r *http.Request, actor types.User, entry T) (T, fieldErrors, error)

// EntryHandler serves the routes notes and tasks share. Every action on a
// stored entry is allowed for its author only.
type EntryHandler[T types.Entry] struct {
	entries    *services.EntryService[T]
	categories *services.CategoryService
	flash      *Flasher
	indexPath  string
	bind       binder[T]
}

type (
	NoteHandler = EntryHandler[types.Note]
	TaskHandler = EntryHandler[types.Task]
)

func NewNoteHandler(notes *services.NoteService, categories *services.CategoryService, flash *Flasher) *NoteHandler {
	return &NoteHandler{
		entries:    notes,
		categories: categories,
		flash:      flash,
		indexPath:  "/note",
		bind:       bindNote,
	}
}

func NewTaskHandler(tasks *services.TaskService, categories *services.CategoryService, flash *Flasher) *TaskHandler {
	return &TaskHandler{
		entries:    tasks,
		categories: categories,
		flash:      flash,
		indexPath:  "/task",
		bind:       bindTask,
	}
}

// EntryRouter registers the index, show, create, edit and delete routes.
func EntryRouter[T types.Entry](r chi.Router, h *EntryHandler[T]) {
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

func (h *EntryHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.entries.ListPaginated(r.Context(), page, actorFromContext(r.Context()))
	if err != nil {
		serverError(w, r, "failed to list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[T]{Page: items, Flashes: h.flash.Pop(r.Context())})
}

func (h *EntryHandler[T]) Show(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.load(w, r, access.CanView[T])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *EntryHandler[T]) CreateForm(w http.ResponseWriter, r *http.Request) {
	var blank T
	h.writeForm(w, r, blank)
}

func (h *EntryHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	var blank T
	h.save(w, r, blank, msgCreated)
}

func (h *EntryHandler[T]) EditForm(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.load(w, r, access.CanEdit[T])
	if !ok {
		return
	}
	h.writeForm(w, r, entry)
}

func (h *EntryHandler[T]) Update(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.load(w, r, access.CanEdit[T])
	if !ok {
		return
	}
	h.save(w, r, entry, msgEdited)
}

func (h *EntryHandler[T]) DeleteForm(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.load(w, r, access.CanDelete[T])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ConfirmResponse{Confirm: http.MethodDelete, Resource: entry})
}

func (h *EntryHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.load(w, r, access.CanDelete[T])
	if !ok {
		return
	}
	if err := h.entries.Delete(r.Context(), entry); err != nil {
		serverError(w, r, "failed to delete entry", err)
		return
	}
	h.flash.Redirect(w, r, h.indexPath, FlashSuccess, msgDeleted)
}

// load fetches the entry named in the URL and checks allowed against the
// actor. A missing entry and a denied one are answered the same way: a
// warning and a redirect to the index.
func (h *EntryHandler[T]) load(w http.ResponseWriter, r *http.Request, allowed func(types.User, T) bool) (T, bool) {
	var zero T
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return zero, false
	}

	entry, found, err := h.entries.FindByID(r.Context(), id)
	if err != nil {
		serverError(w, r, "failed to fetch entry", err)
		return zero, false
	}
	if !found || !allowed(actorFromContext(r.Context()), entry) {
		h.flash.Redirect(w, r, h.indexPath, FlashWarning, msgAccessDenied)
		return zero, false
	}
	return entry, true
}

func (h *EntryHandler[T]) writeForm(w http.ResponseWriter, r *http.Request, entry T) {
	categories, err := h.categories.All(r.Context())
	if err != nil {
		serverError(w, r, "failed to list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, FormResponse{Form: entry, Categories: categories})
}

func (h *EntryHandler[T]) save(w http.ResponseWriter, r *http.Request, entry T, message string) {
	entry, fields, err := h.bind(w, r, actorFromContext(r.Context()), entry)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	if _, err := h.entries.Save(r.Context(), entry); err != nil {
		if errors.Is(err, services.ErrUnknownCategory) {
			writeValidation(w, fieldErrors{"category_id": "does not exist"})
			return
		}
		serverError(w, r, "failed to save entry", err)
		return
	}
	h.flash.Redirect(w, r, h.indexPath, FlashSuccess, message)
}

type NoteRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID int    `json:"category_id"`
}

type TaskRequest struct {
	Title      string `json:"title"`
	CategoryID int    `json:"category_id"`
}

// bindNote applies the submitted fields. A new note belongs to the actor;
// an existing note keeps its author.
func bindNote(w http.ResponseWriter, r *http.Request, actor types.User, note types.Note) (types.Note, fieldErrors, error) {
	var req NoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return note, nil, err
	}

	req.Title = strings.TrimSpace(req.Title)
	fields := fieldErrors{}
	fields.requireText("title", req.Title, maxTitleLength)
	if len(req.Content) > maxContentLength {
		fields["content"] = "is too long"
	}
	fields.requireID("category_id", req.CategoryID)
	if len(fields) > 0 {
		return note, fields, nil
	}

	note.Title = req.Title
	note.Content = req.Content
	note.CategoryID = req.CategoryID
	if note.ID == 0 {
		note.AuthorID = actor.ID
	}
	return note, nil, nil
}

func bindTask(w http.ResponseWriter, r *http.Request, actor types.User, task types.Task) (types.Task, fieldErrors, error) {
	var req TaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return task, nil, err
	}

	req.Title = strings.TrimSpace(req.Title)
	fields := fieldErrors{}
	fields.requireText("title", req.Title, maxTitleLength)
	fields.requireID("category_id", req.CategoryID)
	if len(fields) > 0 {
		return task, fields, nil
	}

	task.Title = req.Title
	task.CategoryID = req.CategoryID
	if task.ID == 0 {
		task.AuthorID = actor.ID
	}
	return task, nil, nil
}
