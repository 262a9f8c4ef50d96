package handlers

import (
	"context"
	"encoding/gob"
	"net/http"

	"github.com/alexedwards/scs/v2"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashWarning = "warning"
)

// Flash messages shown on the next listing.
const (
	msgCreated       = "Created successfully."
	msgEdited        = "Edited successfully."
	msgDeleted       = "Deleted successfully."
	msgNotFound      = "Record not found."
	msgAccessDenied  = "Record not found or access denied."
	msgCategoryInUse = "Category contains notes or tasks and cannot be deleted."
	msgSelfDelete    = "You cannot delete your own account."
)

const flashSessionKey = "flashes"

// Flash is a one-time message stored in the session until it is read.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func init() {
	gob.Register([]Flash{})
}

// Flasher queues flash messages in the session and issues redirects.
type Flasher struct {
	sessions *scs.SessionManager
}

func NewFlasher(sessions *scs.SessionManager) *Flasher {
	return &Flasher{sessions: sessions}
}

// Add queues a message for the next Pop.
func (f *Flasher) Add(ctx context.Context, kind, message string) {
	flashes, _ := f.sessions.Get(ctx, flashSessionKey).([]Flash)
	f.sessions.Put(ctx, flashSessionKey, append(flashes, Flash{Kind: kind, Message: message}))
}

// Pop returns and clears the queued messages.
func (f *Flasher) Pop(ctx context.Context) []Flash {
	flashes, _ := f.sessions.Pop(ctx, flashSessionKey).([]Flash)
	if flashes == nil {
		return []Flash{}
	}
	return flashes
}

// Redirect queues message, when given, and answers 302 to path.
func (f *Flasher) Redirect(w http.ResponseWriter, r *http.Request, path, kind, message string) {
	if message != "" {
		f.Add(r.Context(), kind, message)
	}
	http.Redirect(w, r, path, http.StatusFound)
}
