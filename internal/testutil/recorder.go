package testutil

import (
	"context"
	"sync"

	"github.com/notekeeper/apiserver/types"
)

// Recorder is a services.Publisher that keeps every published event.
type Recorder struct {
	mu     sync.Mutex
	events []types.Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, event types.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

// Kinds returns the kinds of the recorded events in publish order.
func (r *Recorder) Kinds() []types.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]types.EventKind, 0, len(r.events))
	for _, event := range r.events {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

// Last returns the most recent event.
func (r *Recorder) Last() (types.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return types.Event{}, false
	}
	return r.events[len(r.events)-1], true
}
