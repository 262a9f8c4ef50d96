package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/notekeeper/apiserver/types"
)

// Publisher delivers change events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event types.Event) error
}

type discard struct{}

func (discard) Publish(context.Context, types.Event) error { return nil }

func orDiscard(p Publisher) Publisher {
	if p == nil {
		return discard{}
	}
	return p
}

// notify publishes after a change has been committed. Delivery failures are
// logged and never undo the change.
func notify(ctx context.Context, p Publisher, event types.Event) {
	event.OccurredAt = time.Now().UTC()
	if err := p.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish change event failed",
			"kind", event.Kind,
			"subject_id", event.SubjectID,
			"error", err,
		)
	}
}
