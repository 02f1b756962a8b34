package feed

import (
	"context"
	"log/slog"

	"feedengine/internal/storage"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event is published after every successful mutation. Consumers (a socket
// fan-out, a cache invalidator) subscribe from the outside; the lifecycle
// itself never waits on them.
type Event struct {
	Action Action
	Post   *storage.Post
}

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// LogPublisher is the default consumer: it just records mutations.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) Publish(_ context.Context, event Event) {
	p.Logger.Info("feed event", "action", event.Action, "post_id", event.Post.ID, "creator_id", event.Post.CreatorID)
}
