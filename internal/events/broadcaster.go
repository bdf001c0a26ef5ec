package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mcoot/tourney/internal/model"
)

// Publisher receives domain events after a write has been committed
type Publisher interface {
	Publish(ctx context.Context, event model.Event)
}

// Broadcaster publishes events to the SSE hub of the event's tournament
type Broadcaster struct {
	hubManager *HubManager
	logger     *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "sse-broadcaster")),
	}
}

var _ Publisher = (*Broadcaster)(nil)

// Publish encodes the event as JSON and broadcasts it under its type.
// Tournaments without followers have no hub and the event is dropped.
func (b *Broadcaster) Publish(ctx context.Context, event model.Event) {
	hub := b.hubManager.GetHub(event.TournamentID)
	if hub == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("sse failed to encode event",
			slog.String("tournament_id", string(event.TournamentID)),
			slog.String("event", string(event.Type)),
			slog.Any("error", err))
		return
	}
	hub.BroadcastEvent(string(event.Type), string(data))

	if event.Type == model.EventTournamentDeleted {
		b.hubManager.RemoveHub(event.TournamentID)
	}
}

// NopPublisher discards every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.Event) {}
