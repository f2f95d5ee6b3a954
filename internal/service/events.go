// Package service orchestrates the settlement ledger: admin lifecycle,
// betting, claims and relay ingestion. Every operation runs as one atomic
// transaction; events are published only after the transaction commits.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// eventStream is the durable ordered feed indexers read.
const eventStream = "ledger:events"

// EventPublisher fans ledger events out to the signal bus: a durable stream
// append plus a pub/sub publish per event type. Publish failures are logged
// and swallowed — the ledger mutation has already committed and must not be
// rolled back because an indexer feed hiccuped.
type EventPublisher struct {
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewEventPublisher creates an EventPublisher on the given bus.
func NewEventPublisher(bus domain.SignalBus, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{
		bus:    bus,
		logger: logger.With(slog.String("component", "events")),
	}
}

// Emit publishes one typed event.
func (p *EventPublisher) Emit(ctx context.Context, eventType string, data any) {
	if p.bus == nil {
		return
	}
	payload, err := json.Marshal(domain.Event{
		Type: eventType,
		At:   time.Now().UTC(),
		Data: data,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal event failed",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := p.bus.StreamAppend(ctx, eventStream, payload); err != nil {
		p.logger.WarnContext(ctx, "event stream append failed",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
	if err := p.bus.Publish(ctx, "events:"+eventType, payload); err != nil {
		p.logger.WarnContext(ctx, "event publish failed",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
}
