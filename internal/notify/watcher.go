package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// Watcher bridges the signal bus to the operator notifier: it subscribes to
// every ledger event channel and forwards the ones the notifier's filter
// allows. Delivery failures are logged and skipped; the event feed itself is
// unaffected.
type Watcher struct {
	bus      domain.SignalBus
	notifier *Notifier
	logger   *slog.Logger
}

// NewWatcher creates a Watcher on the given bus and notifier.
func NewWatcher(bus domain.SignalBus, notifier *Notifier, logger *slog.Logger) *Watcher {
	return &Watcher{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "notify_watcher")),
	}
}

// Run consumes events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	ch, err := w.bus.Subscribe(ctx, "events:*")
	if err != nil {
		return fmt.Errorf("notify: subscribe events: %w", err)
	}

	w.logger.InfoContext(ctx, "event watcher started")
	for payload := range ch {
		var ev domain.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			w.logger.WarnContext(ctx, "malformed event payload",
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := w.notifier.Notify(ctx, ev.Type, eventTitle(ev.Type), eventBody(ev)); err != nil {
			w.logger.WarnContext(ctx, "notification failed",
				slog.String("event", ev.Type),
				slog.String("error", err.Error()),
			)
		}
	}
	return ctx.Err()
}

// eventTitle humanizes an event type, e.g. "market_success" -> "Market Success".
func eventTitle(eventType string) string {
	words := strings.Split(eventType, "_")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

// eventBody renders the event data as compact JSON for the message body.
func eventBody(ev domain.Event) string {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return ""
	}
	return string(data)
}
