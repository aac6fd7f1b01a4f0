package realtime

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/audit-workflow/internal/core/events"
)

// Subscriber is the subscribe side of the event bus.
type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

// Bridge forwards workflow events from the bus onto the relay.
type Bridge struct {
	relay  Relay
	logger *slog.Logger
}

func NewBridge(relay Relay, logger *slog.Logger) *Bridge {
	return &Bridge{relay: relay, logger: logger}
}

func (b *Bridge) Register(bus Subscriber) {
	for _, eventType := range events.WorkflowEventTypes {
		bus.Subscribe(eventType, b.Forward)
	}
}

func (b *Bridge) Forward(ctx context.Context, e events.Event) error {
	env, ok := EnvelopeFrom(e)
	if !ok {
		return nil
	}
	if err := b.relay.Publish(ctx, env); err != nil {
		b.logger.Error("failed to relay event", "event_type", env.Type, "event_id", env.ID, "error", err)
		return err
	}
	return nil
}
