package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Event types carried on the bus.
const (
	EventPayment         = "payment"
	EventSubAgentSpawned = "subagent_spawned"
	EventUpgrade         = "upgrade"
	EventSignals         = "signals"
	EventOpportunities   = "opportunities"
	EventExecution       = "execution"
	EventCycle           = "cycle"
)

// Event is the JSON envelope published on every bus channel.
type Event struct {
	Type      string    `json:"type"`
	AgentID   string    `json:"agent_id"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *Agent) publish(ctx context.Context, channel, typ string, data any) {
	if a.bus == nil {
		return
	}
	payload, err := json.Marshal(Event{
		Type:      typ,
		AgentID:   a.cfg.ID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "marshal event failed",
			slog.String("type", typ),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := a.bus.Publish(ctx, channel, payload); err != nil {
		a.logger.WarnContext(ctx, "publish event failed",
			slog.String("channel", channel),
			slog.String("type", typ),
			slog.String("error", err.Error()),
		)
	}
}
