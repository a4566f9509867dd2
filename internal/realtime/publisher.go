package realtime

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ChangeOp string

const (
	OpInsert ChangeOp = "INSERT"
	OpUpdate ChangeOp = "UPDATE"
)

// ChangeEvent tells subscribers a row changed. Clients re-fetch the row.
type ChangeEvent struct {
	Table string     `json:"table"`
	Op    ChangeOp   `json:"op"`
	ID    uuid.UUID  `json:"id"`
	JobID *uuid.UUID `json:"job_id,omitempty"`
}

// Publisher delivers messages through the bus when one is configured so every
// instance sees them, and straight into the local hub otherwise.
type Publisher struct {
	hub *Hub
	bus Bus
	log zerolog.Logger
}

func NewPublisher(hub *Hub, bus Bus, log zerolog.Logger) *Publisher {
	return &Publisher{hub: hub, bus: bus, log: log}
}

// Start wires the bus forwarder into the local hub.
func (p *Publisher) Start(ctx context.Context) error {
	if p.bus == nil {
		return nil
	}
	return p.bus.StartForwarder(ctx, p.hub.Broadcast)
}

func (p *Publisher) Publish(ctx context.Context, msg Message) {
	if p == nil {
		return
	}
	if p.bus != nil {
		err := p.bus.Publish(ctx, msg)
		if err == nil {
			return
		}
		p.log.Warn().Err(err).Str("channel", msg.Channel).Msg("bus publish failed; delivering locally")
	}
	p.hub.Broadcast(msg)
}

// PublishChange announces a row change on the jobs channel and on each listed
// user's channel.
func (p *Publisher) PublishChange(ctx context.Context, change ChangeEvent, users ...uuid.UUID) {
	p.Publish(ctx, Message{Channel: ChannelJobs, Event: EventChange, Data: change})
	seen := make(map[uuid.UUID]bool, len(users))
	for _, u := range users {
		if u == uuid.Nil || seen[u] {
			continue
		}
		seen[u] = true
		p.Publish(ctx, Message{Channel: UserChannel(u), Event: EventChange, Data: change})
	}
}

func (p *Publisher) PublishToUser(ctx context.Context, userID uuid.UUID, event string, data any) {
	p.Publish(ctx, Message{Channel: UserChannel(userID), Event: event, Data: data})
}
