// Package events defines the progress notifications published after writes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/digital-blueprint/apiserver/internal/mq"
	"github.com/digital-blueprint/apiserver/types"
)

// Event types, also sent as the "type" message attribute.
const (
	ProgressUpdated  = "progress.updated"
	SectionCompleted = "section.completed"
)

// Event describes a progress write.
type Event struct {
	Type             string    `json:"type"`
	ProgressID       string    `json:"progressId"`
	UserID           string    `json:"userId"`
	SectionID        string    `json:"sectionId"`
	CompletedPrompts int       `json:"completedPrompts"`
	TotalPrompts     int       `json:"totalPrompts"`
	IsCompleted      bool      `json:"isCompleted"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// FromProgress builds an event of the given type for p.
func FromProgress(eventType string, p types.Progress) Event {
	return Event{
		Type:             eventType,
		ProgressID:       p.ID,
		UserID:           p.UserID,
		SectionID:        p.SectionID,
		CompletedPrompts: p.CompletedPrompts,
		TotalPrompts:     p.TotalPrompts,
		IsCompleted:      p.IsCompleted,
		OccurredAt:       p.LastUpdated,
	}
}

// Publisher sends events on one broker channel.
type Publisher struct {
	queue   *mq.MQ
	channel string
}

func NewPublisher(queue *mq.MQ, channel string) *Publisher {
	return &Publisher{queue: queue, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	attrs := map[string]string{
		"type":      event.Type,
		"userId":    event.UserID,
		"sectionId": event.SectionID,
	}
	if _, err := p.queue.Publish(ctx, p.channel, data, attrs); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

// Subscribe calls handle for every event of the given type. Other event types
// are acknowledged and skipped.
func Subscribe(ctx context.Context, queue *mq.MQ, channel, eventType string, handle func(context.Context, Event) error) error {
	return queue.Subscribe(ctx, channel, func(ctx context.Context, msg mq.Message) error {
		if t := msg.Attributes["type"]; t != "" && t != eventType {
			return nil
		}
		event, err := Decode(msg)
		if err != nil {
			return err
		}
		if event.Type != eventType {
			return nil
		}
		return handle(ctx, event)
	})
}

// Decode parses an event from a broker message.
func Decode(msg mq.Message) (Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return Event{}, fmt.Errorf("decode event %s: %w", msg.ID, err)
	}
	return event, nil
}
