package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/accountadmin/apiserver/types"
)

// Publisher is the subset of the message queue used for notifications.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// EventPublisher sends account events to a message channel as JSON.
type EventPublisher struct {
	publisher Publisher
	channel   string
}

func NewEventPublisher(publisher Publisher, channel string) *EventPublisher {
	return &EventPublisher{publisher: publisher, channel: channel}
}

func (p *EventPublisher) Notify(ctx context.Context, event types.AccountEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := p.publisher.Publish(ctx, p.channel, data, map[string]string{
		"event_type": string(event.Type),
	}); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// DecodeEvent parses a payload produced by EventPublisher.
func DecodeEvent(data []byte) (types.AccountEvent, error) {
	var event types.AccountEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return types.AccountEvent{}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}
