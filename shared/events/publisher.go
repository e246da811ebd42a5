package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventField is the stream entry field holding the JSON-encoded Event.
const EventField = "event"

// Publisher appends ledger change events to one Redis stream.
// Consumers read the stream with XREAD/XRANGE; entries older than the cap are trimmed.
type Publisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewPublisher writes to stream. A zero maxLen leaves the stream untrimmed.
func NewPublisher(client *redis.Client, stream string, maxLen int64) *Publisher {
	return &Publisher{client: client, stream: stream, maxLen: maxLen}
}

// Publish appends one entry and returns its stream id.
func (p *Publisher) Publish(ctx context.Context, eventType string, data any) (string, error) {
	payload, err := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return "", fmt.Errorf("encode %s event: %w", eventType, err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{EventField: payload},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("append %s to %s: %w", eventType, p.stream, err)
	}
	return id, nil
}
