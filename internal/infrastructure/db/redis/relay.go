package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/2emr/sensor-backend/internal/core/domain"
	"github.com/2emr/sensor-backend/internal/core/ports"
)

// message is the pub/sub envelope; it mirrors the realtime frame.
type message struct {
	Event string         `json:"event"`
	Data  domain.Reading `json:"data"`
}

// Relay fans readings out across backend instances through a Redis channel.
// While Run holds a subscription, Publish sends to Redis and Run delivers
// what arrives on the channel to the local hub, so every instance (including
// the sender) broadcasts each reading exactly once. Without a subscription
// Publish delivers to the local hub only.
type Relay struct {
	client     *redis.Client
	channel    string
	local      ports.Publisher
	log        zerolog.Logger
	subscribed atomic.Bool
}

func NewRelay(client *redis.Client, channel string, local ports.Publisher, log zerolog.Logger) *Relay {
	return &Relay{client: client, channel: channel, local: local, log: log}
}

// Publish implements ports.Publisher. When the relay is not subscribed or
// Redis is unreachable the reading is delivered to the local hub directly, so
// live clients of this instance still receive it.
func (r *Relay) Publish(ctx context.Context, reading domain.Reading) {
	if !r.subscribed.Load() {
		r.local.Publish(ctx, reading)
		return
	}

	payload, err := encodeReading(reading)
	if err == nil {
		err = r.client.Publish(ctx, r.channel, payload).Err()
	}
	if err != nil {
		r.log.Warn().Err(err).Str("channel", r.channel).Int64("reading_id", reading.ID).Msg("redis publish failed, delivering locally")
		r.local.Publish(ctx, reading)
	}
}

// Run subscribes to the channel and forwards decoded readings until ctx is
// cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	r.subscribed.Store(true)
	defer r.subscribed.Store(false)
	r.log.Info().Str("channel", r.channel).Msg("redis relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				r.log.Warn().Str("channel", r.channel).Msg("redis relay channel closed, delivering locally")
				return nil
			}
			reading, err := decodeReading(msg.Payload)
			if err != nil {
				r.log.Warn().Err(err).Str("channel", msg.Channel).Msg("discarding malformed relay message")
				continue
			}
			r.local.Publish(ctx, reading)
		}
	}
}

func encodeReading(reading domain.Reading) ([]byte, error) {
	return json.Marshal(message{Event: domain.EventSensorDataUpdate, Data: reading})
}

func decodeReading(payload string) (domain.Reading, error) {
	var m message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return domain.Reading{}, fmt.Errorf("decode relay message: %w", err)
	}
	if m.Event != domain.EventSensorDataUpdate {
		return domain.Reading{}, fmt.Errorf("unexpected relay event %q", m.Event)
	}
	return m.Data, nil
}
