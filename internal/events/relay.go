package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/intellitrader/portal/internal/observability/logger"
	"github.com/redis/go-redis/v9"
)

// DefaultRelayChannel is the Redis channel shared by all instances.
const DefaultRelayChannel = "portal:events"

const relayPublishTimeout = 2 * time.Second

// envelope is the wire format on the relay channel.
type envelope struct {
	Origin  string          `json:"origin"`
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// RedisRelay extends a local bus across instances. Publish delivers locally
// and forwards to Redis; Run republishes events from other instances on the
// local bus. Events carry the publishing instance id, so an instance never
// receives its own events twice.
type RedisRelay struct {
	local   *Bus
	client  redis.UniversalClient
	channel string
	origin  string
	log     *slog.Logger
}

// NewRedisRelay creates a relay for local over client.
func NewRedisRelay(local *Bus, client redis.UniversalClient, channel string) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{
		local:   local,
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		log:     slog.Default().With(logger.Component("events.relay")),
	}
}

// Publish delivers to local subscribers and forwards to other instances.
// Forwarding failures are logged; local delivery is never affected.
func (r *RedisRelay) Publish(kind Kind, payload Payload) {
	r.local.Publish(kind, payload)

	raw, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("failed to encode event for relay", slog.String("event_kind", string(kind)), logger.Error(err))
		return
	}
	msg, err := json.Marshal(envelope{Origin: r.origin, Kind: kind, Payload: raw})
	if err != nil {
		r.log.Error("failed to encode relay envelope", logger.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, msg).Err(); err != nil {
		r.log.Warn("failed to forward event", slog.String("event_kind", string(kind)), logger.Error(err))
	}
}

// Run consumes the relay channel until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.log.Info("event relay subscribed", slog.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(raw string) {
	kind, payload, ok := r.decode(raw)
	if !ok {
		return
	}
	r.local.Publish(kind, payload)
}

// decode parses a relay message, dropping this instance's own events.
func (r *RedisRelay) decode(raw string) (Kind, Payload, bool) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		r.log.Warn("dropping malformed relay message", logger.Error(err))
		return "", nil, false
	}
	if env.Origin == r.origin {
		return "", nil, false
	}
	payload, err := DecodePayload(env.Kind, env.Payload)
	if err != nil {
		r.log.Warn("dropping relay message", logger.Error(err))
		return "", nil, false
	}
	return env.Kind, payload, true
}
