package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBridge republishes the events handed to its Publish onto a Redis
// Pub/Sub channel of the same topic name, and forwards remote publishes on
// subscribed channels back into the Bus. It is additive: a deployment with
// a single process never needs one, and the Bus works correctly without
// it (spec §4.7). Running it lets multiple itineraryd processes behind a
// load balancer share WebSocket fan-out for the same itinerary.
type RedisBridge struct {
	client *redis.Client
	bus    *Bus
	prefix string
}

// NewRedisBridge wires bus to a Redis instance reachable through client.
// prefix namespaces the Redis channels (e.g. "itineraryd:") so this bridge
// can share a Redis instance with unrelated pub/sub traffic.
func NewRedisBridge(client *redis.Client, bus *Bus, prefix string) *RedisBridge {
	return &RedisBridge{client: client, bus: bus, prefix: prefix}
}

// Publish republishes event on the Redis channel for topic. Call this from
// the same place the local Bus.Publish is called, or wrap Bus.Publish to do
// both; RedisBridge does not hook Bus.Publish itself so that single-process
// deployments pay zero Redis cost.
func (r *RedisBridge) Publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(Envelope{Topic: topic, Event: event})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.prefix+topic, payload).Err()
}

// Relay subscribes to the Redis channel for topic and republishes every
// message it receives onto the local Bus, so local WebSocket subscribers
// see events published by other processes. It runs until ctx is canceled.
func (r *RedisBridge) Relay(ctx context.Context, topic string) {
	sub := r.client.Subscribe(ctx, r.prefix+topic)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				slog.Warn("redis bridge: malformed envelope", "topic", topic, "error", err)
				continue
			}
			r.bus.Publish(env.Topic, env.Event)
		}
	}
}
