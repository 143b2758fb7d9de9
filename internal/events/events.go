// Package events publishes lifecycle transitions to a Redis channel so other
// processes (and the in-process room bridge) can observe them.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"interview/internal/models"
)

const Channel = "interview.events"

const (
	TypeCreated   = "interview.created"
	TypeAccepted  = "interview.accepted"
	TypeStarted   = "interview.started"
	TypeCompleted = "interview.completed"
	TypeCancelled = "interview.cancelled"
	TypeDeleted   = "interview.deleted"
)

type Event struct {
	Type        string        `json:"type"`
	InterviewID string        `json:"interviewId"`
	RoomID      string        `json:"roomId"`
	Status      models.Status `json:"status"`
	ActorID     string        `json:"actorId"`
	At          time.Time     `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops every event; used when no Redis is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Bus is the Redis-backed publisher/subscriber.
type Bus struct {
	rdb *redis.Client
}

func NewBus(redisAddr string) *Bus {
	return &Bus{rdb: redis.NewClient(&redis.Options{Addr: redisAddr})}
}

func (b *Bus) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, Channel, data).Err()
}

// Subscribe delivers events to fn until ctx is cancelled. Malformed payloads
// are logged and skipped.
func (b *Bus) Subscribe(ctx context.Context, fn func(Event)) {
	subscriber := b.rdb.Subscribe(ctx, Channel)
	defer subscriber.Close()
	ch := subscriber.Channel()

	log.Info().Str("channel", Channel).Msg("subscribed to lifecycle events")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn().Err(err).Msg("failed to parse lifecycle event")
				continue
			}
			fn(ev)
		}
	}
}

func (b *Bus) Close() error { return b.rdb.Close() }
