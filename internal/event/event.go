package event

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

const (
	TypeMessageCreated  = "message.created"
	TypeMessageDeleted  = "message.deleted"
	TypeReactionUpdated = "reaction.updated"
	TypeTypingUpdated   = "typing.updated"
	TypePresenceUpdated = "presence.updated"
)

// Event is the envelope pushed to live clients. ConversationID is empty for
// presence events, which fan out globally.
type Event struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Data           interface{} `json:"data,omitempty"`
}

// Bus decouples the feature services from the fan-out transport.
type Bus interface {
	Publish(ctx context.Context, ev Event)
}

const (
	// PresenceChannel carries presence events for every user.
	PresenceChannel = "presence"
	// ConversationPrefix + conversation id is the channel for that conversation.
	ConversationPrefix = "conv:"
)

// RedisBus publishes events to Redis so every server instance's hub sees
// them, not just the one that handled the request.
type RedisBus struct {
	rdb *redis.Client
}

func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("event: marshal %s: %v", ev.Type, err)
		return
	}
	channel := PresenceChannel
	if ev.ConversationID != "" {
		channel = ConversationPrefix + ev.ConversationID
	}
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("event: publish %s: %v", ev.Type, err)
	}
}

// NopBus drops events. Used when no broker is configured.
type NopBus struct{}

func (NopBus) Publish(context.Context, Event) {}
