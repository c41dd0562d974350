package ws

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"go-messenger/internal/event"
)

// MembershipChecker gates conversation subscriptions: a client may only
// listen to conversations it participates in.
type MembershipChecker interface {
	IsMember(ctx context.Context, conversationID, userID string) (bool, error)
}

type inbound struct {
	channel string
	payload []byte
}

type subscription struct {
	client         *Client
	conversationID string
	active         bool
}

// Hub tracks connected clients and routes bus events to the ones subscribed
// to the event's conversation. Presence events fan out to everyone.
type Hub struct {
	clients map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	deliver     chan inbound
	rdb         *redis.Client
	memberships MembershipChecker
}

func NewHub(rdb *redis.Client, memberships MembershipChecker) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		deliver:     make(chan inbound, 64),
		rdb:         rdb,
		memberships: memberships,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; !ok {
				continue
			}
			if sub.active {
				sub.client.conversations[sub.conversationID] = true
			} else {
				delete(sub.client.conversations, sub.conversationID)
			}

		case msg := <-h.deliver:
			for client := range h.clients {
				if msg.channel != event.PresenceChannel {
					convID := msg.channel[len(event.ConversationPrefix):]
					if !client.conversations[convID] {
						continue
					}
				}
				select {
				case client.send <- msg.payload:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// SubscribeToRedis pipes bus events from every server instance into this
// hub's delivery loop.
func (h *Hub) SubscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.PSubscribe(ctx, event.ConversationPrefix+"*", event.PresenceChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				log.Println("ws: redis subscription closed")
				return
			}
			h.deliver <- inbound{channel: msg.Channel, payload: []byte(msg.Payload)}
		}
	}
}
