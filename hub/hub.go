// Package hub streams a conversation to the websocket clients of its two
// participants. One hub exists per open conversation; it holds a single
// Firestore listener and fans new messages out to every connected device.
package hub

import (
	"context"
	"time"

	log "swipeserver/cloudlog"
	"swipeserver/collections"
)

// Time allowed to store a message sent over the websocket, notification included.
const sendTimeout = 15 * time.Second

// conversations is the part of *conversation.Service a hub uses; tests drop in a fake.
type conversations interface {
	Authorize(ctx context.Context, userID, targetID string) error
	Send(ctx context.Context, userID, targetID, text string) (string, error)
	Watch(ctx context.Context, userID, targetID string, fn func(collections.MessageEntry) error) error
}

// Hub maintains the set of active clients of one conversation and sends
// them new messages as they are stored.
type Hub struct {
	// The conversation id.
	id string

	// The participants; any client is one of them.
	userID, targetID string

	svc conversations

	// Registered clients.
	clients map[*Client]bool

	// Inbound messages from the clients.
	inbound chan *Message

	// Replies computed off the Run goroutine, delivered by it.
	replies chan *Message

	// Messages from the Firestore listener.
	updates chan collections.MessageEntry

	// The listener stopped for a reason other than the hub closing.
	watchErr chan error

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when the hub stops; every send to the hub selects on it.
	done chan struct{}

	// Called from Run once the hub has stopped.
	onClose func(*Hub)
}

func newHub(id, userID, targetID string, svc conversations, onClose func(*Hub)) *Hub {
	return &Hub{
		id:         id,
		userID:     userID,
		targetID:   targetID,
		svc:        svc,
		clients:    make(map[*Client]bool),
		inbound:    make(chan *Message),
		replies:    make(chan *Message),
		updates:    make(chan collections.MessageEntry),
		watchErr:   make(chan error, 1),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		onClose:    onClose,
	}
}

// Run starts the listener and serves the hub's channels until the last client
// leaves or the listener fails.
func (h *Hub) Run() {
	log.Printf("start hub: %s", h.id)
	ctx, stopWatch := context.WithCancel(context.Background())
	go h.watch(ctx)
	defer func() {
		stopWatch()
		h.close()
	}()

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.sendMessage(client, &Message{
				Endpoint:       endpointConnected,
				Route:          routeOrigin,
				Status:         statusSuccess,
				ConversationID: h.id,
			})
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.removeClient(client)
			}
			if len(h.clients) == 0 {
				return
			}
		case message := <-h.inbound:
			go h.process(message)
		case reply := <-h.replies:
			if _, ok := h.clients[reply.client]; ok {
				h.sendMessage(reply.client, reply)
			}
		case entry := <-h.updates:
			h.broadcast(&Message{
				Endpoint:       endpointNewMessage,
				Route:          routeBroadcast,
				ConversationID: h.id,
				Message:        &entry,
			})
		case err := <-h.watchErr:
			log.Printf("Listener of hub %s stopped: %v", h.id, err)
			return
		}
	}
}

// watch forwards new messages from Firestore until ctx is cancelled.
func (h *Hub) watch(ctx context.Context) {
	err := h.svc.Watch(ctx, h.userID, h.targetID, func(entry collections.MessageEntry) error {
		select {
		case h.updates <- entry:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if ctx.Err() != nil {
		return
	}
	h.watchErr <- err
}

// process runs a client request off the Run goroutine and hands the reply back.
func (h *Hub) process(message *Message) {
	reply := h.processMessage(message)
	select {
	case h.replies <- reply:
	case <-h.done:
	}
}

// peerOf gives the other participant of the conversation.
func (h *Hub) peerOf(userID string) string {
	if userID == h.userID {
		return h.targetID
	}
	return h.userID
}

func (h *Hub) broadcast(message *Message) {
	for client := range h.clients {
		h.sendMessage(client, message)
	}
}

// sendMessage drops clients that cannot keep up.
func (h *Hub) sendMessage(client *Client, message *Message) {
	select {
	case client.send <- message:
	default:
		log.Printf("Client %s of hub %s is not reading; disconnecting", client.userID, h.id)
		h.removeClient(client)
	}
}

func (h *Hub) removeClient(client *Client) {
	close(client.send)
	delete(h.clients, client)
}

func (h *Hub) close() {
	for client := range h.clients {
		h.removeClient(client)
	}
	close(h.done)
	if h.onClose != nil {
		h.onClose(h)
	}
	log.Printf("close hub: %s", h.id)
}

// join hands the client to the hub. It fails if the hub already stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave removes the client from the hub if it is still running.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// receive passes a client request to the hub. It is false once the hub has stopped.
func (h *Hub) receive(message *Message) bool {
	select {
	case h.inbound <- message:
		return true
	case <-h.done:
		return false
	}
}
