package hub

import (
	"net/http"
	"sync"

	log "swipeserver/cloudlog"
	"swipeserver/match"

	"github.com/gorilla/websocket"
)

// Connector facilitates connecting users to the hub of their conversation.
type Connector struct {
	mu   sync.Mutex
	hubs map[string]*Hub

	svc    conversations
	prefix string

	upgrader websocket.Upgrader
}

// NewConnector returns a Connector. prefix must be the conversation id prefix
// the rest of the server uses; checkOrigin may be nil to allow any origin.
func NewConnector(svc conversations, prefix string, checkOrigin func(r *http.Request) bool) *Connector {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Connector{
		hubs:   map[string]*Hub{},
		svc:    svc,
		prefix: prefix,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// ServeWs checks that userID may talk to targetID, upgrades the request and
// joins the connection to the conversation's hub. An error is only returned
// before the upgrade, while a normal HTTP response can still be written.
func (hc *Connector) ServeWs(userID, targetID string, w http.ResponseWriter, r *http.Request) error {
	if err := hc.svc.Authorize(r.Context(), userID, targetID); err != nil {
		return err
	}
	conn, err := hc.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		log.Printf("websocket upgrade for %s failed: %v", userID, err)
		return nil
	}

	client := newClient(userID, conn)
	for {
		client.hub = hc.hubFor(userID, targetID)
		if client.hub.join(client) {
			break
		}
	}
	client.start()
	return nil
}

// hubFor returns the running hub of the conversation, starting one if needed.
func (hc *Connector) hubFor(userID, targetID string) *Hub {
	id := match.ConversationID(userID, targetID, hc.prefix)
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if h, ok := hc.hubs[id]; ok && !h.stopped() {
		return h
	}
	h := newHub(id, userID, targetID, hc.svc, hc.remove)
	hc.hubs[id] = h
	go h.Run()
	return h
}

func (hc *Connector) remove(h *Hub) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if hc.hubs[h.id] == h {
		delete(hc.hubs, h.id)
	}
}

// Open is the number of conversations currently streamed.
func (hc *Connector) Open() int {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return len(hc.hubs)
}

func (h *Hub) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
