package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"serwer-udostepnien/internal/share"
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Hub struct {
	clients    map[string]map[*Client]bool
	mu         sync.RWMutex
	Register   chan *Client
	Unregister chan *Client
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		log:        log.With().Str("component", "ws-hub").Logger(),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)
		case client := <-h.Unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.UserID]; !ok {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true
	h.log.Debug().Str("user", client.UserID).Msg("client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if userClients, ok := h.clients[client.UserID]; ok {
		if _, ok := userClients[client]; ok {
			delete(userClients, client)
			close(client.send)
			if len(userClients) == 0 {
				delete(h.clients, client.UserID)
			}
			h.log.Debug().Str("user", client.UserID).Msg("client unregistered")
		}
	}
}

func (h *Hub) PublishEvent(userID string, eventData []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if userClients, ok := h.clients[userID]; ok {
		for client := range userClients {
			select {
			case client.send <- eventData:
			default:
				h.log.Warn().Str("user", userID).Msg("client send buffer is full, dropping message")
			}
		}
	}
}

// ShareEventListener bridges completed share events to the connected
// clients of everyone involved in the share.
func (h *Hub) ShareEventListener() share.ListenFunc {
	return func(ctx context.Context, ev share.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			h.log.Warn().Err(err).Str("event", string(ev.Kind)).Msg("cannot marshal share event")
			return
		}

		seen := map[string]bool{}
		for _, uid := range []string{ev.Share.ShareOwner, ev.Share.SharedBy, ev.Share.SharedWith} {
			if uid == "" || seen[uid] {
				continue
			}
			seen[uid] = true
			h.PublishEvent(uid, data)
		}
	}
}
