package server

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// hub fans broadcast frames out to websocket subscribers, grouped by room
// and logical channel. Delivery is best effort: a write error drops the
// connection and the client is expected to reconnect and re-read durable
// state.
type hub struct {
	mu     sync.Mutex
	groups map[string]map[*websocket.Conn]struct{}
}

func newHub() *hub {
	return &hub{groups: make(map[string]map[*websocket.Conn]struct{})}
}

func groupKey(roomID uint, channel string) string {
	return fmt.Sprintf("%d/%s", roomID, channel)
}

func (h *hub) Add(roomID uint, channel string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := groupKey(roomID, channel)
	group := h.groups[key]
	if group == nil {
		group = make(map[*websocket.Conn]struct{})
		h.groups[key] = group
	}
	group[conn] = struct{}{}
}

func (h *hub) Remove(roomID uint, channel string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := groupKey(roomID, channel)
	group := h.groups[key]
	if group == nil {
		return
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.groups, key)
	}
}

func (h *hub) Send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (h *hub) Broadcast(roomID uint, channel string, payload any) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0)
	for conn := range h.groups[groupKey(roomID, channel)] {
		conns = append(conns, conn)
	}
	h.mu.Unlock()
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(roomID, channel, conn)
		}
	}
}
