package fakebackend

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// pushHub tracks websocket subscribers per user. Writes to a connection are
// serialised by mu.
type pushHub struct {
	mu    sync.Mutex
	conns map[int64]map[*websocket.Conn]struct{}
}

func newPushHub() *pushHub {
	return &pushHub{conns: make(map[int64]map[*websocket.Conn]struct{})}
}

func (h *pushHub) add(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
}

func (h *pushHub) remove(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[userID], conn)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

func (h *pushHub) count(userID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[userID])
}

func (h *pushHub) send(userID int64, event any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns[userID] {
		if err := conn.WriteJSON(event); err != nil {
			log.Debug().Err(err).Int64("user_id", userID).Msg("fakebackend: push failed")
		}
	}
}

func (h *pushHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.conns {
		for conn := range conns {
			_ = conn.Close()
		}
	}
	h.conns = make(map[int64]map[*websocket.Conn]struct{})
}

func (b *Backend) subscribe(w http.ResponseWriter, r *http.Request) {
	acc := r.Context().Value(contextKeyAccount).(*Account)
	if r.URL.Query().Get("userId") != formatID(acc.User.ID) {
		writeEnvelope(w, http.StatusForbidden, CodeForbidden, "Cannot subscribe to another user's notices", nil)
		return
	}
	b.mu.Lock()
	b.calls[r.Method+" /ws/notices"]++
	b.mu.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	userID := acc.User.ID
	b.push.add(userID, conn)
	defer func() {
		b.push.remove(userID, conn)
		_ = conn.Close()
	}()

	// Clients never send; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
