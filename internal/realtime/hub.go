package realtime

import "sync"

// Hub tracks open reminder sessions per user so they can be closed on shutdown.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{
		users: make(map[string]map[*Session]struct{}),
	}
}

func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[s.UserID] == nil {
		h.users[s.UserID] = make(map[*Session]struct{})
	}
	h.users[s.UserID][s] = struct{}{}
}

func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	if conns, ok := h.users[s.UserID]; ok {
		delete(conns, s)
		if len(conns) == 0 {
			delete(h.users, s.UserID)
		}
	}
	h.mu.Unlock()
	_ = s.Close()
}

// Sessions reports how many tabs userID has open.
func (h *Hub) Sessions(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

func (h *Hub) CloseAll() {
	h.mu.RLock()
	var all []*Session
	for _, conns := range h.users {
		for s := range conns {
			all = append(all, s)
		}
	}
	h.mu.RUnlock()
	for _, s := range all {
		h.Unregister(s)
	}
}
