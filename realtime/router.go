package realtime

import (
	"go.uber.org/zap"
)

// Publisher pushes a payload to every session subscribed to a room. Implemented
// by Router; consumers depend on this so tests can substitute a recorder.
type Publisher interface {
	Publish(roomID string, event string, data interface{})
}

// Event is the server-to-client frame shape on the realtime channel
type Event struct {
	Event string      `json:"event"`
	Room  string      `json:"room"`
	Data  interface{} `json:"data"`
}

// Router delivers events to the current subscribers of a room. Publish is
// fire-and-forget: it never blocks on deliverability, never retries, and a
// room with zero subscribers is not an error. Offline sessions discover missed
// events from the notification store, which is authoritative.
type Router struct {
	registry *Registry
}

// NewRouter creates a router over the given presence registry
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Publish writes the event to every session in the room, in subscription-map
// order, under the registry lock so events published to the same room reach
// its subscribers in publish-call order. Connections that fail a write are
// dropped from the registry and closed.
func (r *Router) Publish(roomID string, event string, data interface{}) {
	frame := Event{Event: event, Room: roomID, Data: data}

	r.registry.mu.Lock()
	defer r.registry.mu.Unlock()

	connIDs := r.registry.rooms[roomID]
	if len(connIDs) == 0 {
		zap.S().Debugw("publish with no subscribers", "room", roomID, "event", event)
		return
	}

	var failed []string
	for connID := range connIDs {
		s, ok := r.registry.sessions[connID]
		if !ok {
			continue
		}
		if err := s.conn.WriteJSON(frame); err != nil {
			zap.S().Warnw("dropping connection after failed write",
				"connId", connID,
				"room", roomID,
				"error", err,
			)
			failed = append(failed, connID)
			s.conn.Close()
		}
	}
	for _, connID := range failed {
		r.registry.dropLocked(connID)
	}
}
