package realtime

import (
	"fmt"
	"sync"

	"github.com/slotline/slotline-api/models"
)

// Conn is the subset of a websocket connection the registry needs. Satisfied
// by *websocket.Conn.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// RoomFor builds the per-identity room id for a recipient
func RoomFor(role models.Role, ref string) string {
	return fmt.Sprintf("%s-%s", role, ref)
}

// BroadcastRoom builds the per-role broadcast room id
func BroadcastRoom(role models.Role) string {
	return fmt.Sprintf("%s-broadcast", role)
}

type session struct {
	conn  Conn
	actor models.Actor
	rooms map[string]struct{}
}

// Registry is the in-memory mapping of connected sessions to subscribed room
// identifiers. It is per-process and lost on restart; clients re-subscribe on
// reconnect. Mutated only by the owning connection plus the router's reads.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	rooms    map[string]map[string]struct{}
}

// NewRegistry creates an empty presence registry, one per process
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		rooms:    make(map[string]map[string]struct{}),
	}
}

// Register adds a connected session with no room subscriptions yet
func (r *Registry) Register(connID string, actor models.Actor, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[connID] = &session{
		conn:  conn,
		actor: actor,
		rooms: make(map[string]struct{}),
	}
}

// Unregister removes a session and all of its room subscriptions
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked(connID)
}

func (r *Registry) dropLocked(connID string) {
	s, ok := r.sessions[connID]
	if !ok {
		return
	}
	for roomID := range s.rooms {
		delete(r.rooms[roomID], connID)
		if len(r.rooms[roomID]) == 0 {
			delete(r.rooms, roomID)
		}
	}
	delete(r.sessions, connID)
}

// Join subscribes the session to a room
func (r *Registry) Join(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connID]
	if !ok {
		return
	}
	s.rooms[roomID] = struct{}{}
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]struct{})
	}
	r.rooms[roomID][connID] = struct{}{}
}

// Leave unsubscribes the session from a room
func (r *Registry) Leave(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connID]
	if !ok {
		return
	}
	delete(s.rooms, roomID)
	delete(r.rooms[roomID], connID)
	if len(r.rooms[roomID]) == 0 {
		delete(r.rooms, roomID)
	}
}

// Reset unsubscribes the session from every room it holds. Clients call this
// on a role-context change before joining the new role's rooms so no stale
// cross-role delivery can happen.
func (r *Registry) Reset(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connID]
	if !ok {
		return
	}
	for roomID := range s.rooms {
		delete(r.rooms[roomID], connID)
		if len(r.rooms[roomID]) == 0 {
			delete(r.rooms, roomID)
		}
	}
	s.rooms = make(map[string]struct{})
}

// Rooms returns the rooms the session is currently subscribed to
func (r *Registry) Rooms(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[connID]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(s.rooms))
	for roomID := range s.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// Subscribers returns the subscriber count of a room
func (r *Registry) Subscribers(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[roomID])
}
