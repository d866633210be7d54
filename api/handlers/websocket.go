package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/slotline/slotline-api/api"
	"github.com/slotline/slotline-api/config"
	"github.com/slotline/slotline-api/models"
	"github.com/slotline/slotline-api/realtime"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Adjust CORS as needed, e.g., check r.Header.Get("Origin")
	},
}

// wsTokenTTL bounds how long a minted websocket token is usable
const wsTokenTTL = 5 * time.Minute

// Socket owns the realtime channel: a short-lived JWT authenticates the
// upgrade (browsers cannot set Authorization headers on websocket dials), and
// the presence registry tracks the connection's room subscriptions.
type Socket struct {
	Registry *realtime.Registry
	Secret   string
}

// clientFrame is the client-to-server message shape on the realtime channel
type clientFrame struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

// CreateWSTokenHandler mints a short-lived token carrying the caller's actor,
// to be presented as the ?token= query parameter on the /ws upgrade
func (s Socket) CreateWSTokenHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("missing actor", http.StatusUnauthorized, w, models.ErrUnauthorized)
		return
	}

	claims := jwt.MapClaims{
		"sub":  actor.Ref,
		"role": string(actor.Role),
		"exp":  time.Now().Add(wsTokenTTL).Unix(),
		"jti":  uuid.New().String(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Secret))
	if err != nil {
		config.ErrorStatus("failed to sign token", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// ServeWS upgrades the connection and runs the join/leave session loop until
// the client disconnects
func (s Socket) ServeWS(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromToken(r.URL.Query().Get("token"))
	if err != nil {
		zap.S().Warnw("rejected websocket upgrade", "error", err)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "unauthorized"}`))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade error", "error", err)
		return
	}

	connID := uuid.New().String()
	s.Registry.Register(connID, actor, conn)
	zap.S().Infow("websocket connected", "connId", connID, "ref", actor.Ref, "role", actor.Role)

	defer func() {
		s.Registry.Unregister(connID)
		conn.Close()
		zap.S().Infow("websocket disconnected", "connId", connID, "ref", actor.Ref)
	}()

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		switch frame.Action {
		case "join":
			if s.allowed(actor, frame.Room) {
				s.Registry.Join(connID, frame.Room)
			} else {
				zap.S().Warnw("refused room join", "connId", connID, "ref", actor.Ref, "room", frame.Room)
			}
		case "leave":
			s.Registry.Leave(connID, frame.Room)
		case "reset":
			// Role-context change: drop everything before the client re-joins
			s.Registry.Reset(connID)
		default:
			zap.S().Debugw("ignoring unknown frame", "connId", connID, "action", frame.Action)
		}
	}
}

// allowed restricts joins to the caller's own identity room, their role's
// broadcast room, and chat rooms they participate in
func (s Socket) allowed(actor models.Actor, roomID string) bool {
	if roomID == realtime.RoomFor(actor.Role, actor.Ref) {
		return true
	}
	if roomID == realtime.BroadcastRoom(actor.Role) {
		return true
	}
	if pair, found := strings.CutPrefix(roomID, "chat-"); found {
		// pair rooms are chat-<min>-<max>; refs never contain dashes
		return strings.HasPrefix(pair, actor.Ref+"-") || strings.HasSuffix(pair, "-"+actor.Ref)
	}
	return false
}

func (s Socket) actorFromToken(tokenString string) (models.Actor, error) {
	if tokenString == "" {
		return models.Actor{}, fmt.Errorf("missing token")
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.Secret), nil
	})
	if err != nil || !token.Valid {
		return models.Actor{}, fmt.Errorf("invalid token: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Actor{}, fmt.Errorf("unexpected claims type")
	}
	ref, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	actor := models.Actor{Ref: ref, Role: models.Role(role)}
	if actor.Ref == "" || !actor.Role.Valid() {
		return models.Actor{}, fmt.Errorf("token missing identity")
	}
	return actor, nil
}
