package realtime

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/net/websocket"

	"plansly/backend/internal/domain"
)

// PlanGateway is the slice of the plan service the hub needs: room
// access control and message appending.
type PlanGateway interface {
	IsMember(ctx context.Context, planID, userID primitive.ObjectID) (bool, error)
	SendMessage(ctx context.Context, planID, userID primitive.ObjectID, text string) (*domain.Message, error)
}

// Event is the wire frame exchanged with clients.
type Event struct {
	Event   string      `json:"event"`
	PlanID  string      `json:"plan_id,omitempty"`
	Message string      `json:"message,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// client is one websocket connection with its resolved identity.
type client struct {
	conn   *websocket.Conn
	userID primitive.ObjectID

	mu sync.Mutex // serializes writes to conn
}

func (c *client) send(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = websocket.JSON.Send(c.conn, ev)
}

// Hub keeps per-plan rooms of live connections and broadcasts named
// events into them. Delivery is best-effort: a failed write drops
// silently and the connection's read loop cleans up.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}

	logger zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*client]struct{}),
		logger: logger,
	}
}

// Broadcast sends the event to every connection in the plan's room.
// Implements the plan service's Broadcaster.
func (h *Hub) Broadcast(planID string, event string, payload interface{}) {
	h.mu.RLock()
	room := make([]*client, 0, len(h.rooms[planID]))
	for c := range h.rooms[planID] {
		room = append(room, c)
	}
	h.mu.RUnlock()

	ev := Event{Event: event, PlanID: planID, Payload: payload}
	for _, c := range room {
		c.send(ev)
	}
}

func (h *Hub) join(planID string, c *client) {
	h.mu.Lock()
	if h.rooms[planID] == nil {
		h.rooms[planID] = make(map[*client]struct{})
	}
	h.rooms[planID][c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) leave(planID string, c *client) {
	h.mu.Lock()
	if room, ok := h.rooms[planID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, planID)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) leaveAll(c *client) {
	h.mu.Lock()
	for planID, room := range h.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, planID)
		}
	}
	h.mu.Unlock()
}

// Handler returns the websocket endpoint. authenticate resolves the
// connecting user from the request; plans gates joins and appends
// messages.
func (h *Hub) Handler(authenticate func(r *http.Request) (primitive.ObjectID, error), plans PlanGateway) http.Handler {
	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		defer conn.Close()

		userID, err := authenticate(conn.Request())
		if err != nil {
			_ = websocket.JSON.Send(conn, Event{Event: "error", Error: "unauthorized"})
			return
		}

		c := &client{conn: conn, userID: userID}
		defer h.leaveAll(c)

		for {
			var in Event
			if err := websocket.JSON.Receive(conn, &in); err != nil {
				return
			}
			h.dispatch(conn.Request().Context(), c, in, plans)
		}
	})
	return wsHandler
}

func (h *Hub) dispatch(ctx context.Context, c *client, in Event, plans PlanGateway) {
	planID, err := primitive.ObjectIDFromHex(in.PlanID)
	if err != nil {
		c.send(Event{Event: "error", Error: "invalid plan id"})
		return
	}

	switch in.Event {
	case "join_plan":
		ok, err := plans.IsMember(ctx, planID, c.userID)
		if err != nil || !ok {
			c.send(Event{Event: "error", PlanID: in.PlanID, Error: "not a member of this plan"})
			return
		}
		h.join(in.PlanID, c)
		h.Broadcast(in.PlanID, "plan_joined", map[string]string{"user_id": c.userID.Hex()})

	case "leave_plan":
		h.leave(in.PlanID, c)
		h.Broadcast(in.PlanID, "plan_left", map[string]string{"user_id": c.userID.Hex()})

	case "send_message":
		// The plan service broadcasts new_message to the room itself.
		if _, err := plans.SendMessage(ctx, planID, c.userID, in.Message); err != nil {
			c.send(Event{Event: "error", PlanID: in.PlanID, Error: err.Error()})
		}

	default:
		c.send(Event{Event: "error", Error: "unknown event"})
	}
}
