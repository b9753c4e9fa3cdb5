package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"plansly/backend/internal/domain"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/net/websocket"
)

type fakeGateway struct {
	member bool
}

func (g *fakeGateway) IsMember(ctx context.Context, planID, userID primitive.ObjectID) (bool, error) {
	return g.member, nil
}

func (g *fakeGateway) SendMessage(ctx context.Context, planID, userID primitive.ObjectID, text string) (*domain.Message, error) {
	return &domain.Message{SenderID: userID, Text: text, Timestamp: time.Now().UTC()}, nil
}

func dialTestHub(t *testing.T, hub *Hub, userID primitive.ObjectID, gateway PlanGateway) *websocket.Conn {
	t.Helper()

	authenticate := func(r *http.Request) (primitive.ObjectID, error) {
		return userID, nil
	}
	srv := httptest.NewServer(hub.Handler(authenticate, gateway))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := websocket.Dial(url, "", srv.URL)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := websocket.JSON.Receive(conn, &ev); err != nil {
		t.Fatalf("receive: %v", err)
	}
	return ev
}

func TestJoinAndBroadcast(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	userID := primitive.NewObjectID()
	planID := primitive.NewObjectID()

	conn := dialTestHub(t, hub, userID, &fakeGateway{member: true})

	if err := websocket.JSON.Send(conn, Event{Event: "join_plan", PlanID: planID.Hex()}); err != nil {
		t.Fatalf("send: %v", err)
	}

	ev := receive(t, conn)
	if ev.Event != "plan_joined" || ev.PlanID != planID.Hex() {
		t.Fatalf("event = %+v, want plan_joined for the room", ev)
	}

	hub.Broadcast(planID.Hex(), "new_message", map[string]string{"text": "hi"})
	ev = receive(t, conn)
	if ev.Event != "new_message" {
		t.Fatalf("event = %+v, want new_message", ev)
	}

	// Events for other rooms do not leak in.
	hub.Broadcast(primitive.NewObjectID().Hex(), "new_message", nil)
	hub.Broadcast(planID.Hex(), "plan_left", nil)
	ev = receive(t, conn)
	if ev.Event != "plan_left" {
		t.Fatalf("event = %+v, want plan_left and nothing from other rooms", ev)
	}
}

func TestJoinDeniedForNonMember(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	conn := dialTestHub(t, hub, primitive.NewObjectID(), &fakeGateway{member: false})

	planID := primitive.NewObjectID()
	if err := websocket.JSON.Send(conn, Event{Event: "join_plan", PlanID: planID.Hex()}); err != nil {
		t.Fatalf("send: %v", err)
	}

	ev := receive(t, conn)
	if ev.Event != "error" || ev.Error == "" {
		t.Fatalf("event = %+v, want an error frame", ev)
	}

	// The denied client is not in the room.
	hub.Broadcast(planID.Hex(), "new_message", nil)
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var leak Event
	if err := websocket.JSON.Receive(conn, &leak); err == nil {
		t.Fatalf("received %+v, want no delivery to a denied client", leak)
	}
}

func TestLeavePlan(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	userID := primitive.NewObjectID()
	planID := primitive.NewObjectID()
	conn := dialTestHub(t, hub, userID, &fakeGateway{member: true})

	if err := websocket.JSON.Send(conn, Event{Event: "join_plan", PlanID: planID.Hex()}); err != nil {
		t.Fatalf("send: %v", err)
	}
	receive(t, conn) // plan_joined

	if err := websocket.JSON.Send(conn, Event{Event: "leave_plan", PlanID: planID.Hex()}); err != nil {
		t.Fatalf("send: %v", err)
	}

	// plan_left goes to the remaining room members, not the leaver.
	hub.Broadcast(planID.Hex(), "ignored", nil)
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var leak Event
	if err := websocket.JSON.Receive(conn, &leak); err == nil && leak.Event != "error" {
		t.Fatalf("received %+v after leaving, want nothing", leak)
	}
}
