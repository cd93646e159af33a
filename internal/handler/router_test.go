package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coedit/internal/app/collab"
	"coedit/internal/configs"
)

const readTimeout = 3 * time.Second

func newTestServer(t *testing.T) (*collab.Hub, *httptest.Server) {
	t.Helper()

	hub := collab.NewHub()
	cfg := &configs.AppConfig{
		Environment:    "development",
		Port:           5000,
		AllowedOrigins: []string{},
	}

	srv := httptest.NewServer(Router(hub, cfg))
	t.Cleanup(srv.Close)

	return hub, srv
}

// wsPeer is a test client speaking the envelope protocol over a real
// websocket connection.
type wsPeer struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialPeer(t *testing.T, baseURL string) *wsPeer {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	return &wsPeer{t: t, conn: conn}
}

// emit sends one envelope without waiting for anything back.
func (p *wsPeer) emit(event, ackID string, payload any) {
	p.t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(p.t, err)

	frame, err := json.Marshal(collab.Envelope{Event: event, AckID: ackID, Payload: raw})
	require.NoError(p.t, err)

	require.NoError(p.t, p.conn.WriteMessage(websocket.TextMessage, frame))
}

// next reads frames until one with the given event name arrives and returns
// its decoded payload.
func (p *wsPeer) next(event string) map[string]any {
	p.t.Helper()

	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(readTimeout)))

	for {
		_, frame, err := p.conn.ReadMessage()
		require.NoError(p.t, err, "waiting for %q", event)

		var env collab.Envelope
		require.NoError(p.t, json.Unmarshal(frame, &env))

		if env.Event == event {
			var payload map[string]any
			require.NoError(p.t, json.Unmarshal(env.Payload, &payload))
			return payload
		}
	}
}

// request sends a request/response event and returns the matching ack payload.
func (p *wsPeer) request(event string, payload any) map[string]any {
	p.t.Helper()

	ackID := uuid.NewString()
	p.emit(event, ackID, payload)

	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(readTimeout)))

	for {
		_, frame, err := p.conn.ReadMessage()
		require.NoError(p.t, err, "waiting for ack of %q", event)

		var env collab.Envelope
		require.NoError(p.t, json.Unmarshal(frame, &env))

		if env.Event == collab.EventAck && env.AckID == ackID {
			var ack map[string]any
			require.NoError(p.t, json.Unmarshal(env.Payload, &ack))
			return ack
		}
	}
}

func TestHealthz(t *testing.T) {
	_, srv := newTestServer(t)

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	var body struct {
		Code int `json:"code"`
		Data struct {
			Status string `json:"status"`
			Rooms  int    `json:"rooms"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, 0, body.Code)
	assert.Equal(t, "ok", body.Data.Status)
	assert.Equal(t, 0, body.Data.Rooms)
}

func TestWebSocket_SessionFlow(t *testing.T) {
	hub, srv := newTestServer(t)

	alice := dialPeer(t, srv.URL)

	ack := alice.request(collab.EventValidateUserID, map[string]any{"userId": "alice-id"})
	assert.Equal(t, true, ack["success"])

	ack = alice.request(collab.EventCreateRoom, map[string]any{
		"roomId":   "room-1",
		"roomName": "Planning",
		"userId":   "alice-id",
		"username": "alice",
	})
	require.Equal(t, true, ack["success"], "create failed: %v", ack["message"])
	assert.Len(t, ack["users"], 1)
	assert.Equal(t, 1, hub.RoomCount())

	bob := dialPeer(t, srv.URL)
	ack = bob.request(collab.EventJoinRoom, map[string]any{
		"roomId":   "room-1",
		"userId":   "bob-id",
		"username": "bob",
	})
	require.Equal(t, true, ack["success"], "join failed: %v", ack["message"])
	assert.Len(t, ack["users"], 2)

	joined := alice.next(collab.EventUserJoined)
	assert.Equal(t, "bob joined the room", joined["message"])
	assert.Len(t, joined["users"], 2)

	// public message reaches the other member only
	alice.emit(collab.EventSendMessage, "", map[string]any{
		"roomId": "room-1",
		"message": map[string]any{
			"id":      "m1",
			"sender":  map[string]any{"id": "alice-id", "username": "alice"},
			"content": "hello room",
		},
	})
	received := bob.next(collab.EventReceiveMessage)
	assert.Equal(t, "hello room", received["content"])

	ack = bob.request(collab.EventGetMessages, map[string]any{"roomId": "room-1", "userId": "bob-id"})
	require.Equal(t, true, ack["success"])
	assert.Len(t, ack["messages"], 1)

	// document edit is merged and the raw delta rebroadcast
	ack = bob.request(collab.EventUpdateDocument, map[string]any{
		"roomId": "room-1",
		"userId": "bob-id",
		"delta":  map[string]any{"ops": []any{map[string]any{"insert": "x"}}},
	})
	require.Equal(t, true, ack["success"])

	doc := alice.next(collab.EventReceiveDocument)
	assert.Len(t, doc["ops"], 1)

	ack = alice.request(collab.EventRequestDocument, map[string]any{"roomId": "room-1", "userId": "alice-id"})
	require.Equal(t, true, ack["success"])
	content, ok := ack["content"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, content["ops"], 1)

	// cursor relay carries the sender's identity and position
	bob.emit(collab.EventSendCursor, "", map[string]any{
		"roomId": "room-1",
		"userId": "bob-id",
		"cursor": map[string]any{
			"user":     map[string]any{"id": "bob-id", "username": "bob"},
			"position": map[string]any{"index": 4, "length": 0},
		},
	})
	cursor := alice.next(collab.EventReceiveCursor)
	assert.Equal(t, "bob", cursor["username"])

	// dropping bob's connection triggers the leave path for the survivors
	bob.conn.Close()

	left := alice.next(collab.EventUserLeft)
	assert.Equal(t, "bob left the room", left["message"])
	assert.Len(t, left["users"], 1)

	ack = alice.request(collab.EventGetUsers, map[string]any{"roomId": "room-1", "userId": "alice-id"})
	require.Equal(t, true, ack["success"])
	assert.Len(t, ack["users"], 1)
}

func TestWebSocket_PrivateMessageFlow(t *testing.T) {
	_, srv := newTestServer(t)

	alice := dialPeer(t, srv.URL)
	ack := alice.request(collab.EventCreateRoom, map[string]any{
		"roomId":   "room-1",
		"roomName": "Planning",
		"userId":   "alice-id",
		"username": "alice",
	})
	require.Equal(t, true, ack["success"])

	bob := dialPeer(t, srv.URL)
	ack = bob.request(collab.EventJoinRoom, map[string]any{
		"roomId":   "room-1",
		"userId":   "bob-id",
		"username": "bob",
	})
	require.Equal(t, true, ack["success"])

	ack = bob.request(collab.EventSendPrivateMessage, map[string]any{
		"roomId": "room-1",
		"message": map[string]any{
			"id":        "p1",
			"sender":    map[string]any{"id": "bob-id", "username": "bob"},
			"content":   "@alice hello",
			"recipient": map[string]any{"id": "alice-id", "username": "alice"},
		},
	})
	require.Equal(t, true, ack["success"], "private send failed: %v", ack["message"])

	private := alice.next(collab.EventReceivePrivateMessage)
	assert.Equal(t, "hello", private["content"])
	assert.Equal(t, true, private["isPrivate"])
}

func TestWebSocket_WrongPasswordAndUnknownEvent(t *testing.T) {
	_, srv := newTestServer(t)

	alice := dialPeer(t, srv.URL)
	ack := alice.request(collab.EventCreateRoom, map[string]any{
		"roomId":   "room-1",
		"roomName": "Secret",
		"userId":   "alice-id",
		"username": "alice",
		"password": "hunter2",
	})
	require.Equal(t, true, ack["success"])

	bob := dialPeer(t, srv.URL)
	ack = bob.request(collab.EventJoinRoom, map[string]any{
		"roomId":   "room-1",
		"userId":   "bob-id",
		"username": "bob",
		"password": "wrong",
	})
	assert.Equal(t, false, ack["success"])
	assert.Equal(t, "Incorrect password", ack["message"])

	ack = bob.request("no-such-event", map[string]any{})
	assert.Equal(t, false, ack["success"])
}
