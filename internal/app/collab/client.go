/*
Package collab contains the core logic of the collaboration coordinator.

This file defines the Client struct, representing an active websocket
connection. It manages the connection's lifecycle, the message communication
loops (ReadPump and WritePump), and the dispatch of inbound events to the Hub,
including acknowledgment replies for request/response events.
*/
package collab

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"coedit/internal/app/user"
	"coedit/internal/pkg/errs"
	"coedit/internal/pkg/logx"
	"coedit/internal/pkg/randx"
)

const (
	// timeout duration for writing to the websocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 65536

	// capacity of the per-connection outbound queue.
	sendQueueSize = 256
)

// Client represents an active websocket connection. It implements Conn; the
// Hub addresses the connection only through Send.
type Client struct {
	// hub is the coordinator this connection dispatches into.
	hub *Hub

	// conn is the underlying websocket connection object.
	conn *websocket.Conn

	// send is a buffered channel of frames waiting to go out to the client.
	send chan []byte

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs and returns a new Client instance.
func NewClient(hub *Hub, wsConn *websocket.Conn) *Client {
	clientLogger := logx.Logger().With().
		Str("remote_addr", wsConn.RemoteAddr().String()).
		Logger()

	return &Client{
		hub:    hub,
		conn:   wsConn,
		send:   make(chan []byte, sendQueueSize),
		logger: clientLogger,
	}
}

// Send implements Conn: it marshals the event into an envelope and queues it
// without blocking. A full queue drops the frame with a warning; broadcasts
// are best-effort by contract.
func (c *Client) Send(event string, payload any) {
	c.enqueue(Envelope{Event: event}, payload)
}

// sendAck queues the reply to a request/response event. Events without an
// ackId get no reply.
func (c *Client) sendAck(ackID string, payload any) {
	if ackID == "" {
		return
	}
	c.enqueue(Envelope{Event: EventAck, AckID: ackID}, payload)
}

// enqueue fills the envelope's payload and pushes the encoded frame onto the
// send queue.
func (c *Client) enqueue(env Envelope, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error().Err(err).Str("event", env.Event).Msg("Error marshaling payload for client")
		return
	}
	env.Payload = raw

	frame, err := json.Marshal(env)
	if err != nil {
		c.logger.Error().Err(err).Str("event", env.Event).Msg("Error marshaling envelope for client")
		return
	}

	select {
	case c.send <- frame:
	default:
		c.logger.Warn().
			Str("event", env.Event).
			Int("queue_len", len(c.send)).
			Msg("Client send channel full, dropping frame")
	}
}

// ReadPump handles reading frames from the websocket connection. It handles
// heartbeats (Pong), envelope parsing, and performs cleanup upon connection
// closure. The cleanup runs exactly once per connection, whether the client
// left cleanly or dropped mid-operation.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		c.processInboundFrame(frame)
	}
}

// cleanupOnDisconnect runs the Hub's disconnect path for this connection and
// closes the underlying websocket.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.hub.Disconnect(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Client connection close error")
	}
}

// WritePump handles writing frames from the Client.send channel to the
// websocket connection and keeps the heartbeat alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Error().Err(err).Msg("Error writing close message")
				}
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Error().Err(err).Msg("Error writing frame")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}

// processInboundFrame parses one raw frame and dispatches it. A panic inside
// a handler is recovered here and converted into a generic failure ack, so a
// single bad event never takes down the connection or the process.
func (c *Client) processInboundFrame(frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		c.logger.Warn().Err(err).
			Bytes("frame", frame).
			Msg("Client sent invalid JSON")
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error().
				Str("event", env.Event).
				Interface("panic", rec).
				Msg("Recovered from panic in event handler")

			c.sendAck(env.AckID, ackFailure(errs.NewError(errs.ErrUnknown)))
		}
	}()

	c.dispatch(env)
}

// dispatch routes one parsed envelope to its event handler.
func (c *Client) dispatch(env Envelope) {
	switch env.Event {
	case EventValidateUserID:
		c.handleValidateUserID(env)
	case EventCreateRoom:
		c.handleCreateRoom(env)
	case EventJoinRoom:
		c.handleJoinRoom(env)
	case EventSendMessage:
		c.handleSendMessage(env)
	case EventSendPrivateMessage:
		c.handleSendPrivateMessage(env)
	case EventGetMessages:
		c.handleGetMessages(env)
	case EventUpdateDocument:
		c.handleUpdateDocument(env)
	case EventRequestDocument:
		c.handleRequestDocument(env)
	case EventGetUsers:
		c.handleGetUsers(env)
	case EventSendCursor:
		c.handleSendCursor(env)
	case EventUserTyping:
		c.handleUserTyping(env)
	case EventLeaveRoom:
		c.handleLeaveRoom(env)
	default:
		c.logger.Warn().Str("event", env.Event).Msg("Client sent unsupported event")
		c.sendAck(env.AckID, ackFailure(errs.NewError(errs.ErrUnsupportedEvent)))
	}
}

type validateUserIDInput struct {
	UserID string `json:"userId"`
}

func (c *Client) handleValidateUserID(env Envelope) {
	var in validateUserIDInput
	if !c.bindPayload(env, &in) {
		return
	}

	if !randx.IsValidID(in.UserID) {
		c.sendAck(env.AckID, ackFailure(errs.NewError(errs.ErrInvalidParams)))
		return
	}

	if cerr := c.hub.ValidateUserID(in.UserID); cerr != nil {
		c.sendAck(env.AckID, ackFailure(cerr))
		return
	}

	c.sendAck(env.AckID, ackSuccess("User ID is available"))
}

type createRoomInput struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

func (c *Client) handleCreateRoom(env Envelope) {
	var in createRoomInput
	if !c.bindPayload(env, &in) {
		return
	}

	if !randx.IsValidID(in.RoomID) || !randx.IsValidID(in.UserID) ||
		!randx.IsValidName(in.RoomName) || !randx.IsValidName(in.Username) {
		c.sendAck(env.AckID, ackFailure(errs.NewError(errs.ErrInvalidParams)))
		return
	}

	u := user.User{ID: in.UserID, Username: in.Username}

	users, cerr := c.hub.CreateRoom(c, in.RoomID, in.RoomName, in.Password, u)
	if cerr != nil {
		c.sendAck(env.AckID, ackFailure(cerr))
		return
	}

	ack := ackSuccess(fmt.Sprintf("Room %s created successfully", in.RoomName))
	ack["users"] = users
	c.sendAck(env.AckID, ack)
}

type joinRoomInput struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

func (c *Client) handleJoinRoom(env Envelope) {
	var in joinRoomInput
	if !c.bindPayload(env, &in) {
		return
	}

	if !randx.IsValidID(in.RoomID) || !randx.IsValidID(in.UserID) || !randx.IsValidName(in.Username) {
		c.sendAck(env.AckID, ackFailure(errs.NewError(errs.ErrInvalidParams)))
		return
	}

	u := user.User{ID: in.UserID, Username: in.Username}

	users, roomName, cerr := c.hub.JoinRoom(c, in.RoomID, u, in.Password)
	if cerr != nil {
		c.sendAck(env.AckID, ackFailure(cerr))
		return
	}

	ack := ackSuccess(fmt.Sprintf("Successfully joined room %s", roomName))
	ack["users"] = users
	c.sendAck(env.AckID, ack)
}

type roomMessageInput struct {
	RoomID  string  `json:"roomId"`
	Message Message `json:"message"`
}

func (c *Client) handleSendMessage(env Envelope) {
	var in roomMessageInput
	if !c.bindPayload(env, &in) {
		return
	}

	c.hub.SendPublic(c, in.RoomID, in.Message)
}

func (c *Client) handleSendPrivateMessage(env Envelope) {
	var in roomMessageInput
	if !c.bindPayload(env, &in) {
		return
	}

	if cerr := c.hub.SendPrivate(c, in.RoomID, in.Message); cerr != nil {
		c.sendAck(env.AckID, ackFailure(cerr))
		return
	}

	c.sendAck(env.AckID, ackSuccess("Private message sent successfully"))
}

type roomQueryInput struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

func (c *Client) handleGetMessages(env Envelope) {
	var in roomQueryInput
	if !c.bindPayload(env, &in) {
		return
	}

	messages, cerr := c.hub.Messages(in.RoomID, in.UserID)
	if cerr != nil {
		c.sendAck(env.AckID, ackFailure(cerr))
		return
	}

	ack := ackSuccess("Room messages retrieved successfully")
	ack["messages"] = messages
	c.sendAck(env.AckID, ack)
}

type updateDocumentInput struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Delta  Delta  `json:"delta"`
}

func (c *Client) handleUpdateDocument(env Envelope) {
	var in updateDocumentInput
	if !c.bindPayload(env, &in) {
		return
	}

	if cerr := c.hub.ApplyEdit(c, in.RoomID, in.UserID, in.Delta); cerr != nil {
		c.sendAck(env.AckID, ackFailure(cerr))
		return
	}

	c.sendAck(env.AckID, ackSuccess("Document content updated successfully"))
}

func (c *Client) handleRequestDocument(env Envelope) {
	var in roomQueryInput
	if !c.bindPayload(env, &in) {
		return
	}

	content, cerr := c.hub.DocumentContent(in.RoomID, in.UserID)
	if cerr != nil {
		c.sendAck(env.AckID, ackFailure(cerr))
		return
	}

	ack := ackSuccess("Document content retrieved successfully")
	ack["content"] = content
	c.sendAck(env.AckID, ack)
}

func (c *Client) handleGetUsers(env Envelope) {
	var in roomQueryInput
	if !c.bindPayload(env, &in) {
		return
	}

	users, cerr := c.hub.Members(in.RoomID, in.UserID)
	if cerr != nil {
		c.sendAck(env.AckID, ackFailure(cerr))
		return
	}

	ack := ackSuccess("Room users retrieved successfully")
	ack["users"] = users
	c.sendAck(env.AckID, ack)
}

type cursorInput struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Cursor struct {
		User     user.User   `json:"user"`
		Position *CursorSpan `json:"position"`
	} `json:"cursor"`
}

func (c *Client) handleSendCursor(env Envelope) {
	var in cursorInput
	if !c.bindPayload(env, &in) {
		return
	}

	c.hub.RelayCursor(c, in.RoomID, CursorPayload{
		UserID:   in.UserID,
		Username: in.Cursor.User.Username,
		Position: in.Cursor.Position,
	})
}

type typingInput struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

func (c *Client) handleUserTyping(env Envelope) {
	var in typingInput
	if !c.bindPayload(env, &in) {
		return
	}

	c.hub.RelayTyping(c, in.RoomID, TypingPayload{
		ID:       in.UserID,
		Username: in.Username,
		IsTyping: in.IsTyping,
	})
}

type leaveRoomInput struct {
	RoomID string `json:"roomId"`
}

func (c *Client) handleLeaveRoom(env Envelope) {
	var in leaveRoomInput
	if !c.bindPayload(env, &in) {
		return
	}

	c.hub.LeaveRoom(c, in.RoomID)
}

// bindPayload unmarshals the envelope payload into dst. On malformed payloads
// it logs, acks a failure where the event expects one, and reports false.
func (c *Client) bindPayload(env Envelope, dst any) bool {
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		c.logger.Warn().Err(err).
			Str("event", env.Event).
			Msg("Client sent invalid payload")
		c.sendAck(env.AckID, ackFailure(errs.NewError(errs.ErrInvalidJSONFormat)))
		return false
	}
	return true
}

// ackSuccess builds the base payload of a successful reply.
func ackSuccess(message string) map[string]any {
	return map[string]any{
		"success": true,
		"message": message,
	}
}

// ackFailure builds the payload of a failed reply from a business error.
func ackFailure(cerr *errs.CustomError) map[string]any {
	return map[string]any{
		"success": false,
		"message": cerr.Message,
		"code":    cerr.Code,
	}
}
