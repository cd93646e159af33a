/*
Package collab contains the core logic of the collaboration coordinator: room
lifecycle, membership, message fan-out, document reconciliation, and cursor and
typing presence relay over long-lived websocket connections.

This file defines the wire envelope and the event vocabulary exchanged with
clients.
*/
package collab

import "encoding/json"

// Client -> server events. Events marked "ack" in the protocol carry an ackId
// and always receive an EventAck reply; the rest are fire-and-forget.
const (
	EventValidateUserID     = "validate-user-id"
	EventCreateRoom         = "create-room"
	EventJoinRoom           = "join-room"
	EventSendMessage        = "send-room-message"
	EventSendPrivateMessage = "send-private-room-message"
	EventGetMessages        = "get-room-messages"
	EventUpdateDocument     = "update-document-content"
	EventRequestDocument    = "request-document-content"
	EventGetUsers           = "get-room-users"
	EventSendCursor         = "send-cursor-position"
	EventUserTyping         = "user-typing"
	EventLeaveRoom          = "leave-room"
)

// Server -> client events.
const (
	// EventAck carries the reply to a request/response event, matched by ackId.
	EventAck = "ack"

	EventUserJoined            = "user-joined-room"
	EventUserLeft              = "user-left-room"
	EventReceiveMessage        = "receive-room-message"
	EventReceivePrivateMessage = "receive-private-room-message"
	EventReceiveDocument       = "receive-document-content"
	EventReceiveCursor         = "receive-cursor-position"
	EventReceiveTyping         = "receive-user-typing"
)

// Envelope is the JSON frame exchanged in both directions over the websocket.
// AckID is set by the client on request/response events and echoed back on the
// matching EventAck reply.
type Envelope struct {
	Event   string          `json:"event"`
	AckID   string          `json:"ackId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
