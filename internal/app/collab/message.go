/*
Package collab contains the core logic of the collaboration coordinator.

This file defines the data carried inside event payloads: chat messages,
document deltas, and the ephemeral cursor and typing presence signals.
*/
package collab

import (
	"encoding/json"

	"coedit/internal/app/user"
)

// Message is a chat message stored in a room's log. Messages are immutable
// once appended and are never removed for the life of the room.
// IsPrivate is true if and only if Recipient is set.
type Message struct {
	// ID is an opaque message identifier. Clients supply their own ids for
	// optimistic rendering; the server generates one only when it is absent.
	ID string `json:"id"`

	// Sender is the identity of the authoring member, carried by value.
	Sender user.User `json:"sender"`

	// Content is the message body.
	Content string `json:"content"`

	// Recipient is set only on private messages.
	Recipient *user.User `json:"recipient,omitempty"`

	// IsPrivate marks a targeted message delivered to the recipient only.
	IsPrivate bool `json:"isPrivate"`
}

// Delta is a document edit operation: an ordered list of opaque insert,
// retain, and delete style ops. The coordinator never inspects individual ops;
// a room's document state is the concatenation of every merged delta's ops in
// arrival order.
type Delta struct {
	Ops []json.RawMessage `json:"ops"`
}

// CursorSpan is a selection range inside the shared document.
type CursorSpan struct {
	Index  int `json:"index"`
	Length int `json:"length"`
}

// CursorPayload is the ephemeral cursor signal rebroadcast to a sender's
// peers. A nil Position means the cursor is hidden and any remote rendering
// of it should be removed. Nothing here is retained server-side.
type CursorPayload struct {
	UserID   string      `json:"userId"`
	Username string      `json:"username"`
	Position *CursorSpan `json:"position"`
}

// TypingPayload is the ephemeral typing indicator rebroadcast to peers.
type TypingPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// PresencePayload accompanies the user-joined-room and user-left-room
// broadcasts: a human-readable notice plus the updated member list.
type PresencePayload struct {
	Message string      `json:"message"`
	Users   []user.User `json:"users"`
}
