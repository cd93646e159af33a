/*
Package collab contains the core logic of the collaboration coordinator.

This file defines the Room struct, the state of a single collaboration
session: its members, chat message log, and shared document log. A Room's
collections are guarded by one mutex so that every operation observes a
consistent snapshot, and so that appends and their broadcasts keep arrival
order per room.
*/
package collab

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"coedit/internal/app/user"
	"coedit/internal/pkg/logx"
)

// Conn is the transport endpoint of one participant connection. The coordinator
// addresses a member exclusively through this handle. Implementations must not
// block in Send; delivery is best-effort.
type Conn interface {
	// Send queues one event frame for delivery to the peer.
	Send(event string, payload any)
}

// Room represents a single live collaboration session.
type Room struct {
	// ID is the globally unique identifier of the room among live rooms.
	ID string

	// Name is the human-readable room name chosen at creation.
	Name string

	// password gates admission when non-empty. Immutable after creation.
	password string

	// members maps each admitted connection to its bound user identity.
	members map[Conn]user.User

	// messages is the append-only chat log, public and private entries alike.
	messages []Message

	// document is the merged document log: every applied delta's ops,
	// concatenated in arrival order.
	document Delta

	// mu protects members, messages, and document. Broadcasts happen while
	// holding it so the visible order of appends matches arrival order.
	mu sync.RWMutex

	// structured logger with room context.
	logger zerolog.Logger
}

// newRoom creates and initializes a new Room instance.
func newRoom(id, name, password string) *Room {
	roomLogger := logx.Logger().With().
		Str("room_id", id).
		Logger()

	return &Room{
		ID:       id,
		Name:     name,
		password: password,
		members:  make(map[Conn]user.User),
		logger:   roomLogger,
	}
}

// authorize reports whether the supplied password grants admission.
// Rooms without a password admit everyone.
func (r *Room) authorize(password string) bool {
	return r.password == "" || r.password == password
}

// admit adds the connection as a member, announces it to the other members,
// and returns the member list after admission. The joining connection is not
// sent the announcement; it receives the list in its direct reply instead.
func (r *Room) admit(conn Conn, u user.User) []user.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.members[conn] = u
	users := r.memberListLocked()

	r.broadcastLocked(conn, EventUserJoined, PresencePayload{
		Message: fmt.Sprintf("%s joined the room", u.Username),
		Users:   users,
	})

	r.logger.Info().
		Str("user_id", u.ID).
		Int("total_users", len(r.members)).
		Msg("Member joined room.")

	return users
}

// remove deletes the member keyed by the connection and announces the
// departure to the survivors. It returns the departed identity, the remaining
// member count, and whether the connection was a member at all. With no
// survivors the broadcast reaches nobody, so an emptied room emits nothing.
func (r *Room) remove(conn Conn) (user.User, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.members[conn]
	if !ok {
		return user.User{}, len(r.members), false
	}

	delete(r.members, conn)

	r.broadcastLocked(nil, EventUserLeft, PresencePayload{
		Message: fmt.Sprintf("%s left the room", u.Username),
		Users:   r.memberListLocked(),
	})

	r.logger.Info().
		Str("user_id", u.ID).
		Int("total_users", len(r.members)).
		Msg("Member left room.")

	return u, len(r.members), true
}

// hasMember reports whether a current member carries the given user id.
func (r *Room) hasMember(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.members {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// memberConn resolves the connection of the current member with the given
// user id.
func (r *Room) memberConn(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for conn, u := range r.members {
		if u.ID == userID {
			return conn, true
		}
	}
	return nil, false
}

// memberCount returns the number of current members.
func (r *Room) memberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.members)
}

// memberList returns a snapshot of the current member identities.
func (r *Room) memberList() []user.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.memberListLocked()
}

// appendPublic stores a public message verbatim and delivers it to every
// member except the sender's connection.
func (r *Room) appendPublic(msg Message, from Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, msg)
	r.broadcastLocked(from, EventReceiveMessage, msg)
}

// appendPrivate stores a private message and delivers it to the recipient's
// connection only. The sender keeps its own optimistic copy client-side.
func (r *Room) appendPrivate(msg Message, to Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, msg)
	to.Send(EventReceivePrivateMessage, msg)
}

// messageLog returns the full message log in append order, private entries
// included. Access control is the caller's concern.
func (r *Room) messageLog() []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log := make([]Message, len(r.messages))
	copy(log, r.messages)
	return log
}

// applyDelta merges the delta into the document log by concatenating its ops
// onto the existing log and rebroadcasts the raw delta, unresolved, to every
// member except the author. No transformation against concurrent edits is
// attempted; clients converge on the coordinator's arrival order.
func (r *Room) applyDelta(delta Delta, from Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.document.Ops = append(r.document.Ops, delta.Ops...)
	r.broadcastLocked(from, EventReceiveDocument, delta)
}

// documentSnapshot returns a copy of the merged document log, used by late
// joiners and reconnects to bootstrap their local state.
func (r *Room) documentSnapshot() Delta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]json.RawMessage, len(r.document.Ops))
	copy(ops, r.document.Ops)
	return Delta{Ops: ops}
}

// relay rebroadcasts an ephemeral event to every member except the sender.
// Nothing is retained; a reconnecting client recovers presence only from
// fresh events.
func (r *Room) relay(from Conn, event string, payload any) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.broadcastLocked(from, event, payload)
}

// memberListLocked snapshots the member identities. Callers must hold mu.
func (r *Room) memberListLocked() []user.User {
	users := make([]user.User, 0, len(r.members))
	for _, u := range r.members {
		users = append(users, u)
	}
	return users
}

// broadcastLocked queues the event on every member connection except the one
// given. Callers must hold mu (read or write).
func (r *Room) broadcastLocked(except Conn, event string, payload any) {
	for conn := range r.members {
		if conn != except {
			conn.Send(event, payload)
		}
	}
}
