/*
Package collab contains the core logic of the collaboration coordinator.

This file defines the Hub struct, the process-scoped authority over every live
room. It owns the room store, the active-identity table enforcing user-id
uniqueness across rooms, and the connection registry that remembers which
rooms each connection joined so disconnects can be cleaned up without any help
from the client.
*/
package collab

import (
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog"

	"coedit/internal/app/user"
	"coedit/internal/pkg/errs"
	"coedit/internal/pkg/logx"
	"coedit/internal/pkg/randx"
)

// session records what the Hub knows about one live connection: the set of
// room ids it currently belongs to. Identity per room lives in the room's
// member table; the active-identity table maps the other direction.
type session struct {
	rooms map[string]struct{}
}

// Hub coordinates all live rooms and connections. State lives only in process
// memory for the process lifetime; nothing survives a restart.
type Hub struct {
	// rooms stores every live Room, keyed by room id.
	rooms map[string]*Room

	// activeUsers maps a bound user id to the connection holding it. Entries
	// are inserted on admission and removed on leave or disconnect, always
	// inside the same critical section as the membership change.
	activeUsers map[string]Conn

	// sessions is the connection registry: connection handle to joined rooms.
	sessions map[Conn]*session

	// mu protects rooms, activeUsers, and sessions. When a room's own mutex
	// is also needed, the Hub lock is always taken first.
	mu sync.RWMutex

	// structured logger with Hub context.
	logger zerolog.Logger
}

// NewHub constructs and returns a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		rooms:       make(map[string]*Room),
		activeUsers: make(map[string]Conn),
		sessions:    make(map[Conn]*session),
		logger:      logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// ValidateUserID reports whether the given user id is free to claim. The check
// is advisory: nothing is reserved, and the id is re-checked under the Hub
// lock at admission time, so two connections validating the same id
// concurrently is resolved at join, not here.
func (h *Hub) ValidateUserID(userID string) *errs.CustomError {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, taken := h.activeUsers[userID]; taken {
		return errs.NewError(errs.ErrUserIDInUse)
	}
	return nil
}

// CreateRoom allocates a new room with the given id, admits the creator as its
// first member, and binds the creator's identity. It fails if the room id is
// already live or the creator's user id is bound elsewhere. Returns the member
// list after admission.
func (h *Hub) CreateRoom(conn Conn, roomID, roomName, password string, u user.User) ([]user.User, *errs.CustomError) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, taken := h.activeUsers[u.ID]; taken {
		return nil, errs.NewError(errs.ErrUserIDInUse)
	}

	if _, exists := h.rooms[roomID]; exists {
		h.logger.Warn().Str("room_id", roomID).Msg("Attempted to create existing room.")
		return nil, errs.NewError(errs.ErrRoomExists)
	}

	room := newRoom(roomID, roomName, password)
	h.rooms[roomID] = room

	users := room.admit(conn, u)
	h.bindLocked(conn, roomID, u)

	h.logger.Info().
		Str("room_id", roomID).
		Str("room_name", roomName).
		Bool("password_protected", password != "").
		Msg("New room created.")

	return users, nil
}

// JoinRoom admits the connection into an existing room after the password
// check, binds the identity, and announces the arrival to the other members.
// Returns the member list after admission and the room's display name.
func (h *Hub) JoinRoom(conn Conn, roomID string, u user.User, password string) ([]user.User, string, *errs.CustomError) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, taken := h.activeUsers[u.ID]; taken {
		return nil, "", errs.NewError(errs.ErrUserIDInUse)
	}

	room, ok := h.rooms[roomID]
	if !ok {
		return nil, "", errs.NewError(errs.ErrRoomNotFound, roomID)
	}

	if !room.authorize(password) {
		return nil, "", errs.NewError(errs.ErrRoomPasswordMismatch)
	}

	users := room.admit(conn, u)
	h.bindLocked(conn, roomID, u)

	return users, room.Name, nil
}

// LeaveRoom removes the connection's membership, unbinds the identity, and
// retires the room when its last member is gone. Unknown rooms and
// non-members are ignored; this is a fire-and-forget path.
func (h *Hub) LeaveRoom(conn Conn, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(conn, roomID)
}

// Disconnect runs the leave path for every room the connection belonged to
// and drops it from the registry. A fault while cleaning up one room must not
// block cleanup of the others, so each room is handled independently.
func (h *Hub) Disconnect(conn Conn) {
	h.mu.Lock()

	s := h.sessions[conn]
	delete(h.sessions, conn)

	var roomIDs []string
	if s != nil {
		for roomID := range s.rooms {
			roomIDs = append(roomIDs, roomID)
		}
	}

	h.mu.Unlock()

	for _, roomID := range roomIDs {
		h.cleanupRoom(conn, roomID)
	}
}

// cleanupRoom performs one room's disconnect cleanup behind a recover so a
// single room's failure cannot strand the remaining rooms.
func (h *Hub) cleanupRoom(conn Conn, roomID string) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error().
				Str("room_id", roomID).
				Interface("panic", rec).
				Msg("Recovered from panic during disconnect cleanup.")
		}
	}()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(conn, roomID)
}

// SendPublic appends a public message to the room's log verbatim and delivers
// it to every member except the sender. Stale room ids are silently dropped;
// there is no error channel on this path.
func (h *Hub) SendPublic(conn Conn, roomID string, msg Message) {
	room := h.getRoom(roomID)
	if room == nil {
		return
	}

	if msg.ID == "" {
		msg.ID = randx.MessageID()
	}

	room.appendPublic(msg, conn)
}

// SendPrivate resolves the recipient among the room's current members,
// strips a leading "@username" mention from the content, forces the private
// flag, appends the message to the room's log, and delivers it to the
// recipient's connection only.
func (h *Hub) SendPrivate(conn Conn, roomID string, msg Message) *errs.CustomError {
	room := h.getRoom(roomID)
	if room == nil {
		return errs.NewError(errs.ErrRoomNotFound, roomID)
	}

	if msg.Recipient == nil {
		return errs.NewError(errs.ErrMissingRecipient)
	}

	to, ok := room.memberConn(msg.Recipient.ID)
	if !ok {
		return errs.NewError(errs.ErrRecipientUnavailable, msg.Recipient.Username)
	}

	if msg.ID == "" {
		msg.ID = randx.MessageID()
	}
	msg.Content = stripMention(msg.Content, msg.Recipient.Username)
	msg.IsPrivate = true

	room.appendPrivate(msg, to)
	return nil
}

// Messages returns the room's full message log in append order. Any current
// member may read the whole log, previously stored private messages included;
// history carries no per-recipient filtering.
func (h *Hub) Messages(roomID, userID string) ([]Message, *errs.CustomError) {
	room := h.getRoom(roomID)
	if room == nil {
		return nil, errs.NewError(errs.ErrRoomNotFound, roomID)
	}

	if !room.hasMember(userID) {
		return nil, errs.NewError(errs.ErrNotInRoom)
	}

	return room.messageLog(), nil
}

// Members returns the room's current member list.
func (h *Hub) Members(roomID, userID string) ([]user.User, *errs.CustomError) {
	room := h.getRoom(roomID)
	if room == nil {
		return nil, errs.NewError(errs.ErrRoomNotFound, roomID)
	}

	if !room.hasMember(userID) {
		return nil, errs.NewError(errs.ErrNotInRoom)
	}

	return room.memberList(), nil
}

// ApplyEdit merges a document delta into the room's log and rebroadcasts the
// raw delta to every other member.
func (h *Hub) ApplyEdit(conn Conn, roomID, userID string, delta Delta) *errs.CustomError {
	room := h.getRoom(roomID)
	if room == nil {
		return errs.NewError(errs.ErrRoomNotFound, roomID)
	}

	if !room.hasMember(userID) {
		return errs.NewError(errs.ErrNotInRoom)
	}

	room.applyDelta(delta, conn)
	return nil
}

// DocumentContent returns the room's merged document log for a member to
// bootstrap its local state from.
func (h *Hub) DocumentContent(roomID, userID string) (Delta, *errs.CustomError) {
	room := h.getRoom(roomID)
	if room == nil {
		return Delta{}, errs.NewError(errs.ErrRoomNotFound, roomID)
	}

	if !room.hasMember(userID) {
		return Delta{}, errs.NewError(errs.ErrNotInRoom)
	}

	return room.documentSnapshot(), nil
}

// RelayCursor rebroadcasts a cursor signal to every other member. Beyond room
// existence there is no gate; the event is dropped when the room is gone.
func (h *Hub) RelayCursor(conn Conn, roomID string, payload CursorPayload) {
	room := h.getRoom(roomID)
	if room == nil {
		return
	}

	room.relay(conn, EventReceiveCursor, payload)
}

// RelayTyping rebroadcasts a typing indicator to every other member.
func (h *Hub) RelayTyping(conn Conn, roomID string, payload TypingPayload) {
	room := h.getRoom(roomID)
	if room == nil {
		return
	}

	room.relay(conn, EventReceiveTyping, payload)
}

// RoomCount returns the number of live rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms)
}

// Shutdown drops all coordinator state. Rooms hold no goroutines of their
// own, so there is nothing further to stop; connections are torn down by the
// HTTP server's shutdown.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logger.Info().
		Int("rooms", len(h.rooms)).
		Int("connections", len(h.sessions)).
		Msg("Hub shutdown, discarding in-memory state.")

	h.rooms = make(map[string]*Room)
	h.activeUsers = make(map[string]Conn)
	h.sessions = make(map[Conn]*session)
}

// getRoom retrieves a live room by id, or nil.
func (h *Hub) getRoom(roomID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.rooms[roomID]
}

// bindLocked records the identity and registry entries for a fresh admission.
// Callers must hold mu.
func (h *Hub) bindLocked(conn Conn, roomID string, u user.User) {
	h.activeUsers[u.ID] = conn

	s := h.sessions[conn]
	if s == nil {
		s = &session{rooms: make(map[string]struct{})}
		h.sessions[conn] = s
	}
	s.rooms[roomID] = struct{}{}
}

// leaveLocked removes the membership keyed by the connection, unbinds the
// identity, and deletes the room the instant its member count reaches zero.
// The room's history and document log are discarded with it. Callers must
// hold mu.
func (h *Hub) leaveLocked(conn Conn, roomID string) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}

	u, remaining, wasMember := room.remove(conn)
	if !wasMember {
		return
	}

	delete(h.activeUsers, u.ID)
	if s := h.sessions[conn]; s != nil {
		delete(s.rooms, roomID)
	}

	if remaining == 0 {
		delete(h.rooms, roomID)
		h.logger.Info().Str("room_id", roomID).Msg("Room emptied and removed.")
	}
}

// stripMention removes a leading "@<username>" token from content when it is
// an exact prefix ending at a word boundary, then trims surrounding
// whitespace. Purely cosmetic cleanup of the client's mention syntax.
func stripMention(content, username string) string {
	if username == "" {
		return content
	}

	prefix := "@" + username
	if !strings.HasPrefix(content, prefix) {
		return content
	}

	rest := content[len(prefix):]
	if rest != "" {
		r := []rune(rest)[0]
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return content
		}
	}

	return strings.TrimSpace(rest)
}
