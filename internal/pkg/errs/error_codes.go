/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that an inbound frame was not valid JSON.
	ErrInvalidJSONFormat = 1002

	// ErrUnsupportedEvent indicates that the client sent an event the server does not handle.
	ErrUnsupportedEvent = 1003

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1004
)

// 2xxx: Room and Content Business Logic Errors
const (
	// ErrRoomExists indicates that the room id requested for creation is already live.
	ErrRoomExists = 2101

	// ErrRoomNotFound indicates that the referenced room id does not exist.
	ErrRoomNotFound = 2102

	// ErrRoomPasswordMismatch indicates that the supplied password does not match the room's.
	ErrRoomPasswordMismatch = 2103

	// ErrNotInRoom indicates a room-scoped operation from a user who is not a member.
	ErrNotInRoom = 2104

	// ErrRecipientUnavailable indicates a private-message target who is not currently a member.
	ErrRecipientUnavailable = 2201

	// ErrMissingRecipient indicates a private message that named no recipient.
	ErrMissingRecipient = 2202
)

// 3xxx: User and Identity Errors
const (
	// ErrUserIDInUse indicates that the requested user identifier is bound to a live connection.
	ErrUserIDInUse = 3101
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
