/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
response payloads and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrInvalidJSONFormat: {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrUnsupportedEvent:  {Code: ErrUnsupportedEvent, Message: "Unsupported event."},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room and Content Business Logic Errors
	ErrRoomExists:           {Code: ErrRoomExists, Message: "Room already exists"},
	ErrRoomNotFound:         {Code: ErrRoomNotFound, Message: "Room %s does not exist"},
	ErrRoomPasswordMismatch: {Code: ErrRoomPasswordMismatch, Message: "Incorrect password"},
	ErrNotInRoom:            {Code: ErrNotInRoom, Message: "User is not in the room"},
	ErrRecipientUnavailable: {Code: ErrRecipientUnavailable, Message: "Recipient %s is not available"},
	ErrMissingRecipient:     {Code: ErrMissingRecipient, Message: "Private message requires a recipient"},

	// 3xxx: User and Identity Errors
	ErrUserIDInUse: {Code: ErrUserIDInUse, Message: "User ID already in use, please choose a different one"},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Internal server error", Status: http.StatusInternalServerError},
}
