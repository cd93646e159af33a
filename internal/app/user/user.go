/*
Package user contains the core data structure for user identity.

It defines the basic representation of a participant within the collaboration
system (the User struct), referenced by value in messages and presence events.
*/
package user

// User represents the identity of a collaboration participant.
// Identity is caller-supplied; the coordinator only enforces that the ID is
// unique among live connections. Fields use JSON tags for serialization
// in websocket payloads.
type User struct {

	// ID is the opaque unique identifier for the user, generated client-side.
	ID string `json:"id"`

	// Username is the display name of the user in the room.
	Username string `json:"username"`
}
