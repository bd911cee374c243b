package domain

import (
	"errors"
	"time"
)

var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrPeerOffline      = errors.New("peer offline")
	ErrNotAuthenticated = errors.New("connection has no bound identity")
)

// Identity is the stable authenticated principal identifier of a user,
// a verified account address. It never changes for the lifetime of a
// connection.
type Identity string

// ConnectionID is the ephemeral handle of one live websocket connection.
type ConnectionID string

// Presence binds an identity to its current live connection. At most one
// entry exists per identity; a later connection for the same identity
// replaces the earlier one.
type Presence struct {
	Identity     Identity
	ConnectionID ConnectionID
	BoundAt      time.Time
}

type PresenceRepository interface {
	// Bind upserts the entry for identity, replacing any prior connection.
	Bind(identity Identity, conn ConnectionID) error
	// Unbind removes the entry holding exactly this connection handle.
	// An entry that was already replaced by a newer connection is left alone.
	Unbind(conn ConnectionID) error
	Lookup(identity Identity) (Presence, error)
	// Snapshot returns the identities currently bound, sorted.
	Snapshot() []Identity
}
