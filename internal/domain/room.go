package domain

import "errors"

var ErrRoomNotFound = errors.New("room not found")

// SessionID is the caller-generated correlation key of one call attempt.
// Every negotiation message of that call carries it; the server only uses it
// to scope hang-up/peer-refresh fan-out to the participants who joined it.
type SessionID string

type RoomRepository interface {
	Join(session SessionID, conn ConnectionID) error
	Leave(session SessionID, conn ConnectionID) error
	// LeaveAll removes the connection from every room it joined and returns
	// the sessions it was a member of.
	LeaveAll(conn ConnectionID) []SessionID
	// Others returns the members of the session except conn itself.
	Others(session SessionID, conn ConnectionID) ([]ConnectionID, error)
	// Close drops the whole room once the session reached a terminal state.
	Close(session SessionID)
	Count() int
}
