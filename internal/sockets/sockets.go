package sockets

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// SocketID is the ephemeral handle assigned to one live connection. It is
// the value side of the presence registry and the address used by the relay.
type SocketID string

// Socket is a json-message connection. Writes are safe for concurrent use;
// reads must stay on the single reader goroutine of the connection.
type Socket interface {
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
	Close() error
}

type socketImpl struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func NewSocket(conn *websocket.Conn) Socket {
	return &socketImpl{ws: conn}
}

func (s *socketImpl) WriteJSON(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.ws.WriteJSON(v)
}

func (s *socketImpl) ReadJSON(v interface{}) error {
	return s.ws.ReadJSON(v)
}

func (s *socketImpl) Close() error {
	return s.ws.Close()
}
