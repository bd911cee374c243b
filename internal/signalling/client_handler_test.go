package signalling

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/Kartikjoshi26/WeCall/internal/api"
	"github.com/Kartikjoshi26/WeCall/internal/domain"
	"github.com/Kartikjoshi26/WeCall/internal/repository/memory"
	"github.com/Kartikjoshi26/WeCall/internal/service"
)

// rawSocket feeds pre-encoded frames through real JSON decoding, exactly as
// a live connection would.
type rawSocket struct {
	frames [][]byte
	next   int
}

func (s *rawSocket) ReadJSON(v interface{}) error {
	if s.next >= len(s.frames) {
		return io.EOF
	}
	data := s.frames[s.next]
	s.next++
	return json.Unmarshal(data, v)
}

func (s *rawSocket) WriteJSON(v interface{}) error { return nil }
func (s *rawSocket) Close() error                  { return nil }

type captureSender struct {
	msgs []api.Message
}

func (c *captureSender) Send(conn domain.ConnectionID, msg api.Message) error {
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestReadLoopDoesNotLeakFieldsAcrossFrames(t *testing.T) {
	presence := memory.NewPresenceRepository()
	_ = presence.Bind("bob@example.com", "conn-bob")
	sender := &captureSender{}
	handler := &ClientHandler{
		relay: service.NewRelayService(presence, memory.NewRoomRepository(), sender),
	}

	// The second offer carries no sessionId. It must be forwarded with an
	// empty one, not with the sessionId the first frame carried.
	socket := &rawSocket{frames: [][]byte{
		[]byte(`{"event":"offer","offer":{"targetIdentity":"bob@example.com","sessionId":"session-1","offer":{"type":"offer","sdp":"v=0 first"}}}`),
		[]byte(`{"event":"offer","offer":{"targetIdentity":"bob@example.com","offer":{"type":"offer","sdp":"v=0 second"}}}`),
	}}

	handler.readMessages(socket, "conn-alice", "alice@example.com", true)

	if len(sender.msgs) != 2 {
		t.Fatalf("got %d forwarded messages, want 2", len(sender.msgs))
	}
	if got := sender.msgs[0].Offer.SessionID; got != "session-1" {
		t.Fatalf("got first sessionId %q, want session-1", got)
	}
	if got := sender.msgs[1].Offer.SessionID; got != "" {
		t.Fatalf("second frame inherited sessionId %q from the first", got)
	}
}

func TestReadLoopDropsUnboundSenderFrames(t *testing.T) {
	presence := memory.NewPresenceRepository()
	_ = presence.Bind("bob@example.com", "conn-bob")
	sender := &captureSender{}
	handler := &ClientHandler{
		relay: service.NewRelayService(presence, memory.NewRoomRepository(), sender),
	}

	socket := &rawSocket{frames: [][]byte{
		[]byte(`{"event":"offer","offer":{"targetIdentity":"bob@example.com","sessionId":"session-1","offer":{"type":"offer","sdp":"v=0"}}}`),
	}}

	handler.readMessages(socket, "conn-anon", "", false)

	if len(sender.msgs) != 0 {
		t.Fatalf("got %d forwarded messages from an unbound sender, want 0", len(sender.msgs))
	}
}
