package service

import (
	"errors"
	"log/slog"

	"github.com/Kartikjoshi26/WeCall/internal/api"
	"github.com/Kartikjoshi26/WeCall/internal/domain"
	"github.com/Kartikjoshi26/WeCall/internal/metrics"
)

// Sender delivers one message to one live connection. Delivery is
// fire-and-forget, at-most-once: a failed or impossible write is dropped,
// never queued or retried. The client state machines detect stalls through
// their own timeouts.
type Sender interface {
	Send(conn domain.ConnectionID, msg api.Message) error
}

// RelayService validates and forwards negotiation and control messages
// between connections. It holds no per-call state beyond room membership;
// the session itself lives only in the participating clients.
type RelayService struct {
	presence domain.PresenceRepository
	rooms    domain.RoomRepository
	sender   Sender
}

func NewRelayService(presence domain.PresenceRepository, rooms domain.RoomRepository, sender Sender) *RelayService {
	return &RelayService{
		presence: presence,
		rooms:    rooms,
		sender:   sender,
	}
}

// HandleInvite looks up the callee; if present the invitation is delivered
// and the caller joins the session room, otherwise the caller is told the
// callee is unavailable. The room join happens only after a successful
// delivery: an invite that never reached the callee gets no answer, and a
// lone-member room would linger until the caller disconnects.
func (s *RelayService) HandleInvite(conn domain.ConnectionID, from domain.Identity, m *api.InviteMessage) {
	callee, err := s.presence.Lookup(domain.Identity(m.To))
	if err != nil {
		s.sendOrDrop(conn, api.Message{
			Event:       api.EventUserUnavailable,
			Unavailable: &api.UnavailableMessage{To: m.To},
		})
		return
	}

	if !s.forward(callee.ConnectionID, api.Message{
		Event: api.EventIncomingCall,
		Invite: &api.InviteMessage{
			From:       string(from),
			To:         m.To,
			CallerName: m.CallerName,
			SessionID:  m.SessionID,
		},
	}) {
		return
	}

	_ = s.rooms.Join(domain.SessionID(m.SessionID), conn)
	metrics.CallInvitesTotal.Inc()
}

// HandleAccept forwards the callee's acceptance to the caller and joins the
// callee to the session room. A caller that disconnected in the meantime
// means the message is dropped; its own timeout ends the attempt.
func (s *RelayService) HandleAccept(conn domain.ConnectionID, from domain.Identity, m *api.AcceptMessage) {
	caller, err := s.presence.Lookup(domain.Identity(m.CallerIdentity))
	if err != nil {
		metrics.DroppedMessagesTotal.WithLabelValues(metrics.DropTargetOffline).Inc()
		return
	}

	if !s.forward(caller.ConnectionID, api.Message{
		Event: api.EventAcceptCall,
		Accept: &api.AcceptMessage{
			CallerIdentity: m.CallerIdentity,
			CalleeIdentity: string(from),
			SessionID:      m.SessionID,
		},
	}) {
		return
	}

	_ = s.rooms.Join(domain.SessionID(m.SessionID), conn)
}

func (s *RelayService) HandleReject(from domain.Identity, m *api.RejectMessage) {
	caller, err := s.presence.Lookup(domain.Identity(m.CallerIdentity))
	if err != nil {
		metrics.DroppedMessagesTotal.WithLabelValues(metrics.DropTargetOffline).Inc()
		return
	}

	s.forward(caller.ConnectionID, api.Message{
		Event: api.EventRejectCall,
		Reject: &api.RejectMessage{
			CallerIdentity: m.CallerIdentity,
			CalleeIdentity: string(from),
			SessionID:      m.SessionID,
		},
	})
}

func (s *RelayService) HandleMissCall(m *api.MissCallMessage) {
	target, err := s.presence.Lookup(domain.Identity(m.TargetIdentity))
	if err != nil {
		metrics.DroppedMessagesTotal.WithLabelValues(metrics.DropTargetOffline).Inc()
		return
	}

	s.forward(target.ConnectionID, api.Message{
		Event:    api.EventMissCall,
		MissCall: &api.MissCallMessage{TargetIdentity: m.TargetIdentity},
	})
}

// HandleOffer forwards the offer verbatim, tagged with the sender identity.
// The sessionId is never rewritten.
func (s *RelayService) HandleOffer(from domain.Identity, m *api.OfferMessage) {
	target, err := s.presence.Lookup(domain.Identity(m.TargetIdentity))
	if err != nil {
		metrics.DroppedMessagesTotal.WithLabelValues(metrics.DropTargetOffline).Inc()
		return
	}

	s.forward(target.ConnectionID, api.Message{
		Event: api.EventOfferReceived,
		Offer: &api.OfferMessage{
			TargetIdentity: m.TargetIdentity,
			SenderIdentity: string(from),
			SessionID:      m.SessionID,
			Offer:          m.Offer,
		},
	})
}

func (s *RelayService) HandleAnswer(from domain.Identity, m *api.AnswerMessage) {
	target, err := s.presence.Lookup(domain.Identity(m.TargetIdentity))
	if err != nil {
		metrics.DroppedMessagesTotal.WithLabelValues(metrics.DropTargetOffline).Inc()
		return
	}

	s.forward(target.ConnectionID, api.Message{
		Event: api.EventAnswerReceived,
		Answer: &api.AnswerMessage{
			TargetIdentity: m.TargetIdentity,
			SenderIdentity: string(from),
			SessionID:      m.SessionID,
			Answer:         m.Answer,
		},
	})
}

func (s *RelayService) HandleIce(from domain.Identity, m *api.IceMessage) {
	target, err := s.presence.Lookup(domain.Identity(m.TargetIdentity))
	if err != nil {
		metrics.DroppedMessagesTotal.WithLabelValues(metrics.DropTargetOffline).Inc()
		return
	}

	s.forward(target.ConnectionID, api.Message{
		Event: api.EventIceCandidate,
		Ice: &api.IceMessage{
			TargetIdentity: m.TargetIdentity,
			SenderIdentity: string(from),
			SessionID:      m.SessionID,
			Candidate:      m.Candidate,
		},
	})
}

// HandleHangUp fans the hang-up out to every other participant of the
// session room and closes the room.
func (s *RelayService) HandleHangUp(conn domain.ConnectionID, from domain.Identity, m *api.HangUpMessage) {
	s.fanOutAndClose(conn, domain.SessionID(m.SessionID), api.Message{
		Event:  api.EventUserHungUp,
		HangUp: &api.HangUpMessage{SessionID: m.SessionID, ByName: m.ByName},
	})
}

// HandlePeerRefresh notifies the other participant that the sender lost its
// session (reload or tab close without a clean hang-up).
func (s *RelayService) HandlePeerRefresh(conn domain.ConnectionID, from domain.Identity, m *api.PeerRefreshMessage) {
	s.fanOutAndClose(conn, domain.SessionID(m.SessionID), api.Message{
		Event:       api.EventPeerRefresh,
		PeerRefresh: &api.PeerRefreshMessage{SessionID: m.SessionID},
	})
}

// HandleDisconnect releases the room membership of a closing connection.
func (s *RelayService) HandleDisconnect(conn domain.ConnectionID) {
	s.rooms.LeaveAll(conn)
}

func (s *RelayService) fanOutAndClose(conn domain.ConnectionID, session domain.SessionID, msg api.Message) {
	others, err := s.rooms.Others(session, conn)
	if err != nil {
		if !errors.Is(err, domain.ErrRoomNotFound) {
			slog.Warn("room lookup failed", "sessionID", session, "error", err)
		}
		metrics.DroppedMessagesTotal.WithLabelValues(metrics.DropTargetOffline).Inc()
		return
	}

	for _, member := range others {
		s.forward(member, msg)
	}
	s.rooms.Close(session)
}

func (s *RelayService) forward(conn domain.ConnectionID, msg api.Message) bool {
	if err := s.sender.Send(conn, msg); err != nil {
		slog.Warn("failed to forward message", "event", msg.Event, "connectionID", conn, "error", err)
		metrics.DroppedMessagesTotal.WithLabelValues(metrics.DropWriteFailed).Inc()
		return false
	}
	metrics.RelayedMessagesTotal.WithLabelValues(string(msg.Event)).Inc()
	return true
}

func (s *RelayService) sendOrDrop(conn domain.ConnectionID, msg api.Message) {
	if err := s.sender.Send(conn, msg); err != nil {
		metrics.DroppedMessagesTotal.WithLabelValues(metrics.DropWriteFailed).Inc()
	}
}
