package service

import (
	"log/slog"

	"github.com/Kartikjoshi26/WeCall/internal/domain"
)

// PresenceBroadcaster pushes the current presence snapshot to every live
// connection, bound or not.
type PresenceBroadcaster interface {
	BroadcastPresence(identities []domain.Identity)
}

// PresenceService serializes every registry mutation and broadcasts the
// updated snapshot after each one.
type PresenceService struct {
	repo        domain.PresenceRepository
	broadcaster PresenceBroadcaster
}

func NewPresenceService(repo domain.PresenceRepository, broadcaster PresenceBroadcaster) *PresenceService {
	return &PresenceService{
		repo:        repo,
		broadcaster: broadcaster,
	}
}

func (s *PresenceService) Bind(identity domain.Identity, conn domain.ConnectionID) error {
	if err := s.repo.Bind(identity, conn); err != nil {
		return err
	}
	slog.Info("identity bound", "identity", identity, "connectionID", conn)
	s.broadcaster.BroadcastPresence(s.repo.Snapshot())
	return nil
}

func (s *PresenceService) Unbind(conn domain.ConnectionID) error {
	if err := s.repo.Unbind(conn); err != nil {
		return err
	}
	s.broadcaster.BroadcastPresence(s.repo.Snapshot())
	return nil
}

func (s *PresenceService) Lookup(identity domain.Identity) (domain.Presence, error) {
	return s.repo.Lookup(identity)
}

func (s *PresenceService) Snapshot() []domain.Identity {
	return s.repo.Snapshot()
}
