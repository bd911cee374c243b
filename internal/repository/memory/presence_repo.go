package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/Kartikjoshi26/WeCall/internal/domain"
	"github.com/Kartikjoshi26/WeCall/internal/metrics"
)

type PresenceRepository struct {
	entries map[domain.Identity]domain.Presence
	mu      sync.RWMutex
}

func NewPresenceRepository() *PresenceRepository {
	return &PresenceRepository{
		entries: make(map[domain.Identity]domain.Presence),
	}
}

func (r *PresenceRepository) Bind(identity domain.Identity, conn domain.ConnectionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[identity] = domain.Presence{
		Identity:     identity,
		ConnectionID: conn,
		BoundAt:      time.Now(),
	}
	metrics.BoundIdentities.Set(float64(len(r.entries)))
	return nil
}

// Unbind deletes the entry holding this exact handle. Matching on the handle
// rather than the identity keeps a rebind from a newer connection intact when
// the replaced connection finally disconnects.
func (r *PresenceRepository) Unbind(conn domain.ConnectionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for identity, entry := range r.entries {
		if entry.ConnectionID == conn {
			delete(r.entries, identity)
			break
		}
	}
	metrics.BoundIdentities.Set(float64(len(r.entries)))
	return nil
}

func (r *PresenceRepository) Lookup(identity domain.Identity) (domain.Presence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[identity]
	if !ok {
		return domain.Presence{}, domain.ErrIdentityNotFound
	}
	return entry, nil
}

func (r *PresenceRepository) Snapshot() []domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identities := make([]domain.Identity, 0, len(r.entries))
	for identity := range r.entries {
		identities = append(identities, identity)
	}
	sort.Slice(identities, func(i, j int) bool { return identities[i] < identities[j] })
	return identities
}
