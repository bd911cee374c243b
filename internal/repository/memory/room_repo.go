package memory

import (
	"sync"

	"github.com/Kartikjoshi26/WeCall/internal/domain"
	"github.com/Kartikjoshi26/WeCall/internal/metrics"
)

type RoomRepository struct {
	rooms map[domain.SessionID]map[domain.ConnectionID]struct{}
	mu    sync.Mutex
}

func NewRoomRepository() *RoomRepository {
	return &RoomRepository{
		rooms: make(map[domain.SessionID]map[domain.ConnectionID]struct{}),
	}
}

func (r *RoomRepository) Join(session domain.SessionID, conn domain.ConnectionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[session]
	if !ok {
		members = make(map[domain.ConnectionID]struct{})
		r.rooms[session] = members
	}
	members[conn] = struct{}{}
	metrics.ActiveRooms.Set(float64(len(r.rooms)))
	return nil
}

func (r *RoomRepository) Leave(session domain.SessionID, conn domain.ConnectionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[session]
	if !ok {
		return domain.ErrRoomNotFound
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(r.rooms, session)
	}
	metrics.ActiveRooms.Set(float64(len(r.rooms)))
	return nil
}

func (r *RoomRepository) LeaveAll(conn domain.ConnectionID) []domain.SessionID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var left []domain.SessionID
	for session, members := range r.rooms {
		if _, ok := members[conn]; !ok {
			continue
		}
		delete(members, conn)
		left = append(left, session)
		if len(members) == 0 {
			delete(r.rooms, session)
		}
	}
	metrics.ActiveRooms.Set(float64(len(r.rooms)))
	return left
}

func (r *RoomRepository) Others(session domain.SessionID, conn domain.ConnectionID) ([]domain.ConnectionID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[session]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	others := make([]domain.ConnectionID, 0, len(members))
	for member := range members {
		if member != conn {
			others = append(others, member)
		}
	}
	return others, nil
}

func (r *RoomRepository) Close(session domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rooms, session)
	metrics.ActiveRooms.Set(float64(len(r.rooms)))
}

func (r *RoomRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
