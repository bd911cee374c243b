package sockets

import (
	"sync"

	"github.com/google/uuid"
)

type SocketPool struct {
	mutex   sync.Mutex
	sockets map[SocketID]Socket
}

func NewSocketPool() *SocketPool {
	return &SocketPool{
		sockets: make(map[SocketID]Socket),
	}
}

// AddSocket registers the socket under a fresh connection handle.
func (p *SocketPool) AddSocket(soc Socket) SocketID {
	id := SocketID(uuid.NewString())

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.sockets[id] = soc
	return id
}

func (p *SocketPool) GetSocket(id SocketID) Socket {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if soc, contains := p.sockets[id]; contains {
		return soc
	}
	return nil
}

func (p *SocketPool) CloseSocket(id SocketID) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if soc, contains := p.sockets[id]; contains {
		_ = soc.Close()
		delete(p.sockets, id)
	}
}

// ForEach calls fn for every registered socket. The pool lock is held for
// the duration so the iteration stays consistent with concurrent
// connect/disconnect events.
func (p *SocketPool) ForEach(fn func(id SocketID, soc Socket)) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for id, soc := range p.sockets {
		fn(id, soc)
	}
}

func (p *SocketPool) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.sockets)
}

func (p *SocketPool) Close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for id, soc := range p.sockets {
		_ = soc.Close()
		delete(p.sockets, id)
	}
}
