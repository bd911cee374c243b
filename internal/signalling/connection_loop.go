package signalling

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Kartikjoshi26/WeCall/internal/api"
	"github.com/Kartikjoshi26/WeCall/internal/sockets"
)

// ConnectionLoop keeps one client connection alive with periodic pings.
// Dead connections surface as write errors here and as read errors in the
// handler loop, whichever fires first.
type ConnectionLoop struct {
	socket     sockets.Socket
	socketID   sockets.SocketID
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	pingTicker *time.Ticker
}

func NewConnectionLoop(socket sockets.Socket, socketID sockets.SocketID, pingInterval time.Duration) *ConnectionLoop {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ConnectionLoop{
		socket:     socket,
		socketID:   socketID,
		ctx:        ctx,
		cancel:     cancel,
		pingTicker: time.NewTicker(pingInterval),
	}
}

func (l *ConnectionLoop) Start() {
	l.wg.Add(1)
	go l.pingLoop()
}

func (l *ConnectionLoop) Stop() {
	l.cancel()
	l.pingTicker.Stop()
	l.wg.Wait()
}

func (l *ConnectionLoop) pingLoop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.pingTicker.C:
			if err := l.socket.WriteJSON(api.Message{
				Event: api.EventPing,
				Ping:  &api.PingMessage{Timestamp: time.Now().Unix()},
			}); err != nil {
				slog.Debug("failed to send ping", "connectionID", l.socketID, "error", err)
				return
			}
		case <-l.ctx.Done():
			return
		}
	}
}
