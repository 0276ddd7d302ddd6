package ws

import (
	"context"
	"errors"
	"sync"
)

// RuntimeSession is one live connection, frame or client alike. Writes go
// through a buffered channel drained by a dedicated loop so naming events from
// other connections never block on a slow socket.
type RuntimeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	ws     *WebSocket
	id     string
	out    chan []byte
	once   sync.Once
}

func NewSession(parent context.Context, ws *WebSocket, id string) *RuntimeSession {
	ctx, cancel := context.WithCancel(parent)
	s := &RuntimeSession{
		ctx:    ctx,
		cancel: cancel,
		ws:     ws,
		id:     id,
		out:    make(chan []byte, 64),
	}
	go s.writeLoop()
	return s
}

func (s *RuntimeSession) ID() string { return s.id }

func (s *RuntimeSession) Send(ctx context.Context, data []byte) error {
	select {
	case s.out <- data:
		return nil
	case <-s.ctx.Done():
		return errors.New("session closed")
	}
}

func (s *RuntimeSession) Close() {
	// out is never closed: a concurrent Send racing a close would panic, and
	// cancel already stops the write loop.
	s.once.Do(func() {
		s.cancel()
		s.ws.Close()
	})
}

func (s *RuntimeSession) writeLoop() {
	defer s.Close()
	for {
		select {
		case <-s.ctx.Done():
			return
		case data := <-s.out:
			_ = s.ws.WriteMessage(data)
		}
	}
}
