// Package relay contains the connection/session core: the supervisor that
// accepts websocket connections, the per-connection handler running the
// protocol state machine, and the broadcast engine fanning accepted messages
// out to every other authenticated session.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akruglov/chatline/internal/logging"
)

const writeWait = 10 * time.Second

// Peer is the outbound handle of one connection. Frames are queued on a
// buffered channel and written by a single pump goroutine, so deliveries to
// one connection can never block deliveries to another. A full queue makes
// Send fail best-effort; failed sends are not retried.
type Peer struct {
	conn *websocket.Conn
	send chan []byte
	log  logging.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func newPeer(conn *websocket.Conn, buffer int, log logging.Logger) *Peer {
	return &Peer{
		conn: conn,
		send: make(chan []byte, buffer),
		log:  log,
		done: make(chan struct{}),
	}
}

// Send queues one frame for delivery. It never blocks: it reports false when
// the peer is closed or its queue is full.
func (p *Peer) Send(frame []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}

	select {
	case p.send <- frame:
		return true
	default:
		return false
	}
}

// Close stops the write pump and closes the underlying connection. Safe to
// call more than once.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

// writePump owns all writes to the connection. It runs until Close is called
// or a write fails.
func (p *Peer) writePump(ctx context.Context) {
	defer func() {
		_ = p.conn.Close()
	}()

	for {
		select {
		case <-p.done:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = p.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-p.send:
			if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				p.log.Warn(ctx, "set write deadline failed", "err", err)
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !isClosedConnError(err) {
					p.log.Warn(ctx, "write failed", "err", err)
				}
				return
			}
		}
	}
}
