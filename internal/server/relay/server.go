package relay

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/akruglov/chatline/internal/common"
	"github.com/akruglov/chatline/internal/logging"
	"github.com/akruglov/chatline/internal/server/auth"
	"github.com/akruglov/chatline/internal/server/registry"
	"github.com/akruglov/chatline/internal/server/store"
)

const shutdownTimeout = 5 * time.Second

// Options tune per-connection resource limits.
type Options struct {
	// ReadLimit caps the size of one inbound frame in bytes.
	ReadLimit int64
	// SendBuffer is the per-peer outbound queue length.
	SendBuffer int
}

// Server is the connection supervisor: it upgrades incoming websocket
// connections, wires a registry entry plus handler goroutine for each, and
// tears everything down on shutdown. A handler failure never terminates the
// process; only stream closure ends that connection's goroutine.
type Server struct {
	addr   string
	opts   Options
	reg    *registry.Registry
	tokens *auth.Service
	store  store.Store
	bcast  *Broadcaster
	log    logging.Logger

	upgrader websocket.Upgrader
	wg       sync.WaitGroup
}

func NewServer(addr string, opts Options, reg *registry.Registry, tokens *auth.Service, st store.Store, log logging.Logger) *Server {
	return &Server{
		addr:   addr,
		opts:   opts,
		reg:    reg,
		tokens: tokens,
		store:  st,
		bcast:  NewBroadcaster(reg, tokens, log),
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Transport encryption and origin policy are left to a fronting
			// layer; the relay accepts any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run serves until ctx is cancelled, then shuts the listener down, closes
// every live peer and waits for the handler goroutines to drain.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.handleUpgrade(ctx, w, r)
	})

	httpServer := &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.log.Info(ctx, "server listening", "addr", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Warn(ctx, "http shutdown", "err", err)
	}

	s.closePeers()
	s.wg.Wait()
	return nil
}

func (s *Server) closePeers() {
	var peers []registry.Peer
	s.reg.ForEach(func(addr string, p registry.Peer, token string) {
		peers = append(peers, p)
	})
	for _, p := range peers {
		p.Close()
	}
}

func (s *Server) handleUpgrade(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn(ctx, "upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	addr := conn.RemoteAddr().String()
	connLog := s.log.With("conn_id", uuid.NewString(), "addr", addr)

	conn.SetReadLimit(s.opts.ReadLimit)

	peer := newPeer(conn, s.opts.SendBuffer, connLog)
	if err := s.reg.Insert(addr, peer); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			connLog.Warn(ctx, "duplicate remote address")
		}
		_ = conn.Close()
		return
	}

	connLog.Info(ctx, "stream opened", "clients", s.reg.Len())

	h := &handler{
		addr:   addr,
		conn:   conn,
		peer:   peer,
		reg:    s.reg,
		tokens: s.tokens,
		store:  s.store,
		bcast:  s.bcast,
		log:    connLog,
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		peer.writePump(ctx)
	}()
	go func() {
		defer s.wg.Done()
		h.run(ctx)
	}()
}
