// Package tcp serves ATM sessions over raw TCP connections.
package tcp

import (
	"context"
	"errors"
	"net"
	"sync"

	"atm-gateway/internal/core/ports"
	"atm-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Server accepts connections and runs one Session goroutine per connection.
// All sessions share one ledger.
type Server struct {
	ledger   ports.LedgerService
	catalogs ports.CatalogRepository
	log      zerolog.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// NewServer creates a server for the given ledger and catalog.
func NewServer(ledger ports.LedgerService, catalogs ports.CatalogRepository, log zerolog.Logger) *Server {
	return &Server{
		ledger:   ledger,
		catalogs: catalogs,
		log:      log,
		conns:    make(map[net.Conn]struct{}),
	}
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is cancelled. On shutdown it
// closes the listener and every live connection, then waits for the
// session goroutines to return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Msg("ATM server listening")

	stop := context.AfterFunc(ctx, func() {
		ln.Close()
		s.closeConns()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return err
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}

		if !s.track(conn) {
			conn.Close()
			continue
		}
		s.wg.Add(1)
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	id := uuid.NewString()
	log := s.log.With().Str("conn_id", id).Str("remote", conn.RemoteAddr().String()).Logger()
	log.Info().Msg("session started")

	err := NewSession(conn, id, s.ledger, s.catalogs, log).Serve(ctx)
	switch {
	case err == nil:
		log.Info().Msg("session closed by peer")
	case ctx.Err() != nil:
		log.Info().Msg("session closed by shutdown")
	case apperror.IsProtocolViolation(err):
		log.Warn().Err(err).Msg("protocol violation, dropping session")
	default:
		log.Warn().Err(err).Msg("session ended")
	}
}

// track registers conn unless shutdown already started.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
	s.conns = nil
}
