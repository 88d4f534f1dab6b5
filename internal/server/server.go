package server

//
// server.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
	"gitlab.com/kabes/go-httpd/internal/aerr"
	"gitlab.com/kabes/go-httpd/internal/config"
	"gitlab.com/kabes/go-httpd/internal/router"
	"gitlab.com/kabes/go-httpd/internal/session"
	"gitlab.com/kabes/go-httpd/internal/web"
)

// Server accept connections and pass them to worker pool.
type Server struct {
	cfg      *config.ServerConf
	router   Router
	sessions web.SessionProvider

	listener net.Listener
	pool     *workerPool
	stopped  atomic.Bool
	done     chan struct{}

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func New(i do.Injector) (*Server, error) {
	cfg := do.MustInvoke[*config.ServerConf](i)
	rtr := do.MustInvoke[*router.Router](i)
	sessions := do.MustInvoke[*session.Manager](i)

	return NewServer(cfg, rtr, sessions)
}

// NewServer create server; sessions may be nil.
func NewServer(cfg *config.ServerConf, rtr Router, sessions web.SessionProvider) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, aerr.ApplyFor(aerr.ErrInvalidConf, err, "invalid server configuration")
	}

	return &Server{
		cfg:      cfg,
		router:   rtr,
		sessions: sessions,
		conns:    make(map[net.Conn]struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start listen on configured address and start accepting connections in background.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", s.cfg.Address)
	if err != nil {
		return aerr.Wrapf(err, "listen failed").WithMeta("address", s.cfg.Address)
	}

	s.Serve(ctx, listener)

	return nil
}

// Serve start accepting connections from listener in background.
func (s *Server) Serve(ctx context.Context, listener net.Listener) {
	logger := log.Ctx(ctx)

	s.listener = listener
	s.pool = newWorkerPool(ctx, s.cfg.Workers, s.handleConn)

	logger.Log().Msgf("Server: listen on address=%s workers=%d router=%s webroot=%q",
		listener.Addr(), s.cfg.Workers, s.cfg.RouterMode, s.cfg.WebRoot)

	go s.acceptLoop(ctx)
}

// Addr return address server listen on.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Shutdown stop accepting connections, wait for workers and force-close
// connections that are still open after timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	logger := log.Ctx(ctx)

	if s.listener == nil || !s.stopped.CompareAndSwap(false, true) {
		return nil
	}

	logger.Debug().Msgf("Server: stopping... queued=%d", s.pool.pending())

	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Warn().Err(err).Msgf("Server: close listener error=%q", err)
	}

	<-s.done

	for _, conn := range s.pool.close() {
		_ = conn.Close()
	}

	if !s.pool.wait(s.cfg.ShutdownTimeout) {
		closed := s.closeConnections()
		logger.Warn().Msgf("Server: workers not finished in time; force closed connections=%d", closed)

		if !s.pool.wait(s.cfg.ShutdownTimeout) {
			return aerr.New("workers not stopped").WithTag(aerr.InternalError)
		}
	}

	logger.Debug().Msg("Server: stopped")

	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer close(s.done)

	logger := log.Ctx(ctx)

	type deadliner interface {
		SetDeadline(t time.Time) error
	}

	dl, hasDeadline := s.listener.(deadliner)

	for !s.stopped.Load() {
		if ctx.Err() != nil {
			logger.Debug().Msg("Server: context cancelled; stop accepting")

			return
		}

		if hasDeadline {
			_ = dl.SetDeadline(time.Now().Add(s.cfg.AcceptTimeout))
		}

		conn, err := s.listener.Accept()
		if err != nil {
			var nerr net.Error

			switch {
			case errors.As(err, &nerr) && nerr.Timeout():
				continue
			case errors.Is(err, net.ErrClosed) || s.stopped.Load():
				return
			default:
				logger.Error().Err(err).Msgf("Server: accept error=%q", err)

				continue
			}
		}

		connectionsTotal.Inc()

		if !s.pool.submit(conn) {
			_ = conn.Close()

			return
		}
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	s.track(conn, true)
	defer s.track(conn, false)

	handler := connHandler{
		conn:        conn,
		router:      s.router,
		sessions:    s.sessions,
		readTimeout: s.cfg.ReadTimeout,
		logBody:     s.cfg.DebugFlags.HasFlag(config.DebugMsgBody),
		trace:       s.cfg.DebugFlags.HasFlag(config.DebugTrace),
	}

	handler.serve(ctx)
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *Server) closeConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.conns {
		_ = conn.Close()
	}

	return len(s.conns)
}
