package proxy

import (
	"errors"
	"log/slog"
	"net"
)

// Server owns the data-plane listener and dispatches accepted connections
// to independent workers. Workers are fire-and-forget: nothing joins them,
// and a failure in one never reaches the accept loop or its siblings.
type Server struct {
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewServer creates a Server around a Pipeline.
func NewServer(p *Pipeline, logger *slog.Logger) *Server {
	return &Server{
		pipeline: p,
		logger:   logger.With("component", "server"),
	}
}

// Serve accepts connections on ln until the listener is closed, spawning a
// goroutine per connection with no cap and no join. It returns nil once the
// listener closes; transient accept errors are logged and the loop continues.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed", "err", err)
			continue
		}
		go s.handle(conn)
	}
}

// handle runs the pipeline for one connection and closes the client socket
// afterwards, whatever the pipeline's outcome.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	s.logger.Debug("accepted connection", "peer", conn.RemoteAddr().String())
	s.pipeline.Run(conn)
}
