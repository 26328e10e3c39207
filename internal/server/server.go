package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/chandrudp29/omniscidb/internal/logger"
)

// Config configures a Server.
type Config struct {
	// Port the server listens on, e.g. "6278".
	Port string
	// Terminator delimits requests on the read path. Default ';'.
	Terminator byte
}

func (c *Config) applyDefaults() {
	if c.Terminator == 0 {
		c.Terminator = ';'
	}
}

// Server accepts TCP connections and serves the line-framed request/response
// protocol of §6 over each one, dispatching decoded requests to a
// Dispatcher.
//
// Grounded on the teacher's internal/server.NFSServer: the same
// net.Listen/Accept/ctx-cancellation shutdown shape, generalized away from
// RPC fragment framing to the terminator-delimited framing this protocol
// uses instead.
type Server struct {
	config     Config
	listener   net.Listener
	dispatcher Dispatcher
	readyCh    chan struct{}
}

// New returns a Server that dispatches decoded requests to dispatcher.
func New(config Config, dispatcher Dispatcher) *Server {
	config.applyDefaults()
	return &Server{config: config, dispatcher: dispatcher, readyCh: make(chan struct{})}
}

// Addr returns the listener's address. Blocks until Serve has bound the
// listener. Exposed for tests that bind an ephemeral port ("0").
func (s *Server) Addr() net.Addr {
	<-s.readyCh
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled or Stop is called.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", s.config.Port))
	if err != nil {
		return fmt.Errorf("server: starting listener: %w", err)
	}
	s.listener = listener
	close(s.readyCh)
	logger.Info("server: listening on port %s", s.config.Port)

	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	for {
		tcpConn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				logger.Debug("server: error accepting connection: %v", err)
				continue
			}
		}

		c := &conn{server: s, conn: tcpConn}
		go c.serve(ctx)
	}
}

// Stop closes the listener, causing Serve's accept loop to return.
func (s *Server) Stop() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
