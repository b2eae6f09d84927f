package server

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"golang.org/x/sync/semaphore"

	"github.com/flatsync/flatsync/pkg/configuration"
	"github.com/flatsync/flatsync/pkg/identifier"
	"github.com/flatsync/flatsync/pkg/logging"
	"github.com/flatsync/flatsync/pkg/must"
	"github.com/flatsync/flatsync/pkg/protocol"
)

const (
	// refusalTimeout bounds the time spent on a connection that exceeds the
	// connection ceiling.
	refusalTimeout = 5 * time.Second
	// maximumRefusalDrain bounds the number of bytes read and discarded from a
	// refused connection before it's closed.
	maximumRefusalDrain = 64 * 1024
	// maximumConcurrentRefusals bounds the number of refusals in progress.
	// Connections arriving beyond it are closed without a refusal.
	maximumConcurrentRefusals = 8
)

// Options are the server's tunable parameters.
type Options struct {
	// Root is the directory whose regular files are served.
	Root string
	// MaximumConnections is the number of connections served concurrently.
	MaximumConnections int
	// Overflow is the policy applied to connections beyond the ceiling.
	Overflow configuration.Overflow
}

// Server is a flatsync server. It is safe for concurrent usage, but Serve
// should only be invoked once.
type Server struct {
	// options are the server options.
	options Options
	// slots bounds the number of concurrently served connections.
	slots *semaphore.Weighted
	// refusals bounds the number of refused connections held open.
	refusals *semaphore.Weighted
	// logger is the server logger.
	logger *logging.Logger
	// workers tracks session and refusal goroutines.
	workers sync.WaitGroup
	// connectionsLock guards connections and closed.
	connectionsLock sync.Mutex
	// connections is the set of live connections, keyed by identifier.
	connections map[string]net.Conn
	// closed indicates that the server has shut down and that new connections
	// should be closed immediately.
	closed bool
}

// New creates a new server.
func New(options Options, logger *logging.Logger) (*Server, error) {
	// Validate options.
	if options.Root == "" {
		return nil, errors.New("empty root")
	} else if options.MaximumConnections < 1 {
		return nil, errors.Errorf("invalid connection ceiling (%d)", options.MaximumConnections)
	} else if !options.Overflow.Valid() {
		return nil, errors.Errorf("unknown overflow policy %q", options.Overflow)
	}

	// Create the server.
	return &Server{
		options:     options,
		slots:       semaphore.NewWeighted(int64(options.MaximumConnections)),
		refusals:    semaphore.NewWeighted(maximumConcurrentRefusals),
		logger:      logger,
		connections: make(map[string]net.Conn),
	}, nil
}

// track registers a live connection. It returns false if the server has
// already shut down.
func (s *Server) track(id string, connection net.Conn) bool {
	s.connectionsLock.Lock()
	defer s.connectionsLock.Unlock()
	if s.closed {
		return false
	}
	s.connections[id] = connection
	return true
}

// untrack removes a connection from the live set.
func (s *Server) untrack(id string) {
	s.connectionsLock.Lock()
	delete(s.connections, id)
	s.connectionsLock.Unlock()
}

// shutdown closes all live connections and prevents further tracking.
func (s *Server) shutdown() {
	s.connectionsLock.Lock()
	defer s.connectionsLock.Unlock()
	s.closed = true
	for _, connection := range s.connections {
		must.Close(connection, s.logger)
	}
}

// Serve accepts and serves connections from listener until ctx is cancelled
// or the listener fails. Cancellation closes the listener and every live
// connection. Serve waits for all connection goroutines to exit before
// returning. It returns nil if terminated by cancellation.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	// Wait for workers on the way out. This is registered first so that it
	// runs after cancellation.
	defer s.workers.Wait()

	// Tear everything down once the context is done.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		must.Close(listener, s.logger)
		s.shutdown()
	}()

	s.logger.Infof("Serving %s on %s (at most %d connections, overflow policy %s)",
		s.options.Root, listener.Addr(), s.options.MaximumConnections, s.options.Overflow,
	)

	// Accept and serve connections.
	wait := s.options.Overflow == configuration.OverflowWait
	for {
		// In wait mode, hold a slot before accepting so that pending
		// connections stay in the listen backlog.
		if wait {
			if err := s.slots.Acquire(ctx, 1); err != nil {
				return nil
			}
		}

		// Accept a connection.
		connection, err := listener.Accept()
		if err != nil {
			if wait {
				s.slots.Release(1)
			}
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "unable to accept connection")
		}

		// In reject mode, refuse the connection if there's no free slot. If
		// too many refusals are already in progress, just close it.
		if !wait && !s.slots.TryAcquire(1) {
			if !s.refusals.TryAcquire(1) {
				s.logger.Debugf("Closing connection from %s: too many refusals in progress", connection.RemoteAddr())
				must.Close(connection, s.logger)
				continue
			}
			s.workers.Add(1)
			go s.refuse(connection)
			continue
		}

		// Serve the connection.
		s.workers.Add(1)
		go s.serve(ctx, connection)
	}
}

// refuse sends a refusal to a connection and closes it. The caller must hold
// a refusal slot.
func (s *Server) refuse(connection net.Conn) {
	defer s.workers.Done()
	defer s.refusals.Release(1)
	defer must.Close(connection, s.logger)

	// Track the connection so that shutdown can interrupt the refusal.
	id, err := identifier.New(identifier.PrefixConnection)
	if err != nil {
		s.logger.Errorf("Unable to identify refused connection: %v", err)
		return
	}
	if !s.track(id, connection) {
		return
	}
	defer s.untrack(id)

	s.logger.Warnf("Refusing connection from %s: connection ceiling reached", connection.RemoteAddr())
	if err := connection.SetDeadline(time.Now().Add(refusalTimeout)); err != nil {
		s.logger.Debugf("Unable to set refusal deadline: %v", err)
	}
	if err := protocol.NewEncoder(connection).Encode(protocol.NewLeave(protocol.RefusalBusy)); err != nil {
		s.logger.Debugf("Unable to transmit refusal: %v", err)
		return
	}

	// Half-close and drain any request already in flight so that closing the
	// socket with unread data doesn't reset the connection and discard the
	// refusal before the peer reads it.
	if tcpConnection, ok := connection.(*net.TCPConn); ok {
		if err := tcpConnection.CloseWrite(); err != nil {
			s.logger.Debugf("Unable to half-close refused connection: %v", err)
			return
		}
		if _, err := io.CopyN(io.Discard, connection, maximumRefusalDrain); err != nil && err != io.EOF {
			s.logger.Debugf("Refused connection drain ended: %v", err)
		}
	}
}

// serve runs a session on a connection that holds a slot.
func (s *Server) serve(ctx context.Context, connection net.Conn) {
	defer s.workers.Done()
	defer s.slots.Release(1)
	defer must.Close(connection, s.logger)

	// Identify the connection.
	id, err := identifier.New(identifier.PrefixConnection)
	if err != nil {
		s.logger.Errorf("Unable to identify connection: %v", err)
		return
	}
	logger := s.logger.Sublogger(identifier.Short(id))

	// Track the connection so that shutdown can interrupt it.
	if !s.track(id, connection) {
		return
	}
	defer s.untrack(id)

	// Run the session.
	logger.Infof("Accepted connection from %s", connection.RemoteAddr())
	if err := newSession(s.options.Root, connection, logger).run(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Debugf("Session interrupted by shutdown: %v", err)
		} else {
			logger.Warnf("Session failed: %v", err)
		}
		return
	}
	logger.Info("Session ended")
}
