// Package client implements the flatsync client. A Client owns exactly one
// connection and issues requests over it in strict alternation: every call
// transmits one request and consumes its complete response before returning.
package client

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/flatsync/flatsync/pkg/filesystem"
	"github.com/flatsync/flatsync/pkg/identifier"
	"github.com/flatsync/flatsync/pkg/inventory"
	"github.com/flatsync/flatsync/pkg/logging"
	"github.com/flatsync/flatsync/pkg/must"
	"github.com/flatsync/flatsync/pkg/protocol"
	"github.com/flatsync/flatsync/pkg/transfer"
)

var (
	// ErrSessionClosed indicates that the server ended the session with an
	// unsolicited LEAVE envelope. The wrapping error carries the server's
	// reason.
	ErrSessionClosed = errors.New("session closed by server")
	// ErrClientBroken indicates that a previous call failed in a way that left
	// the connection unusable.
	ErrClientBroken = errors.New("client connection broken")
	// ErrClientClosed indicates that the client has left or been closed.
	ErrClientClosed = errors.New("client closed")
)

// expired is a deadline in the past, used to interrupt blocked I/O.
var expired = time.Unix(1, 0)

// Client is a flatsync client. It is safe for concurrent usage, though calls
// are serialized.
type Client struct {
	// lock serializes calls and guards the remaining fields.
	lock sync.Mutex
	// connection is the server connection.
	connection net.Conn
	// encoder is the request encoder.
	encoder *protocol.Encoder
	// decoder is the response decoder.
	decoder *protocol.Decoder
	// logger is the client logger.
	logger *logging.Logger
	// broken is the failure that left the connection unusable, if any.
	broken error
	// closed indicates that the connection has been closed.
	closed bool
}

// Dial connects to a flatsync server.
func Dial(ctx context.Context, address string, logger *logging.Logger) (*Client, error) {
	dialer := &net.Dialer{}
	connection, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to %s", address)
	}
	return NewClient(connection, logger), nil
}

// NewClient creates a client on an existing connection, taking ownership of
// it.
func NewClient(connection net.Conn, logger *logging.Logger) *Client {
	if id, err := identifier.New(identifier.PrefixClient); err == nil {
		logger = logger.Sublogger(identifier.Short(id))
	}
	return &Client{
		connection: connection,
		encoder:    protocol.NewEncoder(connection),
		decoder:    protocol.NewDecoder(connection),
		logger:     logger,
	}
}

// begin acquires the call lock and verifies that the connection is usable. On
// success, the caller must invoke the returned function (with the call's
// error) once the call completes.
func (c *Client) begin(ctx context.Context) (func(error), error) {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return nil, ErrClientClosed
	} else if c.broken != nil {
		err := errors.Wrap(ErrClientBroken, c.broken.Error())
		c.lock.Unlock()
		return nil, err
	} else if err := ctx.Err(); err != nil {
		c.lock.Unlock()
		return nil, err
	}

	// Interrupt blocked I/O if the context is cancelled during the call.
	done := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			c.connection.SetDeadline(expired)
		case <-done:
		}
	}()

	return func(err error) {
		close(done)
		<-watcherDone
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err != nil && !recoverable(err) {
			c.broken = err
		}
		c.lock.Unlock()
	}, nil
}

// recoverable returns whether a call error leaves the stream aligned on an
// envelope boundary with no request in flight.
func recoverable(err error) bool {
	var transferErr *transfer.Error
	return errors.As(err, &transferErr) && !transferErr.Fatal
}

// receive decodes the first response envelope, which must be of the specified
// kind. An unsolicited LEAVE is reported as ErrSessionClosed.
func (c *Client) receive(kind protocol.Kind) (*protocol.Message, error) {
	response, err := c.decoder.Decode()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to receive %s response", kind)
	} else if response.Kind == protocol.KindLeave && kind != protocol.KindLeave {
		return nil, errors.Wrapf(ErrSessionClosed, "server said %q", string(response.Payload))
	} else if response.Kind != kind {
		return nil, errors.Wrapf(protocol.ErrProtocolViolation, "%s response to %s request", response.Kind, kind)
	}
	return response, nil
}

// List retrieves every file on the server into destination.
func (c *Client) List(ctx context.Context, destination string) (summary transfer.Summary, err error) {
	end, err := c.begin(ctx)
	if err != nil {
		return transfer.Summary{}, err
	}
	defer func() { end(err) }()

	if err = c.encoder.Encode(&protocol.Message{Kind: protocol.KindList}); err != nil {
		return transfer.Summary{}, errors.Wrap(err, "unable to send LIST request")
	}
	first, err := c.receive(protocol.KindList)
	if err != nil {
		return transfer.Summary{}, err
	}
	summary, err = transfer.ReceiveBatch(ctx, c.decoder, first, destination, c.logger)
	c.logger.Debugf("LIST received %d files (%d bytes)", len(summary.Files), summary.Bytes)
	return summary, err
}

// Diff scans root and returns the records of server files that are missing
// from root or that differ in content.
func (c *Client) Diff(ctx context.Context, root string) (delta []inventory.FileRecord, err error) {
	// Build the local inventory before touching the connection so that a scan
	// failure doesn't affect it.
	local, err := inventory.Build(ctx, root, c.logger)
	if err != nil {
		return nil, errors.Wrap(err, "unable to build local inventory")
	}

	end, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { end(err) }()
	return c.diff(local)
}

// diff performs a DIFF exchange. The caller must hold the call lock.
func (c *Client) diff(local inventory.Inventory) ([]inventory.FileRecord, error) {
	local = protocol.Representable(local, c.logger)
	if err := protocol.WriteRecordBody(c.encoder, protocol.KindDiff, local); err != nil {
		return nil, errors.Wrap(err, "unable to send DIFF request")
	}
	first, err := c.receive(protocol.KindDiff)
	if err != nil {
		return nil, err
	}
	delta, err := protocol.ReadRecordBody(c.decoder, first)
	if err != nil {
		return nil, errors.Wrap(err, "unable to receive DIFF response")
	}
	c.logger.Debugf("DIFF reported %d server files missing or stale locally", len(delta))
	return delta, nil
}

// Pull retrieves the server files with exactly the specified names into
// destination. Names are never interpreted as patterns. No request is sent if
// names is empty.
func (c *Client) Pull(ctx context.Context, names []string, destination string) (transfer.Summary, error) {
	for _, name := range names {
		if err := filesystem.ValidateName(name); err != nil {
			return transfer.Summary{}, errors.Wrap(err, "invalid filter")
		}
	}
	return c.pullFilter(ctx, names, destination)
}

// PullMatching retrieves the server files matching at least one of the
// specified doublestar patterns into destination. No request is sent if
// patterns is empty.
func (c *Client) PullMatching(ctx context.Context, patterns []string, destination string) (transfer.Summary, error) {
	filter := make([]string, len(patterns))
	for p, pattern := range patterns {
		if pattern == "" {
			return transfer.Summary{}, errors.New("invalid filter: empty pattern")
		} else if _, err := doublestar.Match(pattern, "a"); err != nil {
			return transfer.Summary{}, errors.Wrapf(err, "invalid filter: pattern %q", pattern)
		}
		filter[p] = protocol.PatternEntry(pattern)
	}
	return c.pullFilter(ctx, filter, destination)
}

// pullFilter validates the encoding of a filter and performs a PULL exchange.
func (c *Client) pullFilter(ctx context.Context, filter []string, destination string) (summary transfer.Summary, err error) {
	if len(filter) == 0 {
		return transfer.Summary{}, nil
	}

	// Validate the filter before touching the connection.
	if _, err := protocol.PageNames(filter); err != nil {
		return transfer.Summary{}, errors.Wrap(err, "invalid filter")
	}

	end, err := c.begin(ctx)
	if err != nil {
		return transfer.Summary{}, err
	}
	defer func() { end(err) }()
	return c.pull(ctx, filter, destination)
}

// pull performs a PULL exchange with an encoded filter. The caller must hold
// the call lock.
func (c *Client) pull(ctx context.Context, filter []string, destination string) (transfer.Summary, error) {
	if err := protocol.WriteNameBody(c.encoder, protocol.KindPull, filter); err != nil {
		return transfer.Summary{}, errors.Wrap(err, "unable to send PULL request")
	}
	first, err := c.receive(protocol.KindPull)
	if err != nil {
		return transfer.Summary{}, err
	}
	summary, err := transfer.ReceiveBatch(ctx, c.decoder, first, destination, c.logger)
	c.logger.Debugf("PULL received %d files (%d bytes)", len(summary.Files), summary.Bytes)
	return summary, err
}

// Sync brings root up to date with the server by computing the delta with a
// DIFF exchange and retrieving it with a PULL exchange. Both exchanges run
// under a single acquisition of the call lock.
func (c *Client) Sync(ctx context.Context, root string) (summary transfer.Summary, err error) {
	local, err := inventory.Build(ctx, root, c.logger)
	if err != nil {
		return transfer.Summary{}, errors.Wrap(err, "unable to build local inventory")
	}

	end, err := c.begin(ctx)
	if err != nil {
		return transfer.Summary{}, err
	}
	defer func() { end(err) }()

	// Compute the delta.
	delta, err := c.diff(local)
	if err != nil {
		return transfer.Summary{}, err
	}

	// Retrieve exactly the delta. A name that can't be requested literally
	// would be read as a pattern, so it's skipped.
	var names []string
	for _, record := range delta {
		if err := filesystem.ValidateName(record.Name); err != nil {
			c.logger.Warnf("Skipping delta entry: %v", err)
			continue
		}
		names = append(names, record.Name)
	}
	if len(names) == 0 {
		return transfer.Summary{}, nil
	}
	return c.pull(ctx, names, root)
}

// Leave ends the session and closes the connection. The connection is closed
// even if the exchange fails.
func (c *Client) Leave(ctx context.Context) (err error) {
	end, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		c.closed = true
		end(err)
		must.Close(c.connection, c.logger)
	}()

	if err = c.encoder.Encode(&protocol.Message{Kind: protocol.KindLeave}); err != nil {
		return errors.Wrap(err, "unable to send LEAVE request")
	}
	response, err := c.receive(protocol.KindLeave)
	if err != nil {
		return err
	} else if reason := string(response.Payload); reason != protocol.Acknowledgement {
		return errors.Wrapf(ErrSessionClosed, "server said %q", reason)
	}
	return nil
}

// Usable returns whether or not the client can still issue requests.
func (c *Client) Usable() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return !c.closed && c.broken == nil
}

// Close closes the connection without a LEAVE exchange. It's safe to call
// after Leave.
func (c *Client) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return errors.Wrap(c.connection.Close(), "unable to close connection")
}
