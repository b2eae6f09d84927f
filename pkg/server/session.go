package server

import (
	"context"
	"io"
	"net"

	"github.com/pkg/errors"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/flatsync/flatsync/pkg/inventory"
	"github.com/flatsync/flatsync/pkg/logging"
	"github.com/flatsync/flatsync/pkg/protocol"
	"github.com/flatsync/flatsync/pkg/transfer"
)

// errSessionRefused indicates that the session was terminated with an
// unsolicited LEAVE envelope.
var errSessionRefused = errors.New("session refused")

// session is the state for a single connection. Requests are handled strictly
// in order, one at a time.
type session struct {
	// root is the served directory.
	root string
	// encoder is the connection's envelope encoder.
	encoder *protocol.Encoder
	// decoder is the connection's envelope decoder.
	decoder *protocol.Decoder
	// logger is the connection logger.
	logger *logging.Logger
}

// newSession creates a new session on a connection.
func newSession(root string, connection net.Conn, logger *logging.Logger) *session {
	return &session{
		root:    root,
		encoder: protocol.NewEncoder(connection),
		decoder: protocol.NewDecoder(connection),
		logger:  logger,
	}
}

// run answers requests until the peer leaves or disconnects. It returns nil on
// a LEAVE request or a clean disconnect between requests.
func (s *session) run(ctx context.Context) error {
	for {
		// Receive the next request.
		request, err := s.decoder.Decode()
		if err == io.EOF {
			s.logger.Debug("Peer disconnected")
			return nil
		} else if err != nil {
			return errors.Wrap(err, "unable to receive request")
		}
		s.logger.Debugf("Received %s request", request.Kind)

		// Handle it.
		if done, err := s.handle(ctx, request); err != nil {
			return errors.Wrapf(err, "unable to handle %s request", request.Kind)
		} else if done {
			return nil
		}
	}
}

// handle dispatches a single request. It returns true if the request ended the
// session.
func (s *session) handle(ctx context.Context, request *protocol.Message) (bool, error) {
	switch request.Kind {
	case protocol.KindList:
		return false, s.list(ctx, request)
	case protocol.KindDiff:
		return false, s.diff(ctx, request)
	case protocol.KindPull:
		return false, s.pull(ctx, request)
	case protocol.KindLeave:
		return true, s.leave()
	default:
		return true, errors.Wrapf(protocol.ErrProtocolViolation, "unexpected %s request", request.Kind)
	}
}

// scan builds the local inventory. If the root can't be scanned, the peer is
// sent a refusal and errSessionRefused is returned, since no well-formed
// response is possible.
func (s *session) scan(ctx context.Context) (inventory.Inventory, error) {
	local, err := inventory.Build(ctx, s.root, s.logger)
	if err != nil {
		s.logger.Errorf("Unable to build inventory: %v", err)
		if err := s.encoder.Encode(protocol.NewLeave(protocol.RefusalUnavailable)); err != nil {
			s.logger.Debugf("Unable to transmit refusal: %v", err)
		}
		return nil, errors.Wrap(errSessionRefused, protocol.RefusalUnavailable)
	}
	return local, nil
}

// list streams every local file.
func (s *session) list(ctx context.Context, request *protocol.Message) error {
	if len(request.Payload) > 0 {
		s.logger.Debugf("Ignoring %d-byte LIST payload", len(request.Payload))
	}
	local, err := s.scan(ctx)
	if err != nil {
		return err
	}
	summary, err := transfer.Send(ctx, s.encoder, protocol.KindList, s.root, local, s.logger)
	if err != nil {
		return err
	}
	s.logger.Infof("Sent %d files (%d bytes) for LIST", len(summary.Files), summary.Bytes)
	return nil
}

// diff receives the peer's inventory and replies with the records that the
// peer is missing or holds in a stale version.
func (s *session) diff(ctx context.Context, request *protocol.Message) error {
	// Receive the peer's inventory in full before replying.
	remote, err := protocol.ReadRecordBody(s.decoder, request)
	if err != nil {
		return errors.Wrap(err, "unable to receive peer inventory")
	}

	// Compute and transmit the delta.
	local, err := s.scan(ctx)
	if err != nil {
		return err
	}
	delta := protocol.Representable(inventory.Missing(local, remote), s.logger)
	if err := protocol.WriteRecordBody(s.encoder, protocol.KindDiff, delta); err != nil {
		return errors.Wrap(err, "unable to transmit delta")
	}
	s.logger.Infof("Reported %d of %d files missing from peer", len(delta), len(local))
	return nil
}

// pull receives a filter and streams the selected local files.
func (s *session) pull(ctx context.Context, request *protocol.Message) error {
	filter, err := protocol.ReadNameBody(s.decoder, request)
	if err != nil {
		return errors.Wrap(err, "unable to receive filter")
	}
	local, err := s.scan(ctx)
	if err != nil {
		return err
	}
	selected := selectRecords(local, filter, s.logger)
	summary, err := transfer.Send(ctx, s.encoder, protocol.KindPull, s.root, selected, s.logger)
	if err != nil {
		return err
	}
	s.logger.Infof("Sent %d of %d requested files (%d bytes) for PULL", len(summary.Files), len(selected), summary.Bytes)
	return nil
}

// leave acknowledges a LEAVE request.
func (s *session) leave() error {
	if err := s.encoder.Encode(protocol.NewLeave(protocol.Acknowledgement)); err != nil {
		return errors.Wrap(err, "unable to acknowledge LEAVE")
	}
	s.logger.Debug("Peer left")
	return nil
}

// selectRecords returns the records named by at least one filter entry. Plain
// entries select the file with exactly that name. Pattern entries select every
// file that the doublestar pattern matches; invalid patterns select nothing.
// Records keep inventory order and are selected at most once.
func selectRecords(local inventory.Inventory, filter []string, logger *logging.Logger) []inventory.FileRecord {
	// Partition the filter.
	names := make(map[string]bool, len(filter))
	var patterns []string
	for _, entry := range filter {
		value, pattern := protocol.ParseFilterEntry(entry)
		if !pattern {
			names[value] = true
		} else if _, err := doublestar.Match(value, "a"); err != nil {
			logger.Debugf("Ignoring invalid filter pattern %q: %v", value, err)
		} else {
			patterns = append(patterns, value)
		}
	}

	// Select records.
	var selected []inventory.FileRecord
	for _, record := range local {
		if names[record.Name] {
			selected = append(selected, record)
			continue
		}
		for _, pattern := range patterns {
			if match, _ := doublestar.Match(pattern, record.Name); match {
				selected = append(selected, record)
				break
			}
		}
	}
	return selected
}
