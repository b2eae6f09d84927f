// Package server implements the flatsync server: an accept loop bounded by a
// connection ceiling and a per-connection session loop that answers LIST,
// DIFF, PULL, and LEAVE requests against a flat root directory.
package server
