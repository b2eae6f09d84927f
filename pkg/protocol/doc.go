// Package protocol implements the flatsync wire format: a fixed-size
// envelope carrying a command kind and a bounded payload, the fixed-size
// inventory record encoding used by DIFF, paged multi-envelope bodies, and
// the transfer headers that delimit raw file content in batch transfers.
//
// Every envelope is exactly EnvelopeSize bytes:
//
//	offset 0  size 4     kind, big-endian uint32
//	offset 4  size 4     payload length, big-endian uint32
//	offset 8  size 4096  payload, zero padded
//
// There is no version field. Both ends must agree on this layout.
package protocol
