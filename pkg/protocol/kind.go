package protocol

import (
	"fmt"
)

// Kind identifies the command carried by an envelope. The set of kinds is
// closed.
type Kind uint32

const (
	// KindList requests the full contents of the peer's root.
	KindList Kind = iota
	// KindDiff exchanges inventories to determine the requester's delta.
	KindDiff
	// KindPull requests the files selected by a filter.
	KindPull
	// KindLeave ends a session. It is also used for acknowledgements and
	// refusals.
	KindLeave
)

// Valid returns whether or not the kind is one of the defined kinds.
func (k Kind) Valid() bool {
	return k <= KindLeave
}

// String provides a human-readable representation of a kind.
func (k Kind) String() string {
	switch k {
	case KindList:
		return "LIST"
	case KindDiff:
		return "DIFF"
	case KindPull:
		return "PULL"
	case KindLeave:
		return "LEAVE"
	default:
		return fmt.Sprintf("Kind(%d)", uint32(k))
	}
}

// ParseKind converts a command name (as typed by users) into a kind.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "LIST":
		return KindList, true
	case "DIFF":
		return KindDiff, true
	case "PULL":
		return KindPull, true
	case "LEAVE":
		return KindLeave, true
	default:
		return 0, false
	}
}
