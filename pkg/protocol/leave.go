package protocol

const (
	// Acknowledgement is the payload of the LEAVE response.
	Acknowledgement = "goodbye"
	// RefusalBusy is the payload of the unsolicited LEAVE envelope sent to a
	// connection that exceeds the server's connection ceiling.
	RefusalBusy = "server busy"
	// RefusalUnavailable is the payload of the unsolicited LEAVE envelope sent
	// in place of a response when the server can't scan its root.
	RefusalUnavailable = "inventory unavailable"
)

// NewLeave creates a LEAVE envelope carrying a short reason.
func NewLeave(reason string) *Message {
	return &Message{Kind: KindLeave, Payload: []byte(reason)}
}
