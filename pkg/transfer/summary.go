package transfer

// Summary describes the outcome of a batch transfer.
type Summary struct {
	// Files are the names of files transferred, in batch order.
	Files []string
	// Bytes is the total number of content bytes transferred.
	Bytes uint64
	// Discarded are the names of received files whose content didn't match
	// the digest announced by the sender. They are not written.
	Discarded []string
}
