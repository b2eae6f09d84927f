package cmd

import (
	"os"
	"syscall"
)

// TerminationSignals are those signals which flatsync considers to be
// requesting termination. Both SIGINT and SIGTERM are emulated on Windows.
var TerminationSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}
