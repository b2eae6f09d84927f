package filesystem

import (
	"os"
)

// openFlags are the flags used to open files for reading. Symbolic link leaves
// are rejected by the regular file check in OpenRegular.
const openFlags = os.O_RDONLY
