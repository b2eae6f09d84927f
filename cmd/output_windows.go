package cmd

const (
	// statusLineFormat is the format string used for status line printing. On
	// Windows, content is limited to 79 characters because carriage return
	// wipes don't work once the cursor has reached the last column.
	statusLineFormat = "\r%-79.79s"
	// statusLineClearFormat is the format string used to clear the status
	// line. It returns the cursor to the beginning of the line.
	statusLineClearFormat = statusLineFormat + "\r"
)
