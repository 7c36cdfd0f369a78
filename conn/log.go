package conn

import "log"

// logf centralizes the package's diagnostic output, using the
// standard log package directly with no structured/leveled wrapper.
func logf(format string, args ...any) {
	log.Printf(format, args...)
}
