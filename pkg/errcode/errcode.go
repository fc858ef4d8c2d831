// Package errcode defines the taxonomy surface of business failures: typed
// errors expose a stable machine-readable code alongside their context.
package errcode

import "errors"

// Coder is implemented by errors that carry a stable taxonomy code.
type Coder interface {
	error
	Code() string
}

// Of extracts the taxonomy code from err, or "" when none is present.
func Of(err error) string {
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// Is reports whether err carries the given taxonomy code.
func Is(err error, code string) bool {
	return Of(err) == code
}
