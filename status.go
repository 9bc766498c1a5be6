package hive

import "fmt"

// StatusCode is the exhaustive result taxonomy for every fallible runtime
// operation: Ok, NoMem, Invalid, Timeout, Closed, WouldBlock, Io.
type StatusCode int

const (
	Ok StatusCode = iota
	NoMem
	Invalid
	Timeout
	Closed
	WouldBlock
	Io
)

func (c StatusCode) String() string {
	switch c {
	case Ok:
		return "Ok"
	case NoMem:
		return "NoMem"
	case Invalid:
		return "Invalid"
	case Timeout:
		return "Timeout"
	case Closed:
		return "Closed"
	case WouldBlock:
		return "WouldBlock"
	case Io:
		return "Io"
	default:
		return "Unknown"
	}
}

// Status carries a code and, for failures, a short static description
// suitable for logging. A status with code Ok carries no message.
type Status struct {
	Code StatusCode
	Msg  string
}

// Error implements the error interface so Status composes with ordinary
// Go error handling for callers who prefer that style.
func (s Status) Error() string {
	if s.Code == Ok {
		return "Ok"
	}
	if s.Msg == "" {
		return s.Code.String()
	}
	return fmt.Sprintf("%s: %s", s.Code, s.Msg)
}

// IsOk reports whether the status represents success.
func (s Status) IsOk() bool { return s.Code == Ok }

// OkStatus returns the canonical success status.
func OkStatus() Status { return Status{Code: Ok} }

func statusf(code StatusCode, format string, args ...interface{}) Status {
	return Status{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func invalidf(format string, args ...interface{}) Status {
	return statusf(Invalid, format, args...)
}

func noMemf(format string, args ...interface{}) Status {
	return statusf(NoMem, format, args...)
}
