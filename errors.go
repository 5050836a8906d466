package ftp

import "fmt"

// Error is a type that allows for error constants below.
type Error string

// Error returns a string representation of the error.
func (e Error) Error() string { return string(e) }

const (
	// ErrNoConnection is returned when a command is issued on a control
	// channel that is down and has never completed a login.
	ErrNoConnection = Error("ftp: no connection established")

	// ErrMalformedReply is returned when the server sends a reply line that
	// cannot be framed (bad status code, missing multi-line terminator).
	ErrMalformedReply = Error("ftp: malformed reply")

	// ErrTruncatedStream is returned when the data connection reaches EOF
	// before the expected number of bytes arrived.
	ErrTruncatedStream = Error("ftp: data stream ended prematurely")

	// ErrDataConnClosed is returned when a data connection is used after its
	// transfer finished.
	ErrDataConnClosed = Error("ftp: data connection already closed")

	// ErrStaleDataConn is returned when the control connection was
	// re-established after the data connection was negotiated, so the data
	// connection belongs to a session that no longer exists.
	ErrStaleDataConn = Error("ftp: control connection restored during transfer setup")

	// ErrReconnectLimit is returned when the server keeps reporting itself
	// unavailable after every reconnect-and-relogin.
	ErrReconnectLimit = Error("ftp: reconnect limit reached")
)

// ReplyError is a failed command reply classified into an ErrorKind.
// It carries the full context of the command/reply exchange.
type ReplyError struct {
	// Kind is the failure category derived from Code
	Kind ErrorKind

	// Command is the FTP verb that was sent (e.g., "RETR")
	Command string

	// Code is the numeric FTP reply code (e.g., 550)
	Code int

	// Message is the reply text sent by the server
	Message string
}

// Error implements the error interface.
func (e *ReplyError) Error() string {
	return fmt.Sprintf("ftp: %s failed: %s (code %d, %s)", e.Command, e.Message, e.Code, e.Kind)
}

// Is reports whether target is the ErrorKind of this reply, so callers can
// write errors.Is(err, ftp.KindNotLoggedIn).
func (e *ReplyError) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// IsTemporary returns true if the error is a transient negative reply (4xx).
// This can be used to implement retry logic.
func (e *ReplyError) IsTemporary() bool {
	return e.Code >= 400 && e.Code < 500
}

// IsPermanent returns true if the error is a permanent negative reply (5xx).
func (e *ReplyError) IsPermanent() bool {
	return e.Code >= 500 && e.Code < 600
}
