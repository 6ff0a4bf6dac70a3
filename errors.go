package webserial

import "errors"

var (
	ErrNotConnected     = errors.New("webserial: not connected")
	ErrAlreadyConnected = errors.New("webserial: session already connected")
	ErrEmptyInput       = errors.New("webserial: nothing to send")
	ErrNoData           = errors.New("webserial: no data to export")
	ErrInvalidConfig    = errors.New("webserial: invalid configuration")
	ErrInvalidPortName  = errors.New("webserial: invalid port name")
	ErrPortNotFound     = errors.New("webserial: port not found")
	ErrShortWrite       = errors.New("webserial: transport accepted zero bytes")
)

// ConnectionError reports a failure to open or configure the port.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Port == "" {
		return "webserial: connect: " + e.Err.Error()
	}
	return "webserial: connect " + e.Port + ": " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ReadError reports a transport read failure. It ends the connection it
// occurred on and is only ever delivered as a notification.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return "webserial: read: " + e.Err.Error() }

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError reports a failed send. The text is not retried.
type WriteError struct {
	Written int
	Err     error
}

func (e *WriteError) Error() string { return "webserial: write: " + e.Err.Error() }

func (e *WriteError) Unwrap() error { return e.Err }
