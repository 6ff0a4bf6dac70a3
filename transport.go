package webserial

import (
	gobug "go.bug.st/serial"
)

// Transport abstracts the subset of go.bug.st/serial.Port used by a Session.
// Close must unblock a Read in flight.
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Opener opens the named port with the given settings.
type Opener func(name string, cfg PortConfig) (Transport, error)

// bugstPort wraps the concrete serial.Port to satisfy Transport.
type bugstPort struct {
	gobug.Port
}

// allow tests to override external dependencies
var openPort = func(name string, mode *gobug.Mode) (gobug.Port, error) { return gobug.Open(name, mode) }

// OpenSerial is the default Opener backed by go.bug.st/serial.
func OpenSerial(name string, cfg PortConfig) (Transport, error) {
	p, err := openPort(name, cfg.mode())
	if err != nil {
		return nil, err
	}
	return &bugstPort{Port: p}, nil
}
