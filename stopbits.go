package webserial

import gobug "go.bug.st/serial"

// StopBits is the number of stop bits as the user states it (1 or 2).
type StopBits int

// Get maps the count onto the go.bug.st enum, whose zero value is one stop bit.
func (sb StopBits) Get() gobug.StopBits {
	if sb == StopBits2 {
		return gobug.TwoStopBits
	}
	return gobug.OneStopBit
}

const (
	// StopBits1 represents 1 stop bit
	StopBits1 StopBits = 1
	// StopBits2 represents 2 stop bits
	StopBits2 StopBits = 2
)
