package webserial

import (
	gobug "go.bug.st/serial"
)

type Parity string

func (pa Parity) Get() gobug.Parity {
	switch pa {
	case ParityOdd:
		return gobug.OddParity
	case ParityEven:
		return gobug.EvenParity
	default:
		return gobug.NoParity
	}
}

const (
	// ParityNone represents no parity bit
	ParityNone Parity = "none"
	// ParityOdd represents odd parity bit
	ParityOdd Parity = "odd"
	// ParityEven represents even parity bit
	ParityEven Parity = "even"
)
