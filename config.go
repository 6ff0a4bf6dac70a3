package webserial

import (
	gobug "go.bug.st/serial"
)

// PortConfig holds the line settings used to open a serial port.
type PortConfig struct {
	BaudRate BaudRate `json:"baudRate" validate:"gt=0"`
	DataBits DataBits `json:"dataBits" validate:"oneof=7 8"`
	StopBits StopBits `json:"stopBits" validate:"oneof=1 2"`
	Parity   Parity   `json:"parity" validate:"oneof=none even odd"`
}

// DefaultPortConfig returns 115200 8N1.
func DefaultPortConfig() PortConfig {
	return PortConfig{
		BaudRate: Baud115200,
		DataBits: DataBits8,
		StopBits: StopBits1,
		Parity:   ParityNone,
	}
}

// withDefaults fills the zero values a form may leave out. The baud rate is
// never defaulted; a missing rate is a configuration error.
func (c PortConfig) withDefaults() PortConfig {
	if c.DataBits == 0 {
		c.DataBits = DataBits8
	}
	if c.StopBits == 0 {
		c.StopBits = StopBits1
	}
	// parity is left as-is unless empty; empty means none.
	if c.Parity == "" {
		c.Parity = ParityNone
	}
	return c
}

// Merge applies non-zero values from source into c.
func (c *PortConfig) Merge(source *PortConfig) {
	if source.BaudRate > 0 {
		c.BaudRate = source.BaudRate
	}
	if source.DataBits != 0 {
		c.DataBits = source.DataBits
	}
	if source.StopBits != 0 {
		c.StopBits = source.StopBits
	}
	if source.Parity != "" {
		c.Parity = source.Parity
	}
}

// mode builds the go.bug.st mode. Flow control is never enabled; go.bug.st
// leaves RTS/CTS off unless asked.
func (c PortConfig) mode() *gobug.Mode {
	return &gobug.Mode{
		BaudRate: c.BaudRate.Int(),
		DataBits: c.DataBits.Int(),
		Parity:   c.Parity.Get(),
		StopBits: c.StopBits.Get(),
	}
}
