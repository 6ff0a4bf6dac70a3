package webserial

import (
	"fmt"
	"sort"

	"go.bug.st/serial/enumerator"
)

var getPortsList = enumerator.GetDetailedPortsList

// PortInfo identifies a serial port and, for USB adapters, its vendor and
// product.
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"isUsb"`
	VendorID     string `json:"vendorId,omitempty"`
	ProductID    string `json:"productId,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
	Product      string `json:"product,omitempty"`
}

// Label is a short human description of the port.
func (p PortInfo) Label() string {
	if !p.IsUSB {
		return p.Name
	}
	if p.Product != "" {
		return fmt.Sprintf("%s (%s)", p.Name, p.Product)
	}
	return fmt.Sprintf("%s (VID %s, PID %s)", p.Name, orNA(p.VendorID), orNA(p.ProductID))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// ListKnownPorts returns the serial ports currently present, sorted by name.
func ListKnownPorts() ([]PortInfo, error) {
	details, err := getPortsList()
	if err != nil {
		return nil, fmt.Errorf("listing ports: %w", err)
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VendorID:     d.VID,
			ProductID:    d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	return ports, nil
}

// RequestPort resolves the port the user picked. The name must look like a
// serial device and be present in the current port list.
func RequestPort(name string) (PortInfo, error) {
	if err := checkPortName(name); err != nil {
		return PortInfo{}, err
	}
	ports, err := ListKnownPorts()
	if err != nil {
		return PortInfo{}, err
	}
	for _, p := range ports {
		if p.Name == name {
			return p, nil
		}
	}
	return PortInfo{}, fmt.Errorf("%w: %s", ErrPortNotFound, name)
}
