package serial

import (
	"fmt"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// RealPort implements Port using a real serial port
type RealPort struct {
	port   serial.Port
	config PortConfig

	mu     sync.Mutex
	isOpen bool
}

// Open opens a serial port with the given configuration
func Open(config PortConfig) (*RealPort, error) {
	if config.DataBits == 0 {
		config.DataBits = 8
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}

	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		StopBits: convertStopBits(config.StopBits),
		Parity:   convertParity(config.Parity),
	}

	port, err := serial.Open(config.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", config.Device, err)
	}

	if err := port.SetReadTimeout(config.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &RealPort{
		port:   port,
		config: config,
		isOpen: true,
	}, nil
}

// Read reads up to len(buf) bytes, returning (0, nil) when the read
// timeout expires without data
func (p *RealPort) Read(buf []byte) (int, error) {
	if !p.IsOpen() {
		return 0, ErrClosed
	}
	return p.port.Read(buf)
}

// Write writes data to the serial port
func (p *RealPort) Write(data []byte) (int, error) {
	if !p.IsOpen() {
		return 0, ErrClosed
	}
	return p.port.Write(data)
}

// Close closes the serial port
func (p *RealPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isOpen {
		return nil
	}
	p.isOpen = false
	return p.port.Close()
}

// Flush waits until all output has been transmitted
func (p *RealPort) Flush() error {
	if !p.IsOpen() {
		return ErrClosed
	}
	return p.port.Drain()
}

// Device returns the device path
func (p *RealPort) Device() string {
	return p.config.Device
}

// IsOpen returns true if the port is currently open
func (p *RealPort) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isOpen
}

// PortInfo describes one connection available on the host
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// ListPorts returns a list of available serial ports
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// ListDetailed returns the available serial ports with USB details where the
// platform exposes them. Falls back to bare names when enumeration fails.
func ListDetailed() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		names, listErr := ListPorts()
		if listErr != nil {
			return nil, listErr
		}
		infos := make([]PortInfo, 0, len(names))
		for _, name := range names {
			infos = append(infos, PortInfo{Name: name})
		}
		return infos, nil
	}

	infos := make([]PortInfo, 0, len(details))
	for _, d := range details {
		infos = append(infos, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return infos, nil
}

func convertStopBits(bits int) serial.StopBits {
	switch bits {
	case 1:
		return serial.OneStopBit
	case 2:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

func convertParity(parity string) serial.Parity {
	switch parity {
	case "odd":
		return serial.OddParity
	case "even":
		return serial.EvenParity
	case "mark":
		return serial.MarkParity
	case "space":
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}
