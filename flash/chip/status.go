package chip

import "fmt"

// Status is the value of the DataFlash status register.
type Status uint8

// Status register bits.
const (
	StatusReady      Status = 0x80 // RDY/BUSY: 1 = ready
	StatusCompare    Status = 0x40 // COMP: 1 = last compare mismatched
	StatusDensity    Status = 0x3C // density code, bits 2..5
	StatusProtect    Status = 0x02 // sector protection enabled
	StatusPowerOfTwo Status = 0x01 // binary (256/512/1024) page size configured
)

const statusDensityShift = 2

// ErasedWire is the raw value of an erased flash byte as seen on the bus.
const ErasedWire byte = 0xFF

// NewStatus builds a status value reporting density d.
func NewStatus(d Density, ready bool) Status {
	s := Status(d.Code()<<statusDensityShift) & StatusDensity
	if ready {
		s |= StatusReady
	}
	return s
}

// Ready reports whether the chip is ready to accept a command.
func (s Status) Ready() bool {
	return s&StatusReady != 0
}

// DensityCode returns the raw 4-bit density field.
func (s Status) DensityCode() uint8 {
	return uint8(s&StatusDensity) >> statusDensityShift
}

// Density decodes the density field.
func (s Status) Density() (Density, bool) {
	return DensityFromCode(s.DensityCode())
}

// String returns a compact description, e.g. "0x9C(ready AT45DB041)".
func (s Status) String() string {
	state := "busy"
	if s.Ready() {
		state = "ready"
	}
	d, ok := s.Density()
	name := fmt.Sprintf("code=%d", s.DensityCode())
	if ok {
		name = d.String()
	}
	return fmt.Sprintf("0x%02X(%s %s)", uint8(s), state, name)
}
