// Package tinygo connects the DataFlash driver to a microcontroller SPI
// peripheral through the TinyGo driver interfaces.
//
//	machine.SPI0.Configure(machine.SPIConfig{Frequency: 8_000_000})
//	cs := machine.D10
//	cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
//	dev := flash.New(tinygo.New(&machine.SPI0, cs))
package tinygo

import (
	"tinygo.org/x/drivers"

	"github.com/ardnew/dataflash/pkg"
)

// Pin is a chip-select output, satisfied by machine.Pin.
type Pin interface {
	High()
	Low()
}

// Bus implements hal.Bus over a [drivers.SPI] with chip-select on a pin.
type Bus struct {
	spi    drivers.SPI
	cs     Pin
	closed bool
}

// New creates a bus and deselects the chip.
func New(spi drivers.SPI, cs Pin) *Bus {
	cs.High()
	return &Bus{spi: spi, cs: cs}
}

// Select drives chip-select low.
func (b *Bus) Select() error {
	if b.closed {
		return pkg.ErrClosed
	}
	b.cs.Low()
	return nil
}

// Unselect drives chip-select high.
func (b *Bus) Unselect() error {
	if b.closed {
		return pkg.ErrClosed
	}
	b.cs.High()
	return nil
}

// Transfer exchanges one byte.
func (b *Bus) Transfer(w byte) (byte, error) {
	if b.closed {
		return 0, pkg.ErrClosed
	}
	return b.spi.Transfer(w)
}

// Close deselects the chip. The SPI peripheral stays configured.
func (b *Bus) Close() error {
	if !b.closed {
		b.cs.High()
		b.closed = true
	}
	return nil
}
