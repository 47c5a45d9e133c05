package periph

import (
	"fmt"
	"io"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"

	"github.com/ardnew/dataflash/pkg"
)

const component = pkg.ComponentBus

// DefaultFrequency is the SPI clock used when Open is given zero.
const DefaultFrequency = 1 * physic.MegaHertz

// Conn is the part of [spi.Conn] the bus needs.
type Conn interface {
	Tx(w, r []byte) error
}

// Pin is the part of [gpio.PinOut] the bus needs to drive chip-select.
type Pin interface {
	Out(l gpio.Level) error
}

// Bus implements [hal.Bus] over a periph.io SPI connection with
// chip-select on a GPIO pin. The port's own chip-select cannot be used
// because it is released after every Tx.
//
// [hal.Bus]: github.com/ardnew/dataflash/flash/hal.Bus
type Bus struct {
	conn Conn
	cs   Pin
	port io.Closer

	closed bool
	mutex  sync.Mutex
}

// New creates a bus from an established connection and chip-select pin.
// port, if non-nil, is closed by Close. Chip-select is driven high.
func New(conn Conn, cs Pin, port io.Closer) (*Bus, error) {
	if conn == nil || cs == nil {
		return nil, pkg.ErrInvalidParameter
	}
	if err := cs.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("chip select: %w", err)
	}
	return &Bus{conn: conn, cs: cs, port: port}, nil
}

// Open opens the SPI port and chip-select pin by their registry names,
// e.g. "/dev/spidev0.0" or "SPI0.0" and "GPIO8". host.Init must have been
// called first.
func Open(portName, csName string, freq physic.Frequency) (*Bus, error) {
	if csName == "" {
		return nil, fmt.Errorf("chip select pin required: %w", pkg.ErrInvalidParameter)
	}
	if freq == 0 {
		freq = DefaultFrequency
	}

	cs := gpioreg.ByName(csName)
	if cs == nil {
		return nil, fmt.Errorf("gpio %q: %w", csName, pkg.ErrNoDevice)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("spi %q: %w", portName, err)
	}

	// chip-select is driven through cs for the whole command frame
	conn, err := port.Connect(freq, spi.Mode0|spi.NoCS, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("spi %q connect: %w", portName, err)
	}

	bus, err := New(conn, cs, port)
	if err != nil {
		port.Close()
		return nil, err
	}

	pkg.LogDebug(component, "spi opened",
		"port", portName,
		"cs", cs.Name(),
		"freq", freq.String())
	return bus, nil
}

// Select drives chip-select low.
func (b *Bus) Select() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return pkg.ErrClosed
	}
	return b.cs.Out(gpio.Low)
}

// Unselect drives chip-select high.
func (b *Bus) Unselect() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return pkg.ErrClosed
	}
	return b.cs.Out(gpio.High)
}

// Transfer exchanges one byte.
func (b *Bus) Transfer(w byte) (byte, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return 0, pkg.ErrClosed
	}
	var r [1]byte
	if err := b.conn.Tx([]byte{w}, r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

// Close deselects the chip and closes the port.
func (b *Bus) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	err := b.cs.Out(gpio.High)
	if b.port != nil {
		if cerr := b.port.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	pkg.LogDebug(component, "spi closed", "err", err)
	return err
}
