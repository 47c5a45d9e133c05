package flash

import (
	"errors"
	"sync"

	"github.com/ardnew/dataflash/flash/chip"
	"github.com/ardnew/dataflash/flash/hal"
	"github.com/ardnew/dataflash/pkg"
)

// ErasedValue is the value read back from an erased byte. The driver stores
// data bit-inverted, so erased flash (0xFF on the wire) reads as zero.
const ErasedValue byte = ^chip.ErasedWire

// UniqueIDSize is the length of the identifier returned by ReadUniqueID.
const UniqueIDSize = 8

// Device presents an AT45DB DataFlash chip as linear byte-addressable
// storage.
type Device struct {
	bus hal.Bus
	cfg Config

	// Committed by a successful Initialize
	density     chip.Density
	geom        chip.Geometry
	initialized bool

	// Active write session, nil when idle
	session *Session

	closed bool

	// Synchronization
	mutex sync.Mutex
}

// New creates a driver for the chip on bus. Initialize must succeed before
// any other operation.
func New(bus hal.Bus, opts ...Option) *Device {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Device{
		bus: bus,
		cfg: cfg,
	}
}

// Config returns the driver configuration.
func (d *Device) Config() Config {
	return d.cfg
}

// Initialized reports whether a chip has been detected.
func (d *Device) Initialized() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.initialized
}

// Density returns the detected density.
func (d *Device) Density() (chip.Density, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if err := d.checkInit(); err != nil {
		return 0, err
	}
	return d.density, nil
}

// Geometry returns the committed geometry.
func (d *Device) Geometry() (chip.Geometry, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if err := d.checkInit(); err != nil {
		return chip.Geometry{}, err
	}
	return d.geom, nil
}

// Capacity returns the number of addressable bytes, or 0 before Initialize.
func (d *Device) Capacity() uint32 {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.geom.Capacity()
}

// Busy reports whether the chip is executing a program or erase.
func (d *Device) Busy() (bool, error) {
	status, err := d.ReadStatus()
	if err != nil {
		return false, err
	}
	return !status.Ready(), nil
}

// ReadStatus returns the raw status register.
func (d *Device) ReadStatus() (chip.Status, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if err := d.checkOpen(); err != nil {
		return 0, err
	}
	return d.readStatus()
}

// ReadUniqueID returns the identifier stored in the first bytes of the last
// page. The AT45DB family has no identification register, so the region is
// reserved by convention only; nothing prevents writing over it.
func (d *Device) ReadUniqueID() (id [UniqueIDSize]byte, err error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if err = d.checkIdle(); err != nil {
		return id, err
	}
	err = d.readArray(d.geom.UniqueIDAddress(), id[:])
	return id, err
}

// UniqueIDAddress returns the linear address of the identifier.
func (d *Device) UniqueIDAddress() (uint32, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if err := d.checkInit(); err != nil {
		return 0, err
	}
	return d.geom.UniqueIDAddress(), nil
}

// Sleep is a no-op; deep power-down is not supported on this chip family.
func (d *Device) Sleep() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if err := d.checkOpen(); err != nil {
		return err
	}
	pkg.LogDebug(pkg.ComponentFlash, "sleep not supported")
	return nil
}

// Wakeup is a no-op; see Sleep.
func (d *Device) Wakeup() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if err := d.checkOpen(); err != nil {
		return err
	}
	pkg.LogDebug(pkg.ComponentFlash, "wakeup not supported")
	return nil
}

// Close programs the page of an active write session, then releases the
// bus permanently. Subsequent operations return [pkg.ErrClosed].
func (d *Device) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.closed {
		return nil
	}

	var errs []error
	if s := d.session; s != nil {
		errs = append(errs, s.stop())
	}
	d.closed = true
	d.initialized = false
	errs = append(errs, d.bus.Close())

	pkg.LogDebug(pkg.ComponentFlash, "device closed")
	return errors.Join(errs...)
}

// checkOpen must be called with mutex held.
func (d *Device) checkOpen() error {
	if d.closed {
		return pkg.ErrClosed
	}
	return nil
}

// checkInit must be called with mutex held.
func (d *Device) checkInit() error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if !d.initialized {
		return pkg.ErrNotInitialized
	}
	return nil
}

// checkIdle must be called with mutex held.
func (d *Device) checkIdle() error {
	if err := d.checkInit(); err != nil {
		return err
	}
	if d.session != nil {
		return pkg.ErrSessionActive
	}
	return nil
}

// checkRange must be called with mutex held.
func (d *Device) checkRange(addr uint32, n int) error {
	limit := d.geom.Capacity()
	if uint64(addr)+uint64(n) > uint64(limit) || (n == 0 && addr >= limit) {
		return &pkg.AddressError{Addr: addr, Length: uint32(n), Limit: limit}
	}
	return nil
}
