package periph

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"

	"github.com/ardnew/dataflash/flash"
	"github.com/ardnew/dataflash/flash/chip"
	"github.com/ardnew/dataflash/flash/hal/sim"
	"github.com/ardnew/dataflash/pkg"
)

// wire routes SPI bytes and chip-select edges to a simulated chip, standing
// in for a real controller.
type wire struct {
	chip   *sim.Chip
	levels []gpio.Level
	txErr  error
	closed bool
}

func (w *wire) Tx(out, in []byte) error {
	if w.txErr != nil {
		return w.txErr
	}
	for i, b := range out {
		r, err := w.chip.Transfer(b)
		if err != nil {
			return err
		}
		in[i] = r
	}
	return nil
}

func (w *wire) Out(l gpio.Level) error {
	w.levels = append(w.levels, l)
	if l == gpio.Low {
		return w.chip.Select()
	}
	return w.chip.Unselect()
}

func (w *wire) Close() error {
	w.closed = true
	return nil
}

func newWire(t *testing.T, d chip.Density) *wire {
	t.Helper()
	c, err := sim.New(d)
	require.NoError(t, err)
	return &wire{chip: c}
}

func TestNew(t *testing.T) {
	w := newWire(t, chip.AT45DB011)

	_, err := New(nil, w, nil)
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)

	b, err := New(w, w, w)
	require.NoError(t, err)
	assert.Equal(t, []gpio.Level{gpio.High}, w.levels)

	require.NoError(t, b.Close())
	assert.True(t, w.closed)
	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.Select(), pkg.ErrClosed)
	_, err = b.Transfer(0)
	assert.ErrorIs(t, err, pkg.ErrClosed)
}

func TestOpenRequiresChipSelect(t *testing.T) {
	_, err := Open("/dev/spidev0.0", "", 0)
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
}

// regPort is a registered SPI port whose connections go to a wire.
type regPort struct {
	w     *wire
	mode  spi.Mode
	bits  int
	freq  physic.Frequency
	conns int
}

func (p *regPort) String() string { return regPortName }

func (p *regPort) Close() error { return p.w.Close() }

func (p *regPort) LimitSpeed(physic.Frequency) error { return nil }

func (p *regPort) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	p.conns++
	p.freq, p.mode, p.bits = f, mode, bits
	return regConn{w: p.w}, nil
}

// regConn satisfies spi.Conn; only Tx is used by the bus.
type regConn struct {
	spi.Conn
	w *wire
}

func (c regConn) Tx(w, r []byte) error { return c.w.Tx(w, r) }

// regPin is a named chip-select pin driving the current port's wire.
type regPin struct {
	gpio.PinIO
}

func (regPin) Name() string { return regPinName }

func (regPin) Out(l gpio.Level) error { return regCur.w.Out(l) }

const (
	regPortName = "DFTEST"
	regPinName  = "DFTEST_CS"
)

var (
	regOnce sync.Once
	regErr  error
	regCur  *regPort
)

// registerPort installs a port and pin in the periph registries backed by a
// fresh wire, replacing the wire of any earlier call.
func registerPort(t *testing.T, d chip.Density) *regPort {
	t.Helper()
	regCur = &regPort{w: newWire(t, d)}
	regOnce.Do(func() {
		regErr = errors.Join(
			spireg.Register(regPortName, nil, -1, func() (spi.PortCloser, error) {
				return regCur, nil
			}),
			gpioreg.Register(regPin{PinIO: gpio.INVALID}),
		)
	})
	require.NoError(t, regErr)
	return regCur
}

func TestOpenDrivesChipSelectItself(t *testing.T) {
	p := registerPort(t, chip.AT45DB041)

	b, err := Open(regPortName, regPinName, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, p.conns)
	assert.Equal(t, spi.Mode0|spi.NoCS, p.mode)
	assert.Equal(t, 8, p.bits)
	assert.Equal(t, DefaultFrequency, p.freq)

	require.NoError(t, b.Close())
	assert.True(t, p.w.closed)
}

func TestStatusFrame(t *testing.T) {
	w := newWire(t, chip.AT45DB161)
	b, err := New(w, w, nil)
	require.NoError(t, err)

	require.NoError(t, b.Select())
	_, err = b.Transfer(byte(chip.OpStatusRead))
	require.NoError(t, err)
	r, err := b.Transfer(0)
	require.NoError(t, err)
	require.NoError(t, b.Unselect())

	assert.Equal(t, chip.NewStatus(chip.AT45DB161, true), chip.Status(r))
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low, gpio.High}, w.levels)
}

func TestTransferError(t *testing.T) {
	w := newWire(t, chip.AT45DB011)
	b, err := New(w, w, nil)
	require.NoError(t, err)

	w.txErr = errors.New("spi: timeout")
	require.NoError(t, b.Select())
	_, err = b.Transfer(0)
	assert.EqualError(t, err, "spi: timeout")
	require.NoError(t, b.Unselect())
}

func TestDriverOverBus(t *testing.T) {
	w := newWire(t, chip.AT45DB041)
	b, err := New(w, w, w)
	require.NoError(t, err)

	dev := flash.New(b)
	require.NoError(t, dev.Initialize(chip.AT45DB041))

	data := []byte("periph")
	require.NoError(t, dev.WriteBytes(263, data))

	got := make([]byte, len(data))
	require.NoError(t, dev.ReadBytes(263, got))
	assert.Equal(t, data, got)

	require.NoError(t, dev.Close())
	assert.True(t, w.closed)
	assert.Equal(t, gpio.High, w.levels[len(w.levels)-1])
	assert.False(t, w.chip.Selected())
}
