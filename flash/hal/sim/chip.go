package sim

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/ardnew/dataflash/flash/chip"
	"github.com/ardnew/dataflash/pkg"
)

const component = pkg.ComponentSim

// Simulator errors.
var (
	// ErrNotSelected indicates a transfer while chip-select is deasserted.
	ErrNotSelected = errors.New("sim: transfer without chip select")

	// ErrAlreadySelected indicates Select without a preceding Unselect.
	ErrAlreadySelected = errors.New("sim: chip already selected")

	// ErrFault is returned by injected bus faults.
	ErrFault = errors.New("sim: injected bus fault")
)

// Stats counts the commands a Chip has executed.
type Stats struct {
	Commands       int // frames with an opcode
	StatusReads    int // status bytes returned
	Fetches        int // main memory page to buffer transfers
	Programs       int // buffer to main memory page programs
	PageErases     int
	BlockErases    int
	BufferWrites   int // bytes written into a buffer
	ArrayReads     int // bytes returned by continuous array reads
	BusyViolations int // commands issued while busy (ignored by the chip)
	Unknown        int // frames with an unsupported opcode
}

// Chip simulates an AT45DB DataFlash device on the far side of a [hal.Bus].
//
// Commands are decoded byte by byte between Select and Unselect. Buffer
// reads and writes take effect immediately; fetch, program and erase
// execute when chip-select is released, after which the chip reports busy
// for a configurable number of status polls.
//
// [hal.Bus]: github.com/ardnew/dataflash/flash/hal.Bus
type Chip struct {
	density chip.Density
	geom    chip.Geometry
	image   Image
	buffers [chip.NumBuffers][]byte

	// behavior
	busyPolls int
	stuck     bool
	absent    bool

	// bus state
	selected  bool
	closed    bool
	faultIn   int
	faultErr  error
	busyFor   int
	imageErr  error
	frame     []byte
	opcode    chip.Opcode
	cursor    uint32
	dummyLeft int

	stats Stats
	mutex sync.Mutex
}

// Option configures a Chip.
type Option func(*Chip)

// WithImage backs the main memory array with img instead of a fresh
// in-memory image. img must be at least the capacity of the density.
func WithImage(img Image) Option {
	return func(c *Chip) {
		c.image = img
	}
}

// WithBusyPolls sets how many status polls report busy after each fetch,
// program or erase.
func WithBusyPolls(n int) Option {
	return func(c *Chip) {
		if n >= 0 {
			c.busyPolls = n
		}
	}
}

// WithStuckBusy makes the chip report busy forever.
func WithStuckBusy() Option {
	return func(c *Chip) {
		c.stuck = true
	}
}

// WithAbsent makes the chip behave as if nothing is wired to the bus:
// every transfer reads back zero.
func WithAbsent() Option {
	return func(c *Chip) {
		c.absent = true
	}
}

// New creates a simulated chip of density d. The array starts erased
// unless an image is supplied with [WithImage].
func New(d chip.Density, opts ...Option) (*Chip, error) {
	if !d.Valid() {
		return nil, pkg.ErrInvalidDensity
	}

	c := &Chip{
		density:   d,
		geom:      d.Geometry(),
		busyPolls: 1,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.image == nil {
		c.image = NewMemoryImage(c.geom.Capacity())
	} else if c.image.Size() < c.geom.Capacity() {
		return nil, fmt.Errorf("image holds %d bytes, %v needs %d: %w",
			c.image.Size(), d, c.geom.Capacity(), pkg.ErrBufferTooSmall)
	}

	for i := range c.buffers {
		c.buffers[i] = bytes.Repeat([]byte{chip.ErasedWire}, int(c.geom.PageSize))
	}

	pkg.LogDebug(component, "chip created",
		"density", d.String(),
		"pages", c.geom.Pages,
		"pageSize", c.geom.PageSize)

	return c, nil
}

// Density returns the simulated density.
func (c *Chip) Density() chip.Density {
	return c.density
}

// Geometry returns the simulated geometry.
func (c *Chip) Geometry() chip.Geometry {
	return c.geom
}

// Image returns the backing array.
func (c *Chip) Image() Image {
	return c.image
}

// Stats returns a snapshot of the command counters.
func (c *Chip) Stats() Stats {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.stats
}

// ResetStats zeroes the command counters.
func (c *Chip) ResetStats() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.stats = Stats{}
}

// Selected reports whether chip-select is currently asserted.
func (c *Chip) Selected() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.selected
}

// Closed reports whether the bus has been released with Close.
func (c *Chip) Closed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.closed
}

// InjectFault makes the transfer after the next n successful transfers fail
// with err (or [ErrFault] if err is nil). The fault fires once.
func (c *Chip) InjectFault(n int, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err == nil {
		err = ErrFault
	}
	c.faultIn = n
	c.faultErr = err
}

// Buffer returns a copy of SRAM buffer b as stored on the wire.
func (c *Chip) Buffer(b chip.Buffer) []byte {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if b >= chip.NumBuffers {
		return nil
	}
	return bytes.Clone(c.buffers[b])
}

// Page returns a copy of main memory page n as stored on the wire.
func (c *Chip) Page(n uint32) ([]byte, error) {
	if n >= c.geom.Pages {
		return nil, pkg.ErrOutOfRange
	}
	p := make([]byte, c.geom.PageSize)
	if _, err := c.image.ReadAt(p, int64(n)*int64(c.geom.PageSize)); err != nil {
		return nil, err
	}
	return p, nil
}

// Err returns the first error raised by the backing image, if any.
func (c *Chip) Err() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.imageErr
}

// Select asserts chip-select.
func (c *Chip) Select() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return pkg.ErrClosed
	}
	if c.selected {
		return ErrAlreadySelected
	}
	c.selected = true
	c.frame = c.frame[:0]
	c.dummyLeft = 0
	return nil
}

// Unselect deasserts chip-select and starts any self-timed operation the
// frame requested.
func (c *Chip) Unselect() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.selected {
		return nil
	}
	c.selected = false

	if c.absent || len(c.frame) < 1+3 {
		return nil
	}

	op := chip.Opcode(c.frame[0])
	if op == chip.OpStatusRead {
		return nil
	}
	if c.busy() {
		// the command was already rejected when its opcode arrived
		return nil
	}

	pa := c.geom.Unpack(c.packed())
	started := true
	switch op {
	case chip.OpPageErase:
		c.stats.PageErases++
		c.erasePages(pa.Page, 1)
	case chip.OpBlockErase:
		c.stats.BlockErases++
		c.erasePages(pa.Page&^(chip.BlockPages-1), chip.BlockPages)
	default:
		bop, buf, ok := chip.DecodeBufferOpcode(op)
		if !ok {
			if op != chip.OpContinuousArrayRead {
				c.stats.Unknown++
			}
			started = false
			break
		}
		switch bop {
		case chip.PageToBuffer:
			c.stats.Fetches++
			c.fetch(pa.Page, buf)
		case chip.BufferToPageErase:
			c.stats.Programs++
			c.program(pa.Page, buf, true)
		case chip.BufferToPageNoErase:
			c.stats.Programs++
			c.program(pa.Page, buf, false)
		default:
			started = false
		}
	}

	if started {
		c.busyFor = c.busyPolls
	}
	return nil
}

// Transfer exchanges one byte with the simulated chip.
func (c *Chip) Transfer(w byte) (byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return 0, pkg.ErrClosed
	}
	if !c.selected {
		return 0, ErrNotSelected
	}
	if c.faultErr != nil {
		if c.faultIn == 0 {
			err := c.faultErr
			c.faultErr = nil
			return 0, err
		}
		c.faultIn--
	}
	if c.absent {
		return 0x00, nil
	}

	c.frame = append(c.frame, w)
	n := len(c.frame)

	if n == 1 {
		c.stats.Commands++
		c.opcode = chip.Opcode(w)
		if c.opcode != chip.OpStatusRead && c.busy() {
			c.stats.BusyViolations++
			pkg.LogWarn(component, "command while busy",
				"opcode", pkg.Hex{w})
		}
		return 0x00, nil
	}

	if c.opcode == chip.OpStatusRead {
		c.stats.StatusReads++
		return byte(c.status()), nil
	}

	if n <= 4 {
		if n == 4 {
			c.startData()
		}
		return 0x00, nil
	}

	return c.data(w), nil
}

// Close releases the bus and flushes the backing image. The image itself
// stays open and belongs to the caller.
func (c *Chip) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.selected = false
	return c.image.Sync()
}

// Status returns the current status register without counting a poll.
func (c *Chip) Status() chip.Status {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return chip.NewStatus(c.density, !c.stuck && c.busyFor == 0)
}

// status returns the status register and consumes one busy poll.
// Must be called with mutex held.
func (c *Chip) status() chip.Status {
	ready := !c.busy()
	if c.busyFor > 0 {
		c.busyFor--
	}
	return chip.NewStatus(c.density, ready)
}

// busy must be called with mutex held.
func (c *Chip) busy() bool {
	return c.stuck || c.busyFor > 0
}

// packed returns the 24-bit address of the current frame.
// Must be called with mutex held and at least four frame bytes.
func (c *Chip) packed() uint32 {
	return uint32(c.frame[1])<<16 | uint32(c.frame[2])<<8 | uint32(c.frame[3])
}

// startData sets the data cursor once the address is complete.
// Must be called with mutex held.
func (c *Chip) startData() {
	pa := c.geom.Unpack(c.packed())
	switch c.opcode {
	case chip.OpContinuousArrayRead:
		c.cursor = c.geom.Linear(pa) % c.geom.Capacity()
		c.dummyLeft = chip.ContinuousReadDummyBytes
	default:
		c.cursor = pa.Offset % c.geom.PageSize
		if bop, _, ok := chip.DecodeBufferOpcode(c.opcode); ok && bop == chip.BufferRead {
			c.dummyLeft = chip.BufferReadDummyBytes
		}
	}
}

// data handles one byte of the data phase.
// Must be called with mutex held.
func (c *Chip) data(w byte) byte {
	if c.dummyLeft > 0 {
		c.dummyLeft--
		return 0x00
	}
	if c.busy() {
		return 0x00
	}

	if c.opcode == chip.OpContinuousArrayRead {
		var b [1]byte
		c.readImage(b[:], int64(c.cursor))
		c.cursor = (c.cursor + 1) % c.geom.Capacity()
		c.stats.ArrayReads++
		return b[0]
	}

	bop, buf, ok := chip.DecodeBufferOpcode(c.opcode)
	if !ok {
		return 0x00
	}
	switch bop {
	case chip.BufferWrite:
		c.buffers[buf][c.cursor] = w
		c.cursor = (c.cursor + 1) % c.geom.PageSize
		c.stats.BufferWrites++
	case chip.BufferRead:
		r := c.buffers[buf][c.cursor]
		c.cursor = (c.cursor + 1) % c.geom.PageSize
		return r
	}
	return 0x00
}

// Must be called with mutex held.
func (c *Chip) fetch(page uint32, buf chip.Buffer) {
	if !c.pageValid(page) {
		return
	}
	c.readImage(c.buffers[buf], c.pageOffset(page))
}

// Must be called with mutex held.
func (c *Chip) program(page uint32, buf chip.Buffer, erase bool) {
	if !c.pageValid(page) {
		return
	}
	data := bytes.Clone(c.buffers[buf])
	if !erase {
		// without an erase cycle bits can only be cleared
		old := make([]byte, len(data))
		c.readImage(old, c.pageOffset(page))
		for i := range data {
			data[i] &= old[i]
		}
	}
	c.writeImage(data, c.pageOffset(page))
}

// Must be called with mutex held.
func (c *Chip) erasePages(first, n uint32) {
	erased := bytes.Repeat([]byte{chip.ErasedWire}, int(c.geom.PageSize))
	for page := first; page < first+n; page++ {
		if !c.pageValid(page) {
			return
		}
		c.writeImage(erased, c.pageOffset(page))
	}
}

func (c *Chip) pageValid(page uint32) bool {
	if page >= c.geom.Pages {
		c.stats.Unknown++
		pkg.LogWarn(component, "page beyond array", "page", page)
		return false
	}
	return true
}

func (c *Chip) pageOffset(page uint32) int64 {
	return int64(page) * int64(c.geom.PageSize)
}

// Must be called with mutex held.
func (c *Chip) readImage(p []byte, off int64) {
	if _, err := c.image.ReadAt(p, off); err != nil && c.imageErr == nil {
		c.imageErr = err
	}
}

// Must be called with mutex held.
func (c *Chip) writeImage(p []byte, off int64) {
	if _, err := c.image.WriteAt(p, off); err != nil && c.imageErr == nil {
		c.imageErr = err
	}
}
