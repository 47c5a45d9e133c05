package flash

import (
	"io"
	"math"

	"github.com/ardnew/dataflash/pkg"
)

// ReadByteAt reads the byte at addr.
func (d *Device) ReadByteAt(addr uint32) (byte, error) {
	var b [1]byte
	if err := d.ReadBytes(addr, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBytes fills buf with the bytes starting at addr.
func (d *Device) ReadBytes(addr uint32, buf []byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.checkIdle(); err != nil {
		return err
	}
	if len(buf) == 0 {
		return nil
	}
	if err := d.checkRange(addr, len(buf)); err != nil {
		return err
	}

	pkg.LogDebug(pkg.ComponentFlash, "read", "addr", pkg.Addr(addr), "len", len(buf))
	return d.readArray(addr, buf)
}

// WriteByteAt writes v at addr in its own write session.
func (d *Device) WriteByteAt(addr uint32, v byte) error {
	return d.WriteBytes(addr, []byte{v})
}

// WriteBytes writes p starting at addr in its own write session. Untouched
// bytes of every page it modifies are preserved; no erase is needed first.
func (d *Device) WriteBytes(addr uint32, p []byte) error {
	if len(p) == 0 {
		return nil
	}

	pkg.LogDebug(pkg.ComponentFlash, "write", "addr", pkg.Addr(addr), "data", pkg.Hex(p))

	d.mutex.Lock()
	err := d.checkIdle()
	if err == nil {
		err = d.checkRange(addr, len(p))
	}
	d.mutex.Unlock()
	if err != nil {
		return err
	}

	s, err := d.Begin(addr)
	if err != nil {
		return err
	}
	if err := s.Write(addr, p); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}

// ReadAt implements io.ReaderAt over the linear address space.
func (d *Device) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, pkg.ErrInvalidParameter
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.checkIdle(); err != nil {
		return 0, err
	}
	capacity := int64(d.geom.Capacity())
	if off >= capacity {
		return 0, io.EOF
	}

	n := min(int64(len(p)), capacity-off)
	if n > 0 {
		if err := d.readArray(uint32(off), p[:n]); err != nil {
			return 0, err
		}
	}
	if n < int64(len(p)) {
		return int(n), io.EOF
	}
	return int(n), nil
}

// WriteAt implements io.WriterAt over the linear address space. Writes that
// do not fit the chip fail without writing anything.
func (d *Device) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off > math.MaxUint32 {
		return 0, pkg.ErrInvalidParameter
	}
	if err := d.WriteBytes(uint32(off), p); err != nil {
		return 0, err
	}
	return len(p), nil
}
