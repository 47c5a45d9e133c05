package flash

import (
	"fmt"

	"github.com/ardnew/dataflash/flash/chip"
	"github.com/ardnew/dataflash/pkg"
)

// Sized erase requests.
const (
	Size4K  = 4 * 1024
	Size32K = 32 * 1024
	Size64K = 64 * 1024
)

// EraseBlock erases the 8-page block index. It waits for the chip to be
// ready before issuing the command but returns as soon as the command is
// sent; poll Busy to learn when the erase has finished. Any later command
// waits for it automatically.
func (d *Device) EraseBlock(index uint32) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.checkIdle(); err != nil {
		return err
	}
	if index >= d.geom.Blocks() {
		return fmt.Errorf("block %d of %d: %w", index, d.geom.Blocks(), pkg.ErrOutOfRange)
	}
	return d.eraseBlock(index)
}

// ErasePage erases a single page.
func (d *Device) ErasePage(page uint32) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.checkIdle(); err != nil {
		return err
	}
	if page >= d.geom.Pages {
		return fmt.Errorf("page %d of %d: %w", page, d.geom.Pages, pkg.ErrOutOfRange)
	}
	pkg.LogDebug(pkg.ComponentErase, "erase page", "page", page)
	return d.command(chip.OpPageErase, d.geom.Pack(page, 0), nil)
}

// ChipErase erases every block. It may take several seconds; like
// EraseBlock, the final erase is still running when it returns.
func (d *Device) ChipErase() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.checkIdle(); err != nil {
		return err
	}
	pkg.LogDebug(pkg.ComponentErase, "erase chip", "blocks", d.geom.Blocks())
	for block := range d.geom.Blocks() {
		if err := d.eraseBlock(block); err != nil {
			return err
		}
	}
	return nil
}

// EraseBlock4K erases at least 4 KiB starting at the page containing addr.
func (d *Device) EraseBlock4K(addr uint32) error {
	return d.EraseSized(addr, Size4K)
}

// EraseBlock32K erases at least 32 KiB starting at the page containing addr.
func (d *Device) EraseBlock32K(addr uint32) error {
	return d.EraseSized(addr, Size32K)
}

// EraseBlock64K erases at least 64 KiB starting at the page containing addr.
func (d *Device) EraseBlock64K(addr uint32) error {
	return d.EraseSized(addr, Size64K)
}

// EraseSized erases every block that intersects the pages covering size
// bytes from the page containing addr, plus Config.EraseMargin pages.
// The chip only erases whole 8-page blocks, so more than size bytes are
// usually erased, both before addr and after addr+size. Blocks past the end
// of the chip are skipped.
func (d *Device) EraseSized(addr, size uint32) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.checkIdle(); err != nil {
		return err
	}
	if err := d.checkRange(addr, 1); err != nil {
		return err
	}

	first, last, ok := d.eraseExtent(addr, size)
	if !ok {
		return nil
	}

	pkg.LogDebug(pkg.ComponentErase, "erase range",
		"addr", pkg.Addr(addr),
		"size", size,
		"firstBlock", first,
		"lastBlock", last)

	for block := first; block <= last; block++ {
		if err := d.eraseBlock(block); err != nil {
			return err
		}
	}
	return nil
}

// eraseExtent returns the inclusive block range erased for a sized request.
// Must be called with mutex held.
func (d *Device) eraseExtent(addr, size uint32) (first, last uint32, ok bool) {
	pageSize := uint64(d.geom.PageSize)
	pages := (uint64(size)+pageSize-1)/pageSize + uint64(d.cfg.EraseMargin)
	if pages == 0 {
		return 0, 0, false
	}

	start := uint64(d.geom.PageOf(addr))
	end := start + pages - 1
	lastBlock := uint64(d.geom.Blocks() - 1)

	first = uint32(start / chip.BlockPages)
	last = uint32(min(end/chip.BlockPages, lastBlock))
	return first, last, true
}

// eraseBlock must be called with mutex held.
func (d *Device) eraseBlock(block uint32) error {
	pkg.LogDebug(pkg.ComponentErase, "erase block", "block", block)
	return d.command(chip.OpBlockErase, d.geom.Pack(block*chip.BlockPages, 0), nil)
}
