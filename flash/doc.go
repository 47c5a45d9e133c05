// Package flash drives an AT45DB DataFlash chip over a [hal.Bus] and
// presents it as linear byte-addressable storage.
//
// # Lifecycle
//
//	dev := flash.New(bus)
//	if err := dev.Initialize(chip.AT45DB041); err != nil {
//	    // *pkg.DetectionError when the chip is missing or the wrong part
//	}
//	defer dev.Close()
//
// Every operation other than Initialize, ReadStatus and Close returns
// [pkg.ErrNotInitialized] until detection has succeeded.
//
// # Writes
//
// The chip can only program whole pages, so writes go through the SRAM
// buffer: the target page is fetched, modified in the buffer and programmed
// back with an erase cycle. A [Session] combines many writes to the same
// page into one fetch and one program:
//
//	s, _ := dev.Begin(addr)
//	for i, b := range data {
//	    s.Put(addr+uint32(i), b)
//	}
//	s.Close()
//
// WriteBytes and WriteAt wrap a single session. No erase is needed before
// writing.
//
// # Data encoding
//
// Bytes are stored bit-inverted, so freshly erased memory reads back as
// [ErasedValue] (0x00) rather than 0xFF.
//
// # Busy handling
//
// Program and erase operations are self-timed by the chip. Every command
// first polls the status register until the chip is ready; the wait is
// bounded by Config.BusyPolls and Config.BusyTimeout and fails with a
// [*pkg.TimeoutError]. Erase functions return once the command has been
// accepted, without waiting for the erase to complete.
//
// [hal.Bus]: github.com/ardnew/dataflash/flash/hal.Bus
package flash
