// Package sim implements a simulated AT45DB DataFlash chip behind the
// [github.com/ardnew/dataflash/flash/hal.Bus] interface.
//
// The simulator is intended for testing and for host-side tooling without
// hardware. It decodes the real command bytes, so the driver exercises the
// same wire protocol it uses against a physical chip.
//
// # Model
//
//   - Status register: ready bit and density code of the simulated part
//   - Two SRAM buffers of one page each
//   - Main memory array stored in an [Image]
//   - Fetch, program and erase run when chip-select is released; the chip
//     then reports busy for [WithBusyPolls] status reads
//   - Commands issued while busy are ignored and counted in
//     [Stats].BusyViolations
//
// The array is stored as it appears on the wire. An erased byte is 0xFF.
//
// # Images
//
//   - [MemoryImage]: in-memory array
//   - [FileImage]: file-backed array that persists between runs
//
// # Usage
//
//	c, _ := sim.New(chip.AT45DB041)
//	dev := flash.New(c)
//	if err := dev.Initialize(chip.AT45DB041); err != nil {
//	    // ...
//	}
//
// # Fault Injection
//
// [WithAbsent] simulates an unpopulated footprint, [WithStuckBusy] a chip
// that never reports ready, and [Chip.InjectFault] fails a future transfer
// to exercise bus error paths.
package sim
