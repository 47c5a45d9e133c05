// Package hal defines the Hardware Abstraction Layer interface between the
// DataFlash driver and the serial bus the chip is wired to.
//
// The HAL provides a platform-agnostic interface between the driver and the
// underlying SPI controller. Platform vendors implement this interface to
// run the driver on their hardware.
//
// # Design Principles
//
// The HAL is designed to be:
//
//   - Minimal: only full-duplex byte exchange and chip-select control
//   - Generic: no knowledge of DataFlash opcodes or geometry
//   - Scoped: the driver holds the bus only between Select and Unselect
//
// The driver implements all DataFlash protocol logic, leaving the HAL to
// handle only low-level bus interactions.
//
// # Implementations
//
//   - [github.com/ardnew/dataflash/flash/hal/sim]: simulated chip for tests
//     and host-side tooling
//   - [github.com/ardnew/dataflash/flash/hal/periph]: Linux and FTDI hosts
//     via periph.io
//   - [github.com/ardnew/dataflash/flash/hal/tinygo]: microcontrollers via
//     TinyGo
//
// # Example
//
//	type MyBus struct {
//	    // Platform-specific fields
//	}
//
//	func (b *MyBus) Select() error {
//	    // Drive chip-select low
//	    return nil
//	}
//
//	// ... implement Unselect, Transfer and Close
package hal
