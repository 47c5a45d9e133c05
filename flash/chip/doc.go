// Package chip describes the AT45DB DataFlash family: densities, page
// geometry, address translation, status register layout and the command
// set.
//
// Everything here is pure data and arithmetic. It is shared by the driver
// in [github.com/ardnew/dataflash/flash] and the simulated chip in
// [github.com/ardnew/dataflash/flash/hal/sim].
//
// # Geometry
//
// DataFlash pages are not a power of two. A linear address is split with
// the true page size:
//
//	g := chip.AT45DB041.Geometry() // 2048 pages of 264 bytes
//	pa := g.Translate(0x1000)      // page 15, offset 136
//
// On the wire the page and offset are packed as page<<PageBits | offset
// and sent as three bytes, most significant first.
//
// # Commands
//
// Buffer commands are looked up by operation and buffer rather than
// computed from a base opcode:
//
//	op, _ := chip.BufferOpcode(chip.BufferWrite, chip.Buffer2) // 0x87
package chip
