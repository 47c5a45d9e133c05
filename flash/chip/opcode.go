package chip

import "fmt"

// Opcode is a DataFlash command byte.
type Opcode uint8

// Commands that do not involve an SRAM buffer.
const (
	OpStatusRead          Opcode = 0xD7 // Status Register Read
	OpContinuousArrayRead Opcode = 0xE8 // Continuous Array Read (legacy, 4 dummy bytes)
	OpPageErase           Opcode = 0x81 // Page Erase
	OpBlockErase          Opcode = 0x50 // Block Erase (8 pages)
)

// Buffer commands, listed here for decoding. Use [BufferOpcode] to select
// the opcode for an operation on a given buffer.
const (
	OpBuffer1Write         Opcode = 0x84
	OpBuffer2Write         Opcode = 0x87
	OpBuffer1Read          Opcode = 0xD4
	OpBuffer2Read          Opcode = 0xD6
	OpPageToBuffer1        Opcode = 0x53
	OpPageToBuffer2        Opcode = 0x55
	OpBuffer1ToPageErase   Opcode = 0x83
	OpBuffer2ToPageErase   Opcode = 0x86
	OpBuffer1ToPageNoErase Opcode = 0x88
	OpBuffer2ToPageNoErase Opcode = 0x89
)

// ContinuousReadDummyBytes is the number of don't-care bytes clocked after
// the address of a continuous array read before data appears.
const ContinuousReadDummyBytes = 4

// BufferReadDummyBytes is the number of don't-care bytes clocked after the
// address of a buffer read.
const BufferReadDummyBytes = 1

// String returns the command name, e.g. "status read".
func (o Opcode) String() string {
	switch o {
	case OpStatusRead:
		return "status read"
	case OpContinuousArrayRead:
		return "continuous array read"
	case OpPageErase:
		return "page erase"
	case OpBlockErase:
		return "block erase"
	}
	if op, buf, ok := DecodeBufferOpcode(o); ok {
		return op.String() + " " + buf.String()
	}
	return fmt.Sprintf("opcode 0x%02X", uint8(o))
}

// Buffer selects one of the chip's SRAM page buffers.
type Buffer uint8

// SRAM buffers.
const (
	Buffer1 Buffer = iota
	Buffer2
)

// NumBuffers is the number of SRAM buffers.
const NumBuffers = 2

// String returns a human-readable buffer name.
func (b Buffer) String() string {
	switch b {
	case Buffer1:
		return "buffer1"
	case Buffer2:
		return "buffer2"
	default:
		return "unknown"
	}
}

// BufferOp is an operation that involves an SRAM buffer.
type BufferOp uint8

// Buffer operations.
const (
	BufferWrite         BufferOp = iota // write bytes into the buffer
	BufferRead                          // read bytes out of the buffer
	PageToBuffer                        // fetch a main memory page into the buffer
	BufferToPageErase                   // erase a page and program it from the buffer
	BufferToPageNoErase                 // program a pre-erased page from the buffer
	numBufferOps
)

// String returns a human-readable operation name.
func (o BufferOp) String() string {
	switch o {
	case BufferWrite:
		return "buffer write"
	case BufferRead:
		return "buffer read"
	case PageToBuffer:
		return "page to buffer"
	case BufferToPageErase:
		return "buffer to page (erase)"
	case BufferToPageNoErase:
		return "buffer to page (no erase)"
	default:
		return "unknown"
	}
}

var bufferOpcodes = [numBufferOps][NumBuffers]Opcode{
	BufferWrite:         {OpBuffer1Write, OpBuffer2Write},
	BufferRead:          {OpBuffer1Read, OpBuffer2Read},
	PageToBuffer:        {OpPageToBuffer1, OpPageToBuffer2},
	BufferToPageErase:   {OpBuffer1ToPageErase, OpBuffer2ToPageErase},
	BufferToPageNoErase: {OpBuffer1ToPageNoErase, OpBuffer2ToPageNoErase},
}

// BufferOpcode returns the opcode for op on buffer buf.
// ok is false for an unknown operation or buffer.
func BufferOpcode(op BufferOp, buf Buffer) (code Opcode, ok bool) {
	if op >= numBufferOps || buf >= NumBuffers {
		return 0, false
	}
	return bufferOpcodes[op][buf], true
}

// DecodeBufferOpcode is the inverse of BufferOpcode.
func DecodeBufferOpcode(code Opcode) (op BufferOp, buf Buffer, ok bool) {
	for o := BufferOp(0); o < numBufferOps; o++ {
		for b := Buffer(0); b < NumBuffers; b++ {
			if bufferOpcodes[o][b] == code {
				return o, b, true
			}
		}
	}
	return 0, 0, false
}
