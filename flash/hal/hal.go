package hal

// Bus defines the Hardware Abstraction Layer interface for a DataFlash chip
// attached to a serial peripheral bus.
//
// The driver brackets every command with Select and Unselect and clocks
// each byte through Transfer. Implementations own the chip-select line and
// any bus arbitration needed when other peripherals share the bus; Select
// should not return until the bus is held exclusively.
type Bus interface {
	// Select asserts chip-select and takes ownership of the bus.
	Select() error

	// Unselect deasserts chip-select and releases the bus.
	// Called on every exit path of a command, including after errors.
	Unselect() error

	// Transfer exchanges one byte full-duplex: w is shifted out while the
	// returned byte is shifted in.
	Transfer(w byte) (byte, error)

	// Close releases the bus permanently.
	Close() error
}

// Tx clocks every byte of w through bus and stores the bytes received in r.
// r may be nil to discard input; otherwise it must be at least len(w).
func Tx(bus Bus, w, r []byte) error {
	for i, b := range w {
		in, err := bus.Transfer(b)
		if err != nil {
			return err
		}
		if r != nil {
			r[i] = in
		}
	}
	return nil
}
