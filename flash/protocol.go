package flash

import (
	"fmt"
	"time"

	"github.com/ardnew/dataflash/flash/chip"
	"github.com/ardnew/dataflash/flash/hal"
	"github.com/ardnew/dataflash/pkg"
)

// dummy is clocked out while reading.
const dummy byte = 0x00

// transaction holds chip-select for the duration of fn. Unselect runs on
// every path; its error is reported only if fn succeeded.
func (d *Device) transaction(fn func() error) (err error) {
	if err = d.bus.Select(); err != nil {
		return fmt.Errorf("select: %w", err)
	}
	defer func() {
		if uerr := d.bus.Unselect(); uerr != nil && err == nil {
			err = fmt.Errorf("unselect: %w", uerr)
		}
	}()
	return fn()
}

// readStatus reads the status register. It is the only command issued
// without waiting for ready.
func (d *Device) readStatus() (chip.Status, error) {
	var status chip.Status
	err := d.transaction(func() error {
		if _, err := d.bus.Transfer(byte(chip.OpStatusRead)); err != nil {
			return err
		}
		b, err := d.bus.Transfer(dummy)
		status = chip.Status(b)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%v: %w", chip.OpStatusRead, err)
	}
	return status, nil
}

// pollReady reads the status register until the ready bit is set or the
// busy policy is exhausted. It returns the first ready status.
func (d *Device) pollReady(op string) (chip.Status, error) {
	start := time.Now()
	for polls := 1; ; polls++ {
		status, err := d.readStatus()
		if err != nil {
			return 0, err
		}
		if status.Ready() {
			return status, nil
		}

		elapsed := time.Since(start)
		if polls >= d.cfg.BusyPolls || (d.cfg.BusyTimeout > 0 && elapsed >= d.cfg.BusyTimeout) {
			pkg.LogWarn(pkg.ComponentBus, "busy timeout",
				"op", op,
				"polls", polls,
				"elapsed", elapsed)
			return 0, &pkg.TimeoutError{Op: op, Polls: polls, Elapsed: elapsed}
		}

		if d.cfg.PollInterval > 0 {
			time.Sleep(d.cfg.PollInterval)
		}
	}
}

// command waits until the chip is ready, then selects it and sends op, the
// packed address and whatever payload fn transfers.
func (d *Device) command(op chip.Opcode, packed uint32, fn func() error) error {
	if _, err := d.pollReady(op.String()); err != nil {
		return err
	}
	err := d.transaction(func() error {
		if _, err := d.bus.Transfer(byte(op)); err != nil {
			return err
		}
		addr := chip.AddressBytes(packed)
		if err := hal.Tx(d.bus, addr[:], nil); err != nil {
			return err
		}
		if fn != nil {
			return fn()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%v: %w", op, err)
	}
	return nil
}

// readArray reads len(p) bytes of main memory starting at addr.
func (d *Device) readArray(addr uint32, p []byte) error {
	pa := d.geom.Translate(addr)
	return d.command(chip.OpContinuousArrayRead, d.geom.Pack(pa.Page, pa.Offset), func() error {
		for range chip.ContinuousReadDummyBytes {
			if _, err := d.bus.Transfer(dummy); err != nil {
				return err
			}
		}
		for i := range p {
			b, err := d.bus.Transfer(dummy)
			if err != nil {
				return err
			}
			p[i] = ^b
		}
		return nil
	})
}

func (d *Device) bufferOpcode(op chip.BufferOp) chip.Opcode {
	code, _ := chip.BufferOpcode(op, d.cfg.Buffer)
	return code
}

// clearBuffer fills the session buffer with the erased pattern.
func (d *Device) clearBuffer() error {
	return d.command(d.bufferOpcode(chip.BufferWrite), d.geom.Pack(0, 0), func() error {
		for range d.geom.PageSize {
			if _, err := d.bus.Transfer(chip.ErasedWire); err != nil {
				return err
			}
		}
		return nil
	})
}

// fetchPage loads main memory page into the session buffer.
func (d *Device) fetchPage(page uint32) error {
	if err := d.clearBuffer(); err != nil {
		return err
	}
	pkg.LogDebug(pkg.ComponentSession, "fetch page", "page", page)
	return d.command(d.bufferOpcode(chip.PageToBuffer), d.geom.Pack(page, 0), nil)
}

// writeBuffer stores p at offset in the session buffer.
func (d *Device) writeBuffer(offset uint32, p []byte) error {
	return d.command(d.bufferOpcode(chip.BufferWrite), d.geom.Pack(0, offset), func() error {
		for _, b := range p {
			if _, err := d.bus.Transfer(^b); err != nil {
				return err
			}
		}
		return nil
	})
}

// programPage erases page and programs it from the session buffer.
func (d *Device) programPage(page uint32) error {
	pkg.LogDebug(pkg.ComponentSession, "program page", "page", page)
	return d.command(d.bufferOpcode(chip.BufferToPageErase), d.geom.Pack(page, 0), nil)
}
