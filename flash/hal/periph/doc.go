// Package periph connects the DataFlash driver to a Linux SPI controller
// (spidev, FTDI MPSSE and other periph.io drivers) using
// [periph.io/x/conn/v3/spi].
//
//	if _, err := host.Init(); err != nil {
//	    return err
//	}
//	bus, err := periph.Open("/dev/spidev0.0", "GPIO8", 8*physic.MegaHertz)
//	if err != nil {
//	    return err
//	}
//	dev := flash.New(bus)
//
// Chip-select must be a GPIO because a command spans many transfers.
package periph
