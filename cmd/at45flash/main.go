// Command at45flash inspects and programs AT45DB DataFlash chips, either
// over a Linux SPI controller or against a simulated chip stored in an
// image file.
//
//	at45flash --image flash.bin --density AT45DB041 write 0x1000 --hex aabbcc
//	at45flash --image flash.bin read 0x1000 16
//	at45flash --backend periph --spi /dev/spidev0.0 --cs GPIO8 detect
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ardnew/dataflash/flash"
	"github.com/ardnew/dataflash/flash/chip"
	"github.com/ardnew/dataflash/pkg"
)

const component = pkg.ComponentCLI

// options holds the persistent flags shared by every subcommand.
type options struct {
	backend string

	// sim
	image    string
	readOnly bool

	// periph
	spiPort string
	csPin   string
	hz      int64

	density     string
	busyTimeout time.Duration
	eraseMargin uint32
	buffer      int

	verbose bool
	json    bool
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "at45flash",
		Short:         "AT45DB DataFlash programmer",
		Long:          "Detect, read, write and erase AT45DB DataFlash chips over SPI or in a simulated image",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if opts.json {
				pkg.SetLogFormat(pkg.LogFormatJSON)
			}
			if opts.verbose {
				pkg.SetLogLevel(slog.LevelDebug)
			}
			return nil
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.backend, "backend", backendSim, "bus backend: sim|periph")
	pf.StringVar(&opts.image, "image", "", "sim: image file holding the array (empty = in memory)")
	pf.BoolVar(&opts.readOnly, "read-only", false, "sim: open the image read-only")
	pf.StringVar(&opts.spiPort, "spi", "", "periph: SPI port name (e.g. /dev/spidev0.0)")
	pf.StringVar(&opts.csPin, "cs", "", "periph: chip-select GPIO name (e.g. GPIO8)")
	pf.Int64Var(&opts.hz, "hz", 0, "periph: SPI clock in Hz (0 = 1MHz)")
	pf.StringVar(&opts.density, "density", chip.AT45DB041.String(), "expected part (AT45DB011..AT45DB641, or 011..641)")
	pf.DurationVar(&opts.busyTimeout, "busy-timeout", 5*time.Second, "maximum wait for the chip to become ready")
	pf.Uint32Var(&opts.eraseMargin, "erase-margin", 1, "extra pages added to sized erases")
	pf.IntVar(&opts.buffer, "buffer", 1, "SRAM buffer used for writes: 1|2")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&opts.json, "json", false, "output logs as JSON")

	root.AddCommand(
		newDetectCmd(opts),
		newStatusCmd(opts),
		newReadCmd(opts),
		newWriteCmd(opts),
		newEraseCmd(opts),
		newIDCmd(opts),
	)
	return root
}

// driverOptions converts flags into driver options.
func (o *options) driverOptions() ([]flash.Option, error) {
	var buf chip.Buffer
	switch o.buffer {
	case 1:
		buf = chip.Buffer1
	case 2:
		buf = chip.Buffer2
	default:
		return nil, fmt.Errorf("buffer %d: %w", o.buffer, pkg.ErrInvalidParameter)
	}
	return []flash.Option{
		flash.WithBusyTimeout(o.busyTimeout),
		flash.WithEraseMargin(o.eraseMargin),
		flash.WithBuffer(buf),
	}, nil
}
