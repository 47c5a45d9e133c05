package flash

import (
	"time"

	"github.com/ardnew/dataflash/flash/chip"
)

// Config holds the driver configuration.
type Config struct {
	// DetectAttempts is the number of status probes Initialize issues
	// before giving up.
	DetectAttempts int

	// BusyPolls is the maximum number of status reads spent waiting for
	// the chip to report ready.
	BusyPolls int

	// BusyTimeout bounds the wall time spent waiting for ready (0 = no
	// time bound, BusyPolls still applies).
	BusyTimeout time.Duration

	// PollInterval is the pause between status reads while busy.
	PollInterval time.Duration

	// EraseMargin is the number of pages added to every sized erase
	// (EraseBlock4K/32K/64K, EraseSized) before rounding up to blocks.
	EraseMargin uint32

	// Buffer is the SRAM buffer used for write sessions.
	Buffer chip.Buffer
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		DetectAttempts: 10,
		BusyPolls:      1 << 20,
		BusyTimeout:    5 * time.Second,
		EraseMargin:    1,
		Buffer:         chip.Buffer1,
	}
}

// Option is a functional option for configuring the Device.
type Option func(*Config)

// WithDetectAttempts sets the number of detection probes.
//
// Example:
//
//	dev := flash.New(bus, flash.WithDetectAttempts(3))
func WithDetectAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.DetectAttempts = n
		}
	}
}

// WithBusyPolls sets the maximum number of status reads per wait.
//
// Example:
//
//	dev := flash.New(bus, flash.WithBusyPolls(1000))
func WithBusyPolls(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.BusyPolls = n
		}
	}
}

// WithBusyTimeout sets the wall-clock bound on each wait for ready.
// Zero disables the time bound.
//
// Example:
//
//	dev := flash.New(bus, flash.WithBusyTimeout(100*time.Millisecond))
func WithBusyTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.BusyTimeout = timeout
		}
	}
}

// WithPollInterval sets the pause between status reads.
//
// Example:
//
//	dev := flash.New(bus, flash.WithPollInterval(50*time.Microsecond))
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval >= 0 {
			c.PollInterval = interval
		}
	}
}

// WithEraseMargin sets the extra pages added to sized erases.
// Default is 1.
//
// Example:
//
//	dev := flash.New(bus, flash.WithEraseMargin(0))
func WithEraseMargin(pages uint32) Option {
	return func(c *Config) {
		c.EraseMargin = pages
	}
}

// WithBuffer selects the SRAM buffer used for write sessions.
//
// Example:
//
//	dev := flash.New(bus, flash.WithBuffer(chip.Buffer2))
func WithBuffer(buf chip.Buffer) Option {
	return func(c *Config) {
		if buf < chip.NumBuffers {
			c.Buffer = buf
		}
	}
}
