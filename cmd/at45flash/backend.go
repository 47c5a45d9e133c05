package main

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/ardnew/dataflash/flash"
	"github.com/ardnew/dataflash/flash/chip"
	"github.com/ardnew/dataflash/flash/hal"
	"github.com/ardnew/dataflash/flash/hal/periph"
	"github.com/ardnew/dataflash/flash/hal/sim"
	"github.com/ardnew/dataflash/pkg"
)

// Backends.
const (
	backendSim    = "sim"
	backendPeriph = "periph"
)

// session is an open, detected device and whatever must be released with it.
type session struct {
	dev     *flash.Device
	release []func() error
}

func (s *session) Close() error {
	errs := []error{s.dev.Close()}
	for _, fn := range s.release {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

// open connects to the configured backend and detects the chip.
func open(opts *options) (*session, error) {
	density, err := chip.ParseDensity(opts.density)
	if err != nil {
		return nil, err
	}
	driverOpts, err := opts.driverOptions()
	if err != nil {
		return nil, err
	}

	s := &session{}
	var bus hal.Bus
	switch opts.backend {
	case backendSim:
		bus, err = openSim(opts, density, s)
	case backendPeriph:
		bus, err = openPeriph(opts)
	default:
		err = fmt.Errorf("backend %q: %w", opts.backend, pkg.ErrNotSupported)
	}
	if err != nil {
		for _, fn := range s.release {
			fn()
		}
		return nil, err
	}

	s.dev = flash.New(bus, driverOpts...)
	if err := s.dev.Initialize(density); err != nil {
		s.Close()
		return nil, err
	}

	pkg.LogDebug(component, "device ready",
		"backend", opts.backend,
		"density", density.String())
	return s, nil
}

func openSim(opts *options, density chip.Density, s *session) (hal.Bus, error) {
	var simOpts []sim.Option
	if opts.image != "" {
		img, err := sim.NewFileImage(opts.image, density.Geometry().Capacity(), opts.readOnly)
		if err != nil {
			return nil, fmt.Errorf("image %s: %w", opts.image, err)
		}
		s.release = append(s.release, img.Close)
		simOpts = append(simOpts, sim.WithImage(img))
	}
	c, err := sim.New(density, simOpts...)
	if err != nil {
		return nil, err
	}
	if opts.image != "" {
		// the chip latches image errors instead of failing the bus, so a
		// rejected write only surfaces here
		s.release = append([]func() error{func() error {
			if err := c.Err(); err != nil {
				return fmt.Errorf("image %s: %w", opts.image, err)
			}
			return nil
		}}, s.release...)
	}
	return c, nil
}

func openPeriph(opts *options) (hal.Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	return periph.Open(opts.spiPort, opts.csPin, physic.Frequency(opts.hz)*physic.Hertz)
}
