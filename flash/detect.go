package flash

import (
	"github.com/ardnew/dataflash/flash/chip"
	"github.com/ardnew/dataflash/pkg"
)

// Initialize probes the status register until it reports the expected
// density, then commits that density's geometry.
//
// A chip that never answers, or that keeps reporting another density,
// yields a [*pkg.DetectionError] and leaves the device uninitialized.
// Initialize may be called again to re-detect while no write session is
// active.
func (d *Device) Initialize(expected chip.Density) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.checkOpen(); err != nil {
		return err
	}
	if d.session != nil {
		return pkg.ErrSessionActive
	}
	if !expected.Valid() {
		return pkg.ErrInvalidDensity
	}

	d.initialized = false
	d.geom = chip.Geometry{}

	result := &pkg.DetectionError{Expected: expected}
	for attempt := 1; attempt <= d.cfg.DetectAttempts; attempt++ {
		result.Attempts = attempt

		status, err := d.readStatus()
		if err != nil {
			return err
		}
		if status == 0 {
			continue
		}
		result.Present = true

		if !status.Ready() {
			if status, err = d.pollReady("detect"); err != nil {
				return err
			}
		}

		density, ok := status.Density()
		pkg.LogDebug(pkg.ComponentDetect, "density decoded",
			"status", status.String(),
			"code", status.DensityCode())
		if !ok {
			continue
		}
		result.Found = density

		if density == expected {
			d.density = density
			d.geom = density.Geometry()
			d.initialized = true
			pkg.LogDebug(pkg.ComponentDetect, "chip detected",
				"density", density.String(),
				"pageBits", d.geom.PageBits,
				"pageSize", d.geom.PageSize,
				"pages", d.geom.Pages)
			return nil
		}
	}

	pkg.LogWarn(pkg.ComponentDetect, "chip not found",
		"expected", expected.String(),
		"attempts", result.Attempts,
		"present", result.Present)
	return result
}
