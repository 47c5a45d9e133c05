package chip

import (
	"strings"

	"github.com/ardnew/dataflash/pkg"
)

// Density identifies a member of the AT45DB family by capacity class.
// The numeric value is the canonical index used by the geometry table.
type Density uint8

// Supported densities.
const (
	AT45DB011 Density = iota // 1 Mbit, 512 x 264
	AT45DB021                // 2 Mbit, 1024 x 264
	AT45DB041                // 4 Mbit, 2048 x 264
	AT45DB081                // 8 Mbit, 4096 x 264
	AT45DB161                // 16 Mbit, 4096 x 528
	AT45DB321                // 32 Mbit, 8192 x 528
	AT45DB641                // 64 Mbit, 8192 x 1056
)

// NumDensities is the number of supported densities.
const NumDensities = 7

const densityPrefix = "AT45DB"

var densityNames = [NumDensities]string{
	"AT45DB011",
	"AT45DB021",
	"AT45DB041",
	"AT45DB081",
	"AT45DB161",
	"AT45DB321",
	"AT45DB641",
}

// String returns the part name, e.g. "AT45DB041".
func (d Density) String() string {
	if !d.Valid() {
		return "unknown"
	}
	return densityNames[d]
}

// Valid reports whether d is one of the supported densities.
func (d Density) Valid() bool {
	return d < NumDensities
}

// Code returns the 4-bit density code reported in status register bits 2..5.
func (d Density) Code() uint8 {
	return 3 + 2*uint8(d)
}

// Geometry returns the fixed geometry of density d.
// The zero Geometry is returned for an invalid density.
func (d Density) Geometry() Geometry {
	if !d.Valid() {
		return Geometry{}
	}
	return geometries[d]
}

// DensityFromCode converts a raw status density code to a Density.
// Only the odd codes 3..15 are valid.
func DensityFromCode(code uint8) (Density, bool) {
	if code < 3 || code > 15 || code&1 == 0 {
		return 0, false
	}
	return Density((code - 3) >> 1), true
}

// ParseDensity accepts a part name ("AT45DB041", "at45db041") or the bare
// density suffix ("041", "41").
func ParseDensity(s string) (Density, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, densityPrefix)
	for len(name) < 3 {
		name = "0" + name
	}
	for d, n := range densityNames {
		if n[len(densityPrefix):] == name {
			return Density(d), nil
		}
	}
	return 0, pkg.ErrInvalidDensity
}
