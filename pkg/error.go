package pkg

import (
	"errors"
	"fmt"
	"time"
)

// DataFlash driver errors.
var (
	// ErrNotInitialized indicates an operation was issued before the chip
	// geometry was committed by a successful detection.
	ErrNotInitialized = errors.New("device not initialized")

	// ErrDetection indicates the chip was absent or reported an unexpected density.
	ErrDetection = errors.New("chip detection failed")

	// ErrNoDevice indicates the chip never answered a status read.
	ErrNoDevice = errors.New("device not present")

	// ErrTimeout indicates the chip did not report ready within the busy policy.
	ErrTimeout = errors.New("busy timeout")

	// ErrOutOfRange indicates a linear address range beyond the chip capacity.
	ErrOutOfRange = errors.New("address out of range")

	// ErrSessionActive indicates a continuous write session already owns the
	// chip buffer.
	ErrSessionActive = errors.New("write session active")

	// ErrNoSession indicates a session operation without an active session.
	ErrNoSession = errors.New("no write session")

	// ErrClosed indicates the bus has been released.
	ErrClosed = errors.New("device closed")

	// ErrInvalidDensity indicates a density code outside the supported family.
	ErrInvalidDensity = errors.New("invalid density")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")

	// ErrReadOnly indicates a write to read-only media.
	ErrReadOnly = errors.New("read only")
)

// DetectionError reports why chip detection gave up.
type DetectionError struct {
	// Expected is the density the caller asked for.
	Expected fmt.Stringer

	// Found is the last density decoded from the status register, or nil
	// if no valid density code was ever observed.
	Found fmt.Stringer

	// Present is false if every status read returned zero.
	Present bool

	// Attempts is the number of probes issued.
	Attempts int
}

func (e *DetectionError) Error() string {
	if !e.Present {
		return fmt.Sprintf("chip detection failed: no response after %d attempts (expected %v)",
			e.Attempts, e.Expected)
	}
	if e.Found == nil {
		return fmt.Sprintf("chip detection failed: invalid density code after %d attempts (expected %v)",
			e.Attempts, e.Expected)
	}
	return fmt.Sprintf("chip detection failed: expected %v, found %v after %d attempts",
		e.Expected, e.Found, e.Attempts)
}

// Unwrap returns ErrNoDevice for an absent chip and ErrDetection otherwise.
func (e *DetectionError) Unwrap() []error {
	if !e.Present {
		return []error{ErrDetection, ErrNoDevice}
	}
	return []error{ErrDetection}
}

// TimeoutError indicates the ready bit never came up while waiting for Op.
type TimeoutError struct {
	Op      string
	Polls   int
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: chip still busy after %d polls (%v)", e.Op, e.Polls, e.Elapsed)
}

// Unwrap returns ErrTimeout.
func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// AddressError indicates an access that does not fit the chip array.
type AddressError struct {
	Addr   uint32
	Length uint32
	Limit  uint32
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("address 0x%06X+%d out of range: capacity is 0x%06X bytes",
		e.Addr, e.Length, e.Limit)
}

// Unwrap returns ErrOutOfRange.
func (e *AddressError) Unwrap() error {
	return ErrOutOfRange
}

// IsTimeout returns true if err is or wraps a busy timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
