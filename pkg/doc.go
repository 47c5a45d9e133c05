// Package pkg provides shared utilities for the dataflash driver.
//
// This package contains common functionality used across the driver, its
// bus adapters and the command line tool, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel and typed errors for detection, timeouts and addressing
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with driver-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentDetect, "chip detected", "density", "AT45DB041")
//
// [Addr] and [Hex] format chip addresses and payloads lazily, only when a
// record is actually written:
//
//	pkg.LogDebug(pkg.ComponentFlash, "write", "addr", pkg.Addr(a), "data", pkg.Hex(p))
//
// # Errors
//
// Common driver errors are defined as sentinel values. Typed errors such as
// [TimeoutError] and [AddressError] unwrap to their sentinel:
//
//	if errors.Is(err, pkg.ErrTimeout) {
//	    // chip never reported ready
//	}
package pkg
