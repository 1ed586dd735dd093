// Package pkg provides shared utilities for the cannelloni streaming tool.
//
// This package contains common functionality used across the firmware,
// device-access, and streaming packages, including:
//
//   - Structured logging via Go's standard [log/slog] package, with an
//     optional syslog handler for non-interactive sessions
//   - Sentinel error types for device and session errors
//   - The TransferStatus enum and Completion record shared between the
//     device access layer and the streaming engine
//
// # Logging
//
// The logging subsystem wraps [log/slog] with component context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentStream, "session complete", "bytes", n)
//
// Diagnostics always go to stderr (or syslog); the data stream on stdout is
// never written to by the logger.
//
// # Errors
//
// Common errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrTransferFailed) {
//	    // Session-fatal transfer error
//	}
package pkg
