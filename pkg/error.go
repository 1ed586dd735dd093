package pkg

import "errors"

// Device and session errors.
var (
	// ErrTimeout indicates a transfer timeout.
	ErrTimeout = errors.New("transfer timeout")

	// ErrCancelled indicates a cancelled transfer.
	ErrCancelled = errors.New("transfer cancelled")

	// ErrStall indicates an endpoint stall condition.
	ErrStall = errors.New("endpoint stalled")

	// ErrNoDevice indicates the device is not present.
	ErrNoDevice = errors.New("device not present")

	// ErrDeviceClosed indicates an operation on a closed device handle.
	ErrDeviceClosed = errors.New("device handle closed")

	// ErrNotFound indicates no matching device was found.
	ErrNotFound = errors.New("no matching device found")

	// ErrTransferFailed indicates an unrecoverable transfer error that
	// terminates the session.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrZeroLength indicates a transfer that completed with zero bytes,
	// which the engine treats the same as a failed transfer.
	ErrZeroLength = errors.New("zero-length transfer")

	// ErrShortWrite indicates the host output stream accepted fewer bytes
	// than the device delivered.
	ErrShortWrite = errors.New("short write to host stream")

	// ErrStreamRead indicates a host input stream failure other than a
	// clean end of stream.
	ErrStreamRead = errors.New("host stream read failed")

	// ErrPoolExhausted indicates no free transfer slot is available.
	// Callers treat this as a soft condition, not a failure.
	ErrPoolExhausted = errors.New("transfer slot pool exhausted")

	// ErrAborted indicates the session was aborted before completion.
	ErrAborted = errors.New("session aborted")

	// ErrNotSupported indicates an unsupported operation or target.
	ErrNotSupported = errors.New("not supported")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// TransferStatus represents the completion status of an asynchronous
// bulk transfer as reported by the device access layer.
type TransferStatus int

// Transfer status values.
const (
	TransferCompleted TransferStatus = iota // Transfer completed successfully
	TransferTimedOut                        // Transfer deadline expired (recoverable)
	TransferCancelled                       // Transfer was cancelled
	TransferError                           // Transfer failed
)

// String returns a string representation of the transfer status.
func (s TransferStatus) String() string {
	switch s {
	case TransferCompleted:
		return "completed"
	case TransferTimedOut:
		return "timed out"
	case TransferCancelled:
		return "cancelled"
	case TransferError:
		return "error"
	default:
		return "unknown"
	}
}

// Err returns the corresponding error for the transfer status.
func (s TransferStatus) Err() error {
	switch s {
	case TransferCompleted:
		return nil
	case TransferTimedOut:
		return ErrTimeout
	case TransferCancelled:
		return ErrCancelled
	default:
		return ErrTransferFailed
	}
}

// Completion describes one reaped asynchronous transfer. ID is the slot
// identifier the submitter attached to the operation, so completions map
// back to their owning slot without scanning.
type Completion struct {
	ID           uint64
	Status       TransferStatus
	ActualLength int
}
