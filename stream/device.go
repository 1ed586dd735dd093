package stream

import (
	"time"

	"github.com/jhol/cannelloni/pkg"
)

// Device is the transfer surface the engine drives. Submissions are
// asynchronous: SubmitBulk returns once the kernel owns the transfer,
// and the matching completion arrives later through ReapCompletions.
type Device interface {
	// SubmitBulk queues buf on endpoint. id identifies the operation
	// in its completion. The buffer must stay untouched until then.
	SubmitBulk(id uint64, endpoint uint8, buf []byte, timeout time.Duration) error

	// Cancel aborts the transfer submitted under id. The transfer
	// still completes, with a cancelled status.
	Cancel(id uint64) error

	// ReapCompletions services every pending completion without
	// blocking, invoking fn for each.
	ReapCompletions(fn func(pkg.Completion)) error

	// NextTimeout hints how long the caller may block before the
	// device needs servicing. ok is false when nothing is in flight.
	NextTimeout() (time.Duration, bool)

	// PollFD is the descriptor that becomes writable when completions
	// are waiting.
	PollFD() int
}

// SessionDevice adds the interface management a session performs around
// the transfer loop.
type SessionDevice interface {
	Device

	ClaimInterface(iface uint8) error
	ReleaseInterface(iface uint8) error
	SetAltSetting(iface, alt uint8) error
}
