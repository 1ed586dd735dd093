//go:build linux

package stream

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/jhol/cannelloni/pkg"
)

// =============================================================================
// Completion Dispatcher
// =============================================================================

// dispatch is the engine's event loop. It primes the pipeline, then
// multiplexes device completions and cancellation on a single poll call
// until every submitted slot has drained.
func (s *Session) dispatch() error {
	s.prime()

	for s.pool.Submitted() > 0 {
		if err := s.wait(); err != nil {
			s.requestAbort(err)
		}

		if err := s.cfg.Device.ReapCompletions(s.handleCompletion); err != nil {
			s.requestAbort(err)
			if errors.Is(err, pkg.ErrNoDevice) {
				// The device is gone and the outstanding
				// completions will never arrive
				s.pool.EachSubmitted(s.pool.Release)
			}
		}

		if s.cfg.Canceller != nil && s.cfg.Canceller.Drain() {
			s.requestAbort(nil)
		}
	}

	return s.abortErr
}

// prime fills the pipeline with as many transfers as the pool, the byte
// budget, and the host stream allow.
func (s *Session) prime() {
	for i := 0; i < s.pool.Depth(); i++ {
		slot := s.pool.Acquire()
		if slot == nil {
			return
		}
		if !s.submitNext(slot) {
			return
		}
	}
}

// wait blocks until the device has completions to reap, cancellation is
// requested, or the next transfer deadline passes. The wait is bounded
// so neither source can starve the other.
func (s *Session) wait() error {
	timeout := maxPollWait
	if next, ok := s.cfg.Device.NextTimeout(); ok && next < timeout {
		timeout = next
	}

	fds := []unix.PollFd{
		{Fd: int32(s.cfg.Device.PollFD()), Events: unix.POLLOUT | unix.POLLERR},
	}
	if s.cfg.Canceller != nil {
		fds = append(fds, unix.PollFd{
			Fd:     int32(s.cfg.Canceller.FD()),
			Events: unix.POLLIN,
		})
	}

	ms := int(timeout.Milliseconds())
	if ms < 1 {
		ms = 1
	}

	for {
		_, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// handleCompletion services one reaped transfer.
func (s *Session) handleCompletion(c pkg.Completion) {
	slot, err := s.pool.BeginCompletion(c.ID)
	if err != nil {
		pkg.LogWarn(pkg.ComponentStream, "completion for unknown slot", "id", c.ID)
		return
	}

	// During abort the data is dropped and the slot retires
	if s.aborting {
		s.pool.Release(slot)
		return
	}

	switch c.Status {
	case pkg.TransferCompleted, pkg.TransferTimedOut:
		// A timeout that still moved bytes is recoverable
	case pkg.TransferCancelled:
		// Cancelled without an abort in progress means the device
		// layer gave up on the transfer
		s.pool.Release(slot)
		s.requestAbort(pkg.ErrCancelled)
		return
	default:
		s.pool.Release(slot)
		s.requestAbort(pkg.ErrTransferFailed)
		return
	}

	if c.ActualLength == 0 {
		s.pool.Release(slot)
		s.requestAbort(pkg.ErrZeroLength)
		return
	}

	data := slot.Buffer()[:c.ActualLength]

	if s.cfg.DirectionIn {
		if err := s.cfg.Stream.Drain(data); err != nil {
			s.pool.Release(slot)
			s.requestAbort(err)
			return
		}
	}

	s.transferred += uint64(c.ActualLength)

	if !s.submitNext(slot) {
		s.pool.Release(slot)
	}
}

// submitNext schedules the slot's next transfer, reporting false when
// the budget or the host stream has nothing left. The byte budget is
// consumed at scheduling time so concurrent slots never oversubscribe a
// finite limit.
func (s *Session) submitNext(slot *TransferSlot) bool {
	if s.aborting || s.final {
		return false
	}

	length := s.cfg.BlockSize
	if s.limited {
		if s.toSchedule == 0 {
			return false
		}
		if uint64(length) > s.toSchedule {
			length = int(s.toSchedule)
		}
	}

	if !s.cfg.DirectionIn {
		n, final, err := s.cfg.Stream.Fill(slot.buf[:length])
		if err != nil {
			s.requestAbort(err)
			return false
		}
		if final {
			// Short host stream: the short block is the last
			// transfer and nothing further is scheduled
			s.final = true
		}
		if n == 0 {
			return false
		}
		length = n
	}

	slot.SetLength(length)
	if err := s.cfg.Device.SubmitBulk(slot.id, s.cfg.Endpoint, slot.Buffer(), s.cfg.TransferTimeout); err != nil {
		s.requestAbort(err)
		return false
	}

	s.pool.NoteSubmitted(slot)
	if s.limited {
		s.toSchedule -= uint64(length)
	}
	return true
}

// requestAbort flips the session into draining mode: no new submissions,
// every outstanding transfer cancelled. Only the first call per session
// has any effect, and only the first error is kept.
func (s *Session) requestAbort(err error) {
	if s.aborting {
		return
	}
	s.aborting = true
	s.abortErr = err

	if err != nil {
		pkg.LogError(pkg.ComponentStream, "session aborting", "error", err)
	} else {
		pkg.LogDebug(pkg.ComponentStream, "cancellation requested, draining")
	}

	s.pool.EachSubmitted(func(slot *TransferSlot) {
		if cerr := s.cfg.Device.Cancel(slot.id); cerr != nil {
			pkg.LogWarn(pkg.ComponentStream, "cancel failed",
				"slot", slot.id, "error", cerr)
		}
	})
}
