//go:build linux

package usb

import (
	"time"
	"unsafe"

	"github.com/jhol/cannelloni/pkg"
)

// =============================================================================
// Device Handle
// =============================================================================

// Device is an exclusively-owned handle to one USB device node. It is not
// safe for concurrent use; the streaming engine mutates it from a single
// thread only, and the firmware loader runs before streaming starts.
type Device struct {
	fd   int
	info DeviceInfo

	// Claimed interfaces
	claimedMask uint16

	// Pending asynchronous transfers, keyed by the caller's slot ID.
	// Records are allocated on first submission of an ID and reused for
	// every resubmission, so the hot path allocates nothing.
	pending map[uint64]*urbRecord

	// Number of URBs currently owned by the kernel
	inFlight int

	closed bool
}

// urbRecord pairs one URB with its host-side deadline state.
type urbRecord struct {
	u        urb
	buf      []byte // submitted buffer; held so it cannot be collected in flight
	deadline time.Time
	timedOut bool
	inFlight bool
}

// Open opens the device node described by info.
func Open(info DeviceInfo) (*Device, error) {
	fd, err := openDevice(info.DevfsPath)
	if err != nil {
		return nil, err
	}

	pkg.LogDebug(pkg.ComponentUSB, "device opened",
		"path", info.DevfsPath,
		"vid", info.VendorID,
		"pid", info.ProductID)

	return &Device{
		fd:      fd,
		info:    info,
		pending: make(map[uint64]*urbRecord),
	}, nil
}

// Info returns the discovery record for this device.
func (d *Device) Info() DeviceInfo {
	return d.info
}

// Close releases claimed interfaces, discards in-flight transfers, and
// closes the device node. Closing an already-closed handle is a no-op.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	d.CancelAll()
	for {
		if _, err := reapURBNDelay(d.fd); err != nil {
			break
		}
	}

	for i := 0; i < MaxInterfacesPerDevice; i++ {
		if d.claimedMask&(1<<i) != 0 {
			releaseInterface(d.fd, uint8(i))
		}
	}
	d.claimedMask = 0

	pkg.LogDebug(pkg.ComponentUSB, "device closed", "path", d.info.DevfsPath)
	return closeDevice(d.fd)
}

// =============================================================================
// Interface Management
// =============================================================================

// ClaimInterface claims exclusive access to an interface, detaching any
// bound kernel driver.
func (d *Device) ClaimInterface(iface uint8) error {
	if d.closed {
		return pkg.ErrDeviceClosed
	}
	if iface >= MaxInterfacesPerDevice {
		return pkg.ErrInvalidParameter
	}

	mask := uint16(1) << iface
	if d.claimedMask&mask != 0 {
		return nil
	}

	if err := claimInterface(d.fd, iface); err != nil {
		if isNoDevice(err) {
			return pkg.ErrNoDevice
		}
		return err
	}

	d.claimedMask |= mask
	return nil
}

// ReleaseInterface releases a previously claimed interface.
func (d *Device) ReleaseInterface(iface uint8) error {
	if d.closed {
		return pkg.ErrDeviceClosed
	}
	if iface >= MaxInterfacesPerDevice {
		return pkg.ErrInvalidParameter
	}

	mask := uint16(1) << iface
	if d.claimedMask&mask == 0 {
		return nil
	}

	if err := releaseInterface(d.fd, iface); err != nil {
		return err
	}

	d.claimedMask &= ^mask
	return nil
}

// SetAltSetting selects an alternate setting for a claimed interface.
func (d *Device) SetAltSetting(iface, alt uint8) error {
	if d.closed {
		return pkg.ErrDeviceClosed
	}
	if err := setAltSetting(d.fd, iface, alt); err != nil {
		if isNoDevice(err) {
			return pkg.ErrNoDevice
		}
		return err
	}
	return nil
}

// Reset performs a USB port reset of the device.
func (d *Device) Reset() error {
	if d.closed {
		return pkg.ErrDeviceClosed
	}
	return resetDevice(d.fd)
}

// =============================================================================
// Control Transfers
// =============================================================================

// ControlTransfer performs a synchronous control transfer. The firmware
// loader uses this for vendor requests; the streaming engine never does.
func (d *Device) ControlTransfer(reqType, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error) {
	if d.closed {
		return 0, pkg.ErrDeviceClosed
	}

	n, err := doControlTransfer(d.fd, reqType, request, value, index, data, uint32(timeout.Milliseconds()))
	if isNoDevice(err) {
		return 0, pkg.ErrNoDevice
	}
	return n, err
}

// =============================================================================
// Asynchronous Bulk Transfers
// =============================================================================

// SubmitBulk submits buf for asynchronous bulk transfer on endpoint. The id
// is attached to the operation and comes back in the matching Completion.
// The caller must not touch buf until that completion arrives. timeout is
// enforced host-side: ReapCompletions discards overdue transfers.
func (d *Device) SubmitBulk(id uint64, endpoint uint8, buf []byte, timeout time.Duration) error {
	if d.closed {
		return pkg.ErrDeviceClosed
	}
	if len(buf) == 0 {
		return pkg.ErrZeroLength
	}

	rec := d.pending[id]
	if rec == nil {
		rec = &urbRecord{}
		d.pending[id] = rec
	}
	if rec.inFlight {
		return pkg.ErrInvalidParameter
	}

	rec.buf = buf
	rec.deadline = time.Now().Add(timeout)
	rec.timedOut = false

	u := &rec.u
	u.typ = URBTypeBulk
	u.endpoint = endpoint
	u.status = URBStatusInProgress
	u.flags = 0
	u.buffer = uintptr(unsafe.Pointer(&buf[0]))
	u.bufferLength = int32(len(buf))
	u.actualLength = 0
	u.userContext = uintptr(id)

	if err := submitURB(d.fd, u); err != nil {
		if isNoDevice(err) {
			return pkg.ErrNoDevice
		}
		return err
	}

	rec.inFlight = true
	d.inFlight++
	return nil
}

// Cancel asks the kernel to abort the transfer submitted under id. The
// transfer still completes, with a cancelled status, through
// ReapCompletions. Cancelling a transfer that already completed is a no-op.
func (d *Device) Cancel(id uint64) error {
	rec := d.pending[id]
	if rec == nil || !rec.inFlight {
		return nil
	}

	if err := discardURB(d.fd, &rec.u); err != nil && !isInval(err) {
		if isNoDevice(err) {
			return pkg.ErrNoDevice
		}
		return err
	}
	return nil
}

// CancelAll discards every in-flight transfer.
func (d *Device) CancelAll() {
	for _, rec := range d.pending {
		if rec.inFlight {
			discardURB(d.fd, &rec.u)
		}
	}
}

// InFlight returns the number of transfers currently owned by the kernel.
func (d *Device) InFlight() int {
	return d.inFlight
}

// NextTimeout returns how long the caller may wait before the earliest
// submitted transfer's deadline expires. ok is false when nothing is
// in flight.
func (d *Device) NextTimeout() (wait time.Duration, ok bool) {
	var earliest time.Time
	for _, rec := range d.pending {
		if !rec.inFlight {
			continue
		}
		if !ok || rec.deadline.Before(earliest) {
			earliest = rec.deadline
			ok = true
		}
	}
	if !ok {
		return 0, false
	}

	wait = time.Until(earliest)
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

// ReapCompletions first discards transfers whose deadline has expired, then
// reaps pending completions, invoking fn for each. It never blocks, and it
// reaps at most the number of transfers in flight at entry, so fn
// resubmitting completed transfers cannot keep the loop fed indefinitely;
// anything beyond the batch stays reapable for the next call. A timed-out
// transfer is reported with pkg.TransferTimedOut and whatever bytes the
// device moved before the discard.
func (d *Device) ReapCompletions(fn func(pkg.Completion)) error {
	if d.closed {
		return pkg.ErrDeviceClosed
	}

	d.expireDeadlines()

	for budget := d.inFlight; budget > 0; budget-- {
		u, err := reapURBNDelay(d.fd)
		if err != nil {
			if isAgain(err) {
				return nil
			}
			if isNoDevice(err) {
				return pkg.ErrNoDevice
			}
			return err
		}

		id := uint64(u.userContext)
		rec := d.pending[id]
		if rec == nil {
			// Unknown URB; nothing sane to do but drop it.
			pkg.LogWarn(pkg.ComponentUSB, "reaped unknown urb", "id", id)
			continue
		}

		rec.inFlight = false
		rec.buf = nil
		d.inFlight--

		fn(pkg.Completion{
			ID:           id,
			Status:       completionStatus(u.status, rec.timedOut),
			ActualLength: int(u.actualLength),
		})
	}
	return nil
}

// expireDeadlines discards URBs past their deadline so they reap promptly.
func (d *Device) expireDeadlines() {
	now := time.Now()
	for id, rec := range d.pending {
		if !rec.inFlight || rec.timedOut || rec.deadline.After(now) {
			continue
		}
		rec.timedOut = true
		if err := discardURB(d.fd, &rec.u); err != nil && !isInval(err) {
			pkg.LogWarn(pkg.ComponentUSB, "discard of timed-out urb failed",
				"id", id, "error", err)
		}
	}
}

// PollFD returns the descriptor the engine multiplexes on. usbfs reports
// the fd writable (POLLOUT) when completed URBs are waiting to be reaped.
func (d *Device) PollFD() int {
	return d.fd
}

// completionStatus maps a reaped URB status to the engine-facing status.
func completionStatus(status int32, timedOut bool) pkg.TransferStatus {
	switch status {
	case URBStatusSuccess:
		return pkg.TransferCompleted
	case URBStatusNoEnt, URBStatusConnReset:
		if timedOut {
			return pkg.TransferTimedOut
		}
		return pkg.TransferCancelled
	default:
		return pkg.TransferError
	}
}
