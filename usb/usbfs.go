//go:build linux

package usb

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// =============================================================================
// usbdevfs Structures
// =============================================================================

// urb represents a USB Request Block for async I/O.
// This must match the kernel's struct usbdevfs_urb layout.
type urb struct {
	typ          uint8   // URB type (control, bulk, interrupt, iso)
	endpoint     uint8   // Endpoint address
	status       int32   // URB status after completion (negated errno)
	flags        uint32  // URB flags
	buffer       uintptr // Pointer to data buffer
	bufferLength int32   // Length of data buffer
	actualLength int32   // Actual bytes transferred
	startFrame   int32   // Start frame for ISO transfers
	streamID     uint32  // Stream ID for USB 3.0 bulk streams
	errorCount   int32   // Error count for ISO transfers
	signr        uint32  // Signal number for async notification (unused)
	userContext  uintptr // Caller-supplied identifier, returned on reap
}

// ctrlTransfer represents a synchronous control transfer request.
// This must match the kernel's struct usbdevfs_ctrltransfer layout.
type ctrlTransfer struct {
	requestType uint8   // bmRequestType
	request     uint8   // bRequest
	value       uint16  // wValue
	index       uint16  // wIndex
	length      uint16  // wLength
	timeout     uint32  // Timeout in milliseconds
	_           uint32  // Padding before the pointer on 64-bit
	data        uintptr // Data buffer pointer
}

// bulkTransfer represents a synchronous bulk transfer request.
// This must match the kernel's struct usbdevfs_bulktransfer layout.
type bulkTransfer struct {
	endpoint uint32  // Endpoint address
	length   uint32  // Data length
	timeout  uint32  // Timeout in milliseconds
	_        uint32  // Padding before the pointer on 64-bit
	data     uintptr // Data buffer pointer
}

// setInterface selects an alternate setting for an interface.
// This must match the kernel's struct usbdevfs_setinterface layout.
type setInterface struct {
	iface      uint32 // Interface number
	altSetting uint32 // Alternate setting number
}

// disconnectClaim detaches any bound kernel driver and claims an interface
// in one operation. This must match struct usbdevfs_disconnect_claim.
type disconnectClaim struct {
	iface  uint32
	flags  uint32
	driver [256]byte
}

// =============================================================================
// Raw Syscall Wrappers
// =============================================================================

// openDevice opens a USB device node for read/write access.
func openDevice(path string) (int, error) {
	return unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
}

// closeDevice closes a device file descriptor.
func closeDevice(fd int) error {
	return unix.Close(fd)
}

// ioctlRaw performs a raw ioctl syscall.
func ioctlRaw(fd int, req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

// ioctlRetval performs an ioctl syscall and returns the result value.
func ioctlRetval(fd int, req uintptr, arg uintptr) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, arg)
	if errno != 0 {
		return int(r), errno
	}
	return int(r), nil
}

// =============================================================================
// usbdevfs Operations
// =============================================================================

// doControlTransfer performs a synchronous control transfer.
func doControlTransfer(fd int, reqType, req uint8, value, index uint16, data []byte, timeout uint32) (int, error) {
	ctrl := ctrlTransfer{
		requestType: reqType,
		request:     req,
		value:       value,
		index:       index,
		length:      uint16(len(data)),
		timeout:     timeout,
	}
	if len(data) > 0 {
		ctrl.data = uintptr(unsafe.Pointer(&data[0]))
	}

	return ioctlRetval(fd, ioctlUsbdevfsControl, uintptr(unsafe.Pointer(&ctrl)))
}

// claimInterface claims exclusive access to an interface, detaching any
// bound kernel driver first. Falls back to a plain claim on kernels
// without USBDEVFS_DISCONNECT_CLAIM.
func claimInterface(fd int, iface uint8) error {
	dc := disconnectClaim{iface: uint32(iface)}
	err := ioctlRaw(fd, ioctlUsbdevfsDisconnectClaim, uintptr(unsafe.Pointer(&dc)))
	if err == nil {
		return nil
	}
	if errno, ok := err.(unix.Errno); !ok || errno != unix.ENOTTY {
		return err
	}

	ifaceNum := uint32(iface)
	return ioctlRaw(fd, ioctlUsbdevfsClaimInterface, uintptr(unsafe.Pointer(&ifaceNum)))
}

// releaseInterface releases a previously claimed interface.
func releaseInterface(fd int, iface uint8) error {
	ifaceNum := uint32(iface)
	return ioctlRaw(fd, ioctlUsbdevfsReleaseInterface, uintptr(unsafe.Pointer(&ifaceNum)))
}

// setAltSetting selects an alternate setting for an interface.
func setAltSetting(fd int, iface, alt uint8) error {
	si := setInterface{
		iface:      uint32(iface),
		altSetting: uint32(alt),
	}
	return ioctlRaw(fd, ioctlUsbdevfsSetInterface, uintptr(unsafe.Pointer(&si)))
}

// resetDevice resets the USB device.
func resetDevice(fd int) error {
	return ioctlRaw(fd, ioctlUsbdevfsReset, 0)
}

// getCapabilities retrieves usbfs capability flags.
func getCapabilities(fd int) (uint32, error) {
	var caps uint32
	err := ioctlRaw(fd, ioctlUsbdevfsGetCapabilities, uintptr(unsafe.Pointer(&caps)))
	if err != nil {
		return 0, err
	}
	return caps, nil
}

// =============================================================================
// Async URB Operations
// =============================================================================

// submitURB submits a URB for asynchronous processing.
func submitURB(fd int, u *urb) error {
	return ioctlRaw(fd, ioctlUsbdevfsSubmitURB, uintptr(unsafe.Pointer(u)))
}

// reapURBNDelay retrieves a completed URB without blocking.
// Returns EAGAIN if no URB is available.
func reapURBNDelay(fd int) (*urb, error) {
	var urbPtr *urb
	err := ioctlRaw(fd, ioctlUsbdevfsReapURBNDelay, uintptr(unsafe.Pointer(&urbPtr)))
	if err != nil {
		return nil, err
	}
	return urbPtr, nil
}

// discardURB cancels a pending URB. The kernel still delivers the URB
// through a subsequent reap, with a cancelled status.
func discardURB(fd int, u *urb) error {
	return ioctlRaw(fd, ioctlUsbdevfsDiscardURB, uintptr(unsafe.Pointer(u)))
}

// =============================================================================
// Error Helpers
// =============================================================================

// isNoDevice returns true if the error indicates the device was disconnected.
func isNoDevice(err error) bool {
	if errno, ok := err.(unix.Errno); ok {
		return errno == unix.ENODEV
	}
	return false
}

// isAgain returns true if the error indicates try again (EAGAIN).
func isAgain(err error) bool {
	if errno, ok := err.(unix.Errno); ok {
		return errno == unix.EAGAIN
	}
	return false
}

// isInval returns true for EINVAL, which discard reports when the URB has
// already completed.
func isInval(err error) bool {
	if errno, ok := err.(unix.Errno); ok {
		return errno == unix.EINVAL
	}
	return false
}
