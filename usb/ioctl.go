//go:build linux

package usb

import "unsafe"

// ioctl number encoding. The bit layout is shared by every architecture Go
// supports on Linux except the legacy ones usbfs never runs on:
//
//	bits 0-7:   command number (nr)
//	bits 8-15:  ioctl type (type)
//	bits 16-29: argument size (size)
//	bits 30-31: direction (dir)

const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits
)

// ioc constructs an ioctl number from direction, type, number, and size.
func ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift)
}

// ior constructs a read ioctl number.
func ior(typ, nr, size uintptr) uintptr {
	return ioc(iocRead, typ, nr, size)
}

// iow constructs a write ioctl number.
func iow(typ, nr, size uintptr) uintptr {
	return ioc(iocWrite, typ, nr, size)
}

// iowr constructs a read/write ioctl number.
func iowr(typ, nr, size uintptr) uintptr {
	return ioc(iocRead|iocWrite, typ, nr, size)
}

// io constructs an ioctl number with no data transfer.
func io(typ, nr uintptr) uintptr {
	return ioc(iocNone, typ, nr, 0)
}

// usbdevfs ioctl type character.
const usbdevfsType = 'U'

// usbdevfs ioctl command numbers.
const (
	nrControl          = 0
	nrBulk             = 2
	nrSetInterface     = 4
	nrSubmitURB        = 10
	nrDiscardURB       = 11
	nrReapURB          = 12
	nrReapURBNDelay    = 13
	nrClaimInterface   = 15
	nrReleaseInterface = 16
	nrReset            = 20
	nrGetCapabilities  = 26
	nrDisconnectClaim  = 27
)

// Usbdevfs ioctl numbers. Argument sizes are taken from the Go struct
// definitions, which match the kernel layout on 64-bit targets.
var (
	ioctlUsbdevfsControl          = iowr(usbdevfsType, nrControl, unsafe.Sizeof(ctrlTransfer{}))
	ioctlUsbdevfsBulk             = iowr(usbdevfsType, nrBulk, unsafe.Sizeof(bulkTransfer{}))
	ioctlUsbdevfsSetInterface     = ior(usbdevfsType, nrSetInterface, unsafe.Sizeof(setInterface{}))
	ioctlUsbdevfsSubmitURB        = ior(usbdevfsType, nrSubmitURB, unsafe.Sizeof(urb{}))
	ioctlUsbdevfsDiscardURB       = io(usbdevfsType, nrDiscardURB)
	ioctlUsbdevfsReapURB          = iow(usbdevfsType, nrReapURB, unsafe.Sizeof(uintptr(0)))
	ioctlUsbdevfsReapURBNDelay    = iow(usbdevfsType, nrReapURBNDelay, unsafe.Sizeof(uintptr(0)))
	ioctlUsbdevfsClaimInterface   = ior(usbdevfsType, nrClaimInterface, unsafe.Sizeof(uint32(0)))
	ioctlUsbdevfsReleaseInterface = ior(usbdevfsType, nrReleaseInterface, unsafe.Sizeof(uint32(0)))
	ioctlUsbdevfsReset            = io(usbdevfsType, nrReset)
	ioctlUsbdevfsGetCapabilities  = ior(usbdevfsType, nrGetCapabilities, unsafe.Sizeof(uint32(0)))
	ioctlUsbdevfsDisconnectClaim  = ior(usbdevfsType, nrDisconnectClaim, unsafe.Sizeof(disconnectClaim{}))
)
