// Package usb provides Linux usbfs access to the streaming device.
//
// The package covers exactly what the engine and the firmware loader need:
// device discovery via sysfs (/sys/bus/usb/devices), a device handle over
// /dev/bus/usb with interface claiming and alternate-setting selection,
// synchronous control transfers for firmware programming, and asynchronous
// bulk transfers for streaming. It is pure Go with no cgo dependencies;
// system calls go through [golang.org/x/sys/unix].
//
// # Asynchronous Bulk Transfers
//
// Bulk streaming uses URBs (USB Request Blocks) submitted with
// USBDEVFS_SUBMITURB and reaped non-blockingly with USBDEVFS_REAPURBNDELAY.
// Each submission carries a caller-supplied identifier in the URB's user
// context, so a reaped completion maps straight back to its owning transfer
// slot without scanning. The device file descriptor becomes writable
// (POLLOUT) when completions are reapable, which is what the engine's poll
// step waits on.
//
// usbfs has no kernel-side transfer timeout; the handle tracks a host-side
// deadline per submitted URB. [Device.ReapCompletions] discards overdue URBs
// and reports them with [pkg.TransferTimedOut], and [Device.NextTimeout]
// tells the caller how long it may sleep before the next deadline expires.
//
// # Requirements
//
// The user running the application must have read/write access to the USB
// device nodes in /dev/bus/usb/, which typically requires either root or
// appropriate udev rules.
package usb
