package usb

// =============================================================================
// System Paths
// =============================================================================

// SysfsUSBPath is the base path for USB devices in sysfs.
const SysfsUSBPath = "/sys/bus/usb/devices"

// DevfsUSBPath is the base path for USB device nodes.
const DevfsUSBPath = "/dev/bus/usb"

// =============================================================================
// URB (USB Request Block) Constants
// =============================================================================

// URB transfer types for USBDEVFS_SUBMITURB.
const (
	URBTypeISO       = 0 // Isochronous
	URBTypeInterrupt = 1 // Interrupt
	URBTypeControl   = 2 // Control
	URBTypeBulk      = 3 // Bulk
)

// URB status values of interest. The kernel reports status as a negated
// errno in the URB's status field.
const (
	URBStatusSuccess    = 0
	URBStatusInProgress = -115 // -EINPROGRESS
	URBStatusNoEnt      = -2   // -ENOENT: discarded before starting
	URBStatusConnReset  = -104 // -ECONNRESET: discarded while in progress
	URBStatusPipe       = -32  // -EPIPE: endpoint stalled
	URBStatusNoDev      = -19  // -ENODEV: device disconnected
	URBStatusShutdown   = -108 // -ESHUTDOWN: device disabled
)

// =============================================================================
// Interface Limits
// =============================================================================

// MaxInterfacesPerDevice is the maximum number of interfaces per device.
const MaxInterfacesPerDevice = 16
