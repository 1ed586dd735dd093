//go:build linux

package usb

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jhol/cannelloni/pkg"
)

// =============================================================================
// USB Device Information
// =============================================================================

// DeviceInfo holds information about a USB device discovered via sysfs.
type DeviceInfo struct {
	SysfsPath string // Path in /sys/bus/usb/devices
	DevfsPath string // Path in /dev/bus/usb
	BusNum    uint8  // Bus number
	DevNum    uint8  // Device number
	VendorID  uint16 // USB Vendor ID
	ProductID uint16 // USB Product ID
	Speed     string // Speed in Mbps as reported by sysfs ("480", "12", ...)
}

// String formats the device the way lsusb does.
func (d DeviceInfo) String() string {
	return fmt.Sprintf("bus %d device %d: %04x:%04x",
		d.BusNum, d.DevNum, d.VendorID, d.ProductID)
}

// =============================================================================
// Device Selection
// =============================================================================

// Selector narrows a device scan. Zero-value fields match anything; set
// HaveID to match on VendorID:ProductID, HaveAddr to match on BusNum/DevNum.
type Selector struct {
	VendorID  uint16
	ProductID uint16
	HaveID    bool

	BusNum   uint8
	DevNum   uint8
	HaveAddr bool
}

// Matches reports whether info satisfies every constraint the selector sets.
func (s Selector) Matches(info DeviceInfo) bool {
	if s.HaveID && (info.VendorID != s.VendorID || info.ProductID != s.ProductID) {
		return false
	}
	if s.HaveAddr && (info.BusNum != s.BusNum || info.DevNum != s.DevNum) {
		return false
	}
	return true
}

// ParseDeviceID parses a "vid:pid" string with hexadecimal components.
func ParseDeviceID(s string) (vid, pid uint16, err error) {
	vendor, product, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, pkg.ErrInvalidParameter
	}
	v, err := strconv.ParseUint(vendor, 16, 16)
	if err != nil {
		return 0, 0, pkg.ErrInvalidParameter
	}
	p, err := strconv.ParseUint(product, 16, 16)
	if err != nil {
		return 0, 0, pkg.ErrInvalidParameter
	}
	return uint16(v), uint16(p), nil
}

// ParseDeviceAddr parses a "bus,addr" or "bus.addr" string with decimal
// components.
func ParseDeviceAddr(s string) (bus, addr uint8, err error) {
	busStr, addrStr, ok := strings.Cut(s, ",")
	if !ok {
		busStr, addrStr, ok = strings.Cut(s, ".")
	}
	if !ok {
		return 0, 0, pkg.ErrInvalidParameter
	}
	b, err := strconv.ParseUint(busStr, 10, 8)
	if err != nil {
		return 0, 0, pkg.ErrInvalidParameter
	}
	a, err := strconv.ParseUint(addrStr, 10, 8)
	if err != nil {
		return 0, 0, pkg.ErrInvalidParameter
	}
	return uint8(b), uint8(a), nil
}

// Find scans the bus and returns the first device matching sel.
func Find(sel Selector) (DeviceInfo, error) {
	devices, err := Scan()
	if err != nil {
		return DeviceInfo{}, err
	}
	for _, dev := range devices {
		if sel.Matches(dev) {
			return dev, nil
		}
	}
	return DeviceInfo{}, pkg.ErrNotFound
}

// =============================================================================
// Sysfs Scanning
// =============================================================================

// Scan enumerates USB devices via sysfs.
func Scan() ([]DeviceInfo, error) {
	entries, err := os.ReadDir(SysfsUSBPath)
	if err != nil {
		return nil, err
	}

	var devices []DeviceInfo

	for _, entry := range entries {
		name := entry.Name()

		// USB devices have names like "1-1", "1-1.2", etc.
		// Skip root hub entries (usb1, usb2) and interface
		// entries (1-1:1.0).
		if strings.HasPrefix(name, "usb") {
			continue
		}
		if strings.Contains(name, ":") {
			continue
		}

		info, err := parseUSBDevice(filepath.Join(SysfsUSBPath, name))
		if err != nil {
			continue // Skip devices we can't parse
		}

		devices = append(devices, info)
	}

	return devices, nil
}

// parseUSBDevice parses USB device information from sysfs.
func parseUSBDevice(sysfsPath string) (DeviceInfo, error) {
	info := DeviceInfo{
		SysfsPath: sysfsPath,
	}

	busNum, err := readSysfsUint8(filepath.Join(sysfsPath, "busnum"))
	if err != nil {
		return info, err
	}
	info.BusNum = busNum

	devNum, err := readSysfsUint8(filepath.Join(sysfsPath, "devnum"))
	if err != nil {
		return info, err
	}
	info.DevNum = devNum

	info.DevfsPath = formatDevfsPath(info.BusNum, info.DevNum)

	vendorID, err := readSysfsHexUint16(filepath.Join(sysfsPath, "idVendor"))
	if err == nil {
		info.VendorID = vendorID
	}

	productID, err := readSysfsHexUint16(filepath.Join(sysfsPath, "idProduct"))
	if err == nil {
		info.ProductID = productID
	}

	speed, err := readSysfsString(filepath.Join(sysfsPath, "speed"))
	if err == nil {
		info.Speed = speed
	}

	return info, nil
}

// =============================================================================
// Sysfs Read Helpers
// =============================================================================

// readSysfsString reads a string from a sysfs attribute file.
func readSysfsString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// readSysfsUint8 reads an unsigned decimal uint8 from a sysfs attribute file.
func readSysfsUint8(path string) (uint8, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

// readSysfsHexUint16 reads a hexadecimal uint16 from a sysfs attribute file.
func readSysfsHexUint16(path string) (uint16, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	s = strings.TrimPrefix(s, "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// =============================================================================
// Path Helpers
// =============================================================================

// formatDevfsPath constructs a /dev/bus/usb path from bus and device numbers.
func formatDevfsPath(busNum, devNum uint8) string {
	return fmt.Sprintf("%s/%03d/%03d", DevfsUSBPath, busNum, devNum)
}
