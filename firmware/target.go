package firmware

import "github.com/jhol/cannelloni/pkg"

// =============================================================================
// Microcontroller Targets
// =============================================================================

// Target identifies an EZ-USB microcontroller family. The family decides
// the CPUCS register address and which addresses live in on-chip RAM.
type Target int

// Supported microcontroller families.
const (
	TargetUnknown Target = iota
	TargetAN21          // AN21xx
	TargetFX            // EZ-USB FX
	TargetFX2           // EZ-USB FX2
	TargetFX2LP         // EZ-USB FX2LP
	TargetFX3           // EZ-USB FX3
)

// CPUCS register addresses holding the 8051 reset bit.
const (
	cpucsAddrAN21 = 0x7f92 // AN21xx and FX
	cpucsAddrFX2  = 0xe600 // FX2 and FX2LP
)

// ParseTarget converts a user-facing family name to a Target.
func ParseTarget(s string) (Target, error) {
	switch s {
	case "an21":
		return TargetAN21, nil
	case "fx":
		return TargetFX, nil
	case "fx2":
		return TargetFX2, nil
	case "fx2lp":
		return TargetFX2LP, nil
	case "fx3":
		return TargetFX3, nil
	}
	return TargetUnknown, pkg.ErrInvalidParameter
}

// String returns the user-facing family name.
func (t Target) String() string {
	switch t {
	case TargetAN21:
		return "an21"
	case TargetFX:
		return "fx"
	case TargetFX2:
		return "fx2"
	case TargetFX2LP:
		return "fx2lp"
	case TargetFX3:
		return "fx3"
	}
	return "unknown"
}

// cpucsAddr returns the CPUCS register address for the family.
func (t Target) cpucsAddr() uint16 {
	switch t {
	case TargetAN21, TargetFX:
		return cpucsAddrAN21
	default:
		return cpucsAddrFX2
	}
}

// isExternal reports whether the address range [addr, addr+n) lies outside
// the family's on-chip RAM and so needs a second stage loader to reach.
func (t Target) isExternal(addr uint32, n int) bool {
	end := addr + uint32(n)
	switch t {
	case TargetAN21, TargetFX:
		// 8KB on-chip, minus the loader scratch at the top
		if addr <= 0x1b3f {
			return end > 0x1b40
		}
		return true
	case TargetFX2:
		// 8KB code/data plus 512 bytes of scratch at 0xe000
		if addr <= 0x1fff {
			return end > 0x2000
		}
		if addr >= 0xe000 && addr <= 0xe1ff {
			return end > 0xe200
		}
		return true
	case TargetFX2LP:
		// 16KB code/data plus 512 bytes of scratch at 0xe000
		if addr <= 0x3fff {
			return end > 0x4000
		}
		if addr >= 0xe000 && addr <= 0xe1ff {
			return end > 0xe200
		}
		return true
	}
	return false
}

// =============================================================================
// Known Devices
// =============================================================================

// KnownDevice maps a VID:PID to a microcontroller family.
type KnownDevice struct {
	VendorID    uint16
	ProductID   uint16
	Target      Target
	Designation string
}

// KnownDevices lists the Cypress development boards the bootloader
// protocol is known to work with.
var KnownDevices = []KnownDevice{
	{0x0547, 0x2131, TargetAN21, "Cypress EZ-USB (2131Q/2131S/2135S)"},
	{0x0547, 0x1002, TargetAN21, "Cypress EZ-USB sample device"},
	{0x04b4, 0x6473, TargetFX, "Cypress EZ-USB FX (CY7C64613)"},
	{0x04b4, 0x8613, TargetFX2LP, "Cypress EZ-USB FX2LP (CY7C68013A/14A/15A/16A)"},
	{0x04b4, 0x00f3, TargetFX3, "Cypress FX3"},
}

// DetectTarget looks up the microcontroller family for a VID:PID. ok is
// false when the device is not a known EZ-USB part.
func DetectTarget(vid, pid uint16) (KnownDevice, bool) {
	for _, kd := range KnownDevices {
		if kd.VendorID == vid && kd.ProductID == pid {
			return kd, true
		}
	}
	return KnownDevice{}, false
}
