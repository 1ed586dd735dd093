package firmware

import "github.com/jhol/cannelloni/pkg"

// =============================================================================
// Slave FIFO Configuration
// =============================================================================

// FirmwareConfigAddr is the on-chip RAM address where the companion
// slave-FIFO firmware expects its configuration block.
const FirmwareConfigAddr = 0x1003

// Bulk endpoints the slave-FIFO firmware exposes.
const (
	EndpointIn  = 0x86 // device to host, EP6
	EndpointOut = 0x02 // host to device, EP2
)

// CPU core frequencies selectable in the configuration block.
const (
	CPUMHz12 = 12
	CPUMHz24 = 24
	CPUMHz48 = 48
)

// FIFOConfig describes how the slave-FIFO firmware should configure the
// FX2 interface: streaming direction, clocking, FIFO geometry, and flag
// pin polarities. Pack turns it into the six bytes written to
// FirmwareConfigAddr while the core is held in reset.
type FIFOConfig struct {
	// DirectionIn selects device-to-host streaming on EP6. False
	// selects host-to-device on EP2.
	DirectionIn bool `yaml:"direction_in"`

	// Interface clock
	UseIFCLK         bool `yaml:"use_ifclk"`           // External clock from the IFCLK pin
	Use48MHzIFCLK    bool `yaml:"use_48mhz_ifclk"`     // Internal 48MHz instead of 30MHz
	RedirectToCLKOUT bool `yaml:"redirect_to_clkout"`  // Drive interface clock onto CLKOUT
	InvertIFCLK      bool `yaml:"invert_ifclk"`        // Invert IFCLK
	AsyncBus         bool `yaml:"async_bus"`           // Asynchronous slave FIFO mode

	// FIFO geometry
	BufferCount int  `yaml:"buffer_count"` // 2, 3, or 4 buffers of 512 bytes
	Bus8Bit     bool `yaml:"bus_8bit"`     // 8-bit FIFO bus instead of 16-bit

	// 8051 core
	CPUMHz             int  `yaml:"cpu_mhz"`              // 12, 24, or 48
	InvertCLKOUT       bool `yaml:"invert_clkout"`        // Invert clock on CLKOUT
	EnableCLKOUTDriver bool `yaml:"enable_clkout_driver"` // Drive CLKOUT instead of tristate

	// Flag pin polarities, true asserts high
	InvertFullPin   bool `yaml:"invert_full_pin"`
	InvertEmptyPin  bool `yaml:"invert_empty_pin"`
	InvertSLWRPin   bool `yaml:"invert_slwr_pin"`
	InvertSLRDPin   bool `yaml:"invert_slrd_pin"`
	InvertSLOEPin   bool `yaml:"invert_sloe_pin"`
	InvertPKTENDPin bool `yaml:"invert_pktend_pin"`
}

// DefaultFIFOConfig returns the configuration the firmware boots with
// when nothing is overridden: IN direction, internal 48MHz interface
// clock, synchronous 16-bit bus, quadruple buffering, 48MHz core.
func DefaultFIFOConfig() FIFOConfig {
	return FIFOConfig{
		DirectionIn:   true,
		Use48MHzIFCLK: true,
		BufferCount:   4,
		CPUMHz:        CPUMHz48,
	}
}

// Endpoint returns the bulk endpoint address the configured direction
// streams on.
func (c FIFOConfig) Endpoint() uint8 {
	if c.DirectionIn {
		return EndpointIn
	}
	return EndpointOut
}

// Validate checks field values Pack cannot express.
func (c FIFOConfig) Validate() error {
	switch c.BufferCount {
	case 2, 3, 4:
	default:
		return pkg.ErrInvalidParameter
	}
	switch c.CPUMHz {
	case CPUMHz12, CPUMHz24, CPUMHz48:
	default:
		return pkg.ErrInvalidParameter
	}
	return nil
}

// Pack encodes the configuration into the block layout the firmware
// reads: endpoint selector, IFCONFIG, EPxCFG, EPxFIFOCFG, CPUCS clock
// bits, and FIFOPINPOLAR.
func (c FIFOConfig) Pack() [6]byte {
	var b [6]byte

	// Byte 0: endpoint selector
	if c.DirectionIn {
		b[0] = 0x12
	} else {
		b[0] = 0x21
	}

	// Byte 1: IFCONFIG
	if !c.UseIFCLK {
		b[1] |= 1 << 7
	}
	if c.Use48MHzIFCLK {
		b[1] |= 1 << 6
	}
	if c.RedirectToCLKOUT {
		b[1] |= 1 << 5
	}
	if c.InvertIFCLK {
		b[1] |= 1 << 4
	}
	if c.AsyncBus {
		b[1] |= 1 << 3
	}
	b[1] |= 0x03 // slave FIFO

	// Byte 2: EPxCFG, valid, bulk, 512 bytes
	b[2] = 1 << 7
	if c.DirectionIn {
		b[2] |= 1 << 6
	}
	b[2] |= 0x20
	switch c.BufferCount {
	case 2:
		b[2] |= 0x02
	case 3:
		b[2] |= 0x03
	}

	// Byte 3: EPxFIFOCFG
	if c.DirectionIn {
		b[3] = 0x0d
	} else {
		b[3] = 0x11
	}
	if c.Bus8Bit {
		b[3] &= 0xFE
	}

	// Byte 4: CPUCS clock bits
	switch c.CPUMHz {
	case CPUMHz24:
		b[4] |= 0x08
	case CPUMHz48:
		b[4] |= 0x10
	}
	if c.InvertCLKOUT {
		b[4] |= 1 << 2
	}
	if c.EnableCLKOUTDriver {
		b[4] |= 1 << 1
	}

	// Byte 5: FIFOPINPOLAR
	if c.InvertFullPin {
		b[5] |= 1 << 0
	}
	if c.InvertEmptyPin {
		b[5] |= 1 << 1
	}
	if c.InvertSLWRPin {
		b[5] |= 1 << 2
	}
	if c.InvertSLRDPin {
		b[5] |= 1 << 3
	}
	if c.InvertSLOEPin {
		b[5] |= 1 << 4
	}
	if c.InvertPKTENDPin {
		b[5] |= 1 << 5
	}

	return b
}

// WriteConfig returns a PreReset hook that writes the packed block to
// FirmwareConfigAddr while the core is still in reset.
func (c FIFOConfig) WriteConfig() func(ControlWriter) error {
	return func(dev ControlWriter) error {
		block := c.Pack()
		pkg.LogDebug(pkg.ComponentFirmware, "firmware configuration",
			"block", block[:])
		_, err := dev.ControlTransfer(requestTypeVendorOut, requestLoadInternal,
			FirmwareConfigAddr, 0, block[:], controlTimeout)
		return err
	}
}
