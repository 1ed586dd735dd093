package firmware

import (
	"time"

	"github.com/pkg/errors"

	"github.com/jhol/cannelloni/pkg"
)

// =============================================================================
// Bootloader Protocol
// =============================================================================

// Vendor requests implemented by the ROM bootloader (0xA0) and by second
// stage loaders (0xA3).
const (
	requestTypeVendorOut = 0x40
	requestLoadInternal  = 0xA0
	requestLoadExternal  = 0xA3
)

// CPUCS register values.
const (
	cpuReset = 0x01
	cpuRun   = 0x00
)

const (
	controlTimeout = 1 * time.Second

	// Largest poke per control transfer. The ROM loader accepts more
	// but small writes keep second stage loaders happy.
	maxPoke = 1024

	// FX3 boot ROM accepts up to 4KB per transfer.
	maxPokeFX3 = 4096
)

// ControlWriter issues control transfers to a device. usb.Device
// implements it.
type ControlWriter interface {
	ControlTransfer(reqType, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error)
}

// =============================================================================
// Loader
// =============================================================================

// Loader programs a firmware image into an EZ-USB device over its
// bootloader protocol.
type Loader struct {
	Device ControlWriter
	Target Target

	// PreReset runs after the first stage image is in RAM, with the
	// core still held in reset. The FIFO configuration block is
	// written from here.
	PreReset func(ControlWriter) error
}

// Program uploads firmware, optionally through a second stage loader.
// With a loader image, the loader is uploaded first and the firmware's
// external segments are then written through it.
func (l *Loader) Program(firmware, loader *Image) error {
	if l.Target == TargetFX3 {
		if loader != nil {
			return errors.New("fx3 does not take a second stage loader")
		}
		return l.loadFX3(firmware)
	}

	if loader == nil {
		pkg.LogDebug(pkg.ComponentFirmware, "single stage: load on-chip memory")
		return l.loadRAM(firmware, 0)
	}

	pkg.LogDebug(pkg.ComponentFirmware, "1st stage: load 2nd stage loader")
	if err := l.loadRAM(loader, 0); err != nil {
		return err
	}
	pkg.LogDebug(pkg.ComponentFirmware, "2nd stage: load on-chip memory")
	return l.loadRAM(firmware, 1)
}

// loadRAM performs one load pass. Stage 0 writes on-chip RAM through the
// ROM bootloader with the core held in reset. Stage 1 runs with a second
// stage loader active: external segments are written through the loader
// first, then the core is stopped and the on-chip segments written
// through ROM.
func (l *Loader) loadRAM(img *Image, stage int) error {
	if stage == 0 {
		if err := l.writeCPUCS(cpuReset); err != nil {
			return err
		}
		if err := l.pokeRecords(img, false, requestLoadInternal); err != nil {
			return err
		}
		if l.PreReset != nil {
			if err := l.PreReset(l.Device); err != nil {
				return err
			}
		}
		return l.writeCPUCS(cpuRun)
	}

	// External segments go through the running loader
	if err := l.pokeRecords(img, true, requestLoadExternal); err != nil {
		return err
	}

	// The loader is overwritten from here on, stop the core first
	if err := l.writeCPUCS(cpuReset); err != nil {
		return err
	}
	if err := l.pokeRecords(img, false, requestLoadInternal); err != nil {
		return err
	}
	return l.writeCPUCS(cpuRun)
}

// pokeRecords writes the image records selected by external through the
// given vendor request.
func (l *Loader) pokeRecords(img *Image, external bool, request uint8) error {
	for _, rec := range img.Records {
		if l.Target.isExternal(rec.Addr, len(rec.Data)) != external {
			continue
		}
		if rec.Addr+uint32(len(rec.Data)) > 0x10000 {
			return errors.Errorf("record at %#x exceeds 16-bit address space", rec.Addr)
		}
		if err := l.poke(request, rec.Addr, rec.Data); err != nil {
			return err
		}
	}
	return nil
}

// poke writes data to device RAM at addr, splitting into bootloader-sized
// control transfers.
func (l *Loader) poke(request uint8, addr uint32, data []byte) error {
	for len(data) > 0 {
		n := len(data)
		if n > maxPoke {
			n = maxPoke
		}

		if _, err := l.Device.ControlTransfer(requestTypeVendorOut, request,
			uint16(addr), 0, data[:n], controlTimeout); err != nil {
			return errors.Wrapf(err, "write %d bytes at %#x", n, addr)
		}

		pkg.LogDebug(pkg.ComponentFirmware, "wrote ram",
			"addr", addr, "len", n, "request", request)

		addr += uint32(n)
		data = data[n:]
	}
	return nil
}

// writeCPUCS writes the core reset register.
func (l *Loader) writeCPUCS(val uint8) error {
	addr := l.Target.cpucsAddr()
	if _, err := l.Device.ControlTransfer(requestTypeVendorOut, requestLoadInternal,
		addr, 0, []byte{val}, controlTimeout); err != nil {
		return errors.Wrapf(err, "write cpucs at %#x", addr)
	}
	pkg.LogDebug(pkg.ComponentFirmware, "cpucs", "addr", addr, "value", val)
	return nil
}

// loadFX3 uploads a boot image to the FX3 ROM, which takes 32-bit
// addresses split across wValue and wIndex, then jumps to the entry
// point with a zero-length write.
func (l *Loader) loadFX3(img *Image) error {
	for _, rec := range img.Records {
		addr := rec.Addr
		data := rec.Data
		for len(data) > 0 {
			n := len(data)
			if n > maxPokeFX3 {
				n = maxPokeFX3
			}
			if _, err := l.Device.ControlTransfer(requestTypeVendorOut, requestLoadInternal,
				uint16(addr), uint16(addr>>16), data[:n], controlTimeout); err != nil {
				return errors.Wrapf(err, "write %d bytes at %#x", n, addr)
			}
			addr += uint32(n)
			data = data[n:]
		}
	}

	if !img.HasEntry {
		return errors.New("boot image has no entry point")
	}
	if _, err := l.Device.ControlTransfer(requestTypeVendorOut, requestLoadInternal,
		uint16(img.Entry), uint16(img.Entry>>16), nil, controlTimeout); err != nil {
		return errors.Wrapf(err, "jump to %#x", img.Entry)
	}

	pkg.LogDebug(pkg.ComponentFirmware, "fx3 boot", "entry", img.Entry)
	return nil
}
