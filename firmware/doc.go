// Package firmware uploads program images to Cypress EZ-USB microcontrollers.
//
// The EZ-USB family (AN21xx, FX, FX2, FX2LP, FX3) boots with a minimal
// vendor-request loader in ROM: control request 0xA0 reads and writes
// on-chip RAM, including the CPUCS register that holds the 8051 core in
// reset. Programming a device is therefore a pure control-transfer
// sequence: hold the core in reset, poke the image into RAM record by
// record, then release reset so the core boots the new code.
//
// Larger images need a second stage: a small loader is uploaded first,
// which implements request 0xA3 for writes to external RAM that the ROM
// loader cannot reach.
//
// Four image formats are supported: Intel hex (.hex, .ihx), Cypress IIC
// EEPROM images (.iic), flat binary (.bix), and FX3 boot images (.img).
//
// The packed six-byte FIFO configuration block consumed by the companion
// slave-FIFO firmware also lives here, see FIFOConfig.
package firmware
