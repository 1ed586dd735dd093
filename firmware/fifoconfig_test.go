package firmware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFIFOConfigPackDefaults(t *testing.T) {
	cfg := DefaultFIFOConfig()
	require.NoError(t, cfg.Validate())

	block := cfg.Pack()
	require.Equal(t, byte(0x12), block[0]) // IN endpoint selector
	require.Equal(t, byte(0xC3), block[1]) // internal 48MHz, sync, slave FIFO
	require.Equal(t, byte(0xE0), block[2]) // valid, IN, bulk, quad buffered
	require.Equal(t, byte(0x0D), block[3]) // auto-in, 16-bit
	require.Equal(t, byte(0x10), block[4]) // 48MHz core, CLKOUT tristate
	require.Equal(t, byte(0x00), block[5]) // default pin polarities
}

func TestFIFOConfigPackOut(t *testing.T) {
	cfg := DefaultFIFOConfig()
	cfg.DirectionIn = false

	block := cfg.Pack()
	require.Equal(t, byte(0x21), block[0])
	require.Equal(t, byte(0xA0), block[2]) // valid, OUT, bulk
	require.Equal(t, byte(0x11), block[3]) // auto-out, 16-bit
}

func TestFIFOConfigPackVariants(t *testing.T) {
	cfg := DefaultFIFOConfig()
	cfg.UseIFCLK = true
	cfg.Use48MHzIFCLK = false
	cfg.InvertIFCLK = true
	cfg.AsyncBus = true
	cfg.BufferCount = 2
	cfg.Bus8Bit = true
	cfg.CPUMHz = CPUMHz24
	cfg.EnableCLKOUTDriver = true
	cfg.InvertFullPin = true
	cfg.InvertPKTENDPin = true

	block := cfg.Pack()
	require.Equal(t, byte(0x1B), block[1]) // external clock, inverted, async
	require.Equal(t, byte(0xE2), block[2]) // double buffered
	require.Equal(t, byte(0x0C), block[3]) // 8-bit bus clears bit 0
	require.Equal(t, byte(0x0A), block[4]) // 24MHz core, CLKOUT driven
	require.Equal(t, byte(0x21), block[5]) // full and PKTEND inverted
}

func TestFIFOConfigEndpoint(t *testing.T) {
	cfg := DefaultFIFOConfig()
	require.Equal(t, uint8(EndpointIn), cfg.Endpoint())

	cfg.DirectionIn = false
	require.Equal(t, uint8(EndpointOut), cfg.Endpoint())
}

func TestFIFOConfigValidate(t *testing.T) {
	cfg := DefaultFIFOConfig()
	cfg.BufferCount = 5
	require.Error(t, cfg.Validate())

	cfg = DefaultFIFOConfig()
	cfg.CPUMHz = 33
	require.Error(t, cfg.Validate())

	for _, n := range []int{2, 3, 4} {
		cfg = DefaultFIFOConfig()
		cfg.BufferCount = n
		require.NoError(t, cfg.Validate())
	}
}
