package firmware

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectImageType(t *testing.T) {
	tests := []struct {
		path string
		want ImageType
	}{
		{"firmware.hex", ImageTypeHex},
		{"firmware.ihx", ImageTypeHex},
		{"FIRMWARE.HEX", ImageTypeHex},
		{"eeprom.iic", ImageTypeIIC},
		{"image.bix", ImageTypeBIX},
		{"boot.img", ImageTypeIMG},
		{"firmware.bin", ImageTypeUnknown},
		{"firmware", ImageTypeUnknown},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, DetectImageType(tt.path), "path %q", tt.path)
	}
}

func TestParseHex(t *testing.T) {
	const input = `:03010000020304F3
:020000040001F9
:01100000559A
:00000001FF
`
	img, err := ParseHex(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, img.Records, 2)

	require.Equal(t, uint32(0x0100), img.Records[0].Addr)
	require.Equal(t, []byte{0x02, 0x03, 0x04}, img.Records[0].Data)

	// The extended linear address record rebases the second data record
	require.Equal(t, uint32(0x11000), img.Records[1].Addr)
	require.Equal(t, []byte{0x55}, img.Records[1].Data)
}

func TestParseHexErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad checksum", ":03010000020304F4\n:00000001FF\n"},
		{"missing record mark", "03010000020304F3\n"},
		{"length mismatch", ":040100000203F6\n"},
		{"no eof record", ":03010000020304F3\n"},
		{"bad hex digits", ":03zz0000020304F3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHex(strings.NewReader(tt.input))
			require.Error(t, err)
		})
	}
}

func TestParseIIC(t *testing.T) {
	input := []byte{
		0xC2, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // header
		0x00, 0x03, 0x01, 0x00, 0xAA, 0xBB, 0xCC, // block at 0x0100
		0x80, 0x01, 0xE6, 0x00, 0x00, // final block, CPUCS write
	}

	img, err := ParseIIC(bytes.NewReader(input))
	require.NoError(t, err)
	require.Len(t, img.Records, 2)

	require.Equal(t, uint32(0x0100), img.Records[0].Addr)
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC}, img.Records[0].Data)

	require.Equal(t, uint32(0xE600), img.Records[1].Addr)
	require.Equal(t, []byte{0x00}, img.Records[1].Data)
}

func TestParseIICErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"bad marker", []byte{0xC1, 0, 0, 0, 0, 0, 0, 0}},
		{"truncated block header", []byte{0xC2, 0, 0, 0, 0, 0, 0, 0, 0x00, 0x03}},
		{"truncated block data", []byte{0xC2, 0, 0, 0, 0, 0, 0, 0, 0x00, 0x03, 0x01, 0x00, 0xAA}},
		{"no final block", []byte{0xC2, 0, 0, 0, 0, 0, 0, 0, 0x00, 0x01, 0x01, 0x00, 0xAA}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIIC(bytes.NewReader(tt.input))
			require.Error(t, err)
		})
	}
}

func TestParseBIX(t *testing.T) {
	img, err := ParseBIX(bytes.NewReader([]byte{0x01, 0x02, 0x03}))
	require.NoError(t, err)
	require.Len(t, img.Records, 1)
	require.Equal(t, uint32(0), img.Records[0].Addr)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, img.Records[0].Data)

	_, err = ParseBIX(bytes.NewReader(nil))
	require.Error(t, err)
}

func TestParseIMG(t *testing.T) {
	input := []byte{
		'C', 'Y', 0x00, 0xB0,
		0x01, 0x00, 0x00, 0x00, // one word
		0x00, 0x01, 0x00, 0x00, // at 0x100
		0xDE, 0xAD, 0xBE, 0xEF,
		0x00, 0x00, 0x00, 0x00, // terminator
		0x40, 0x00, 0x00, 0x00, // entry point
	}

	img, err := ParseIMG(bytes.NewReader(input))
	require.NoError(t, err)
	require.Len(t, img.Records, 1)
	require.Equal(t, uint32(0x100), img.Records[0].Addr)
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, img.Records[0].Data)
	require.True(t, img.HasEntry)
	require.Equal(t, uint32(0x40), img.Entry)
}

func TestParseIMGErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"bad signature", []byte{'X', 'Y', 0, 0xB0}},
		{"truncated section header", []byte{'C', 'Y', 0, 0xB0, 0x01, 0x00}},
		{"truncated section data", []byte{
			'C', 'Y', 0, 0xB0,
			0x02, 0x00, 0x00, 0x00,
			0x00, 0x01, 0x00, 0x00,
			0xDE, 0xAD,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIMG(bytes.NewReader(tt.input))
			require.Error(t, err)
		})
	}
}
