package firmware

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// =============================================================================
// Image Types
// =============================================================================

// ImageType identifies a firmware image file format.
type ImageType int

// Supported image file formats.
const (
	ImageTypeUnknown ImageType = iota
	ImageTypeHex               // Intel hex (.hex, .ihx)
	ImageTypeIIC               // Cypress C2 EEPROM image (.iic)
	ImageTypeBIX               // Flat binary loaded at address 0 (.bix)
	ImageTypeIMG               // FX3 boot image (.img)
)

// String returns the conventional name of the format.
func (t ImageType) String() string {
	switch t {
	case ImageTypeHex:
		return "Intel hex"
	case ImageTypeIIC:
		return "Cypress IIC"
	case ImageTypeBIX:
		return "flat binary"
	case ImageTypeIMG:
		return "FX3 boot image"
	}
	return "unknown"
}

// DetectImageType maps a file extension to its image format.
func DetectImageType(path string) ImageType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihx":
		return ImageTypeHex
	case ".iic":
		return ImageTypeIIC
	case ".bix":
		return ImageTypeBIX
	case ".img":
		return ImageTypeIMG
	}
	return ImageTypeUnknown
}

// =============================================================================
// Parsed Images
// =============================================================================

// Record is one contiguous span of image data.
type Record struct {
	Addr uint32
	Data []byte
}

// Image is a parsed firmware image, a list of records plus an optional
// entry point (FX3 boot images carry one).
type Image struct {
	Records  []Record
	Entry    uint32
	HasEntry bool
}

// LoadFile reads and parses a firmware image, picking the parser from the
// file extension.
func LoadFile(path string) (*Image, error) {
	typ := DetectImageType(path)
	if typ == ImageTypeUnknown {
		return nil, errors.Errorf("%s is not a recognized image type", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := Parse(f, typ)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return img, nil
}

// Parse parses a firmware image of the given format.
func Parse(r io.Reader, typ ImageType) (*Image, error) {
	switch typ {
	case ImageTypeHex:
		return ParseHex(r)
	case ImageTypeIIC:
		return ParseIIC(r)
	case ImageTypeBIX:
		return ParseBIX(r)
	case ImageTypeIMG:
		return ParseIMG(r)
	}
	return nil, errors.New("unknown image type")
}

// =============================================================================
// Intel Hex
// =============================================================================

// Intel hex record types.
const (
	hexRecordData          = 0x00
	hexRecordEOF           = 0x01
	hexRecordExtSegment    = 0x02
	hexRecordExtLinearAddr = 0x04
)

// ParseHex parses an Intel hex image. Data records are kept in file
// order; extended segment and extended linear address records adjust the
// base address of subsequent data records.
func ParseHex(r io.Reader) (*Image, error) {
	img := &Image{}
	scanner := bufio.NewScanner(r)

	var base uint32
	line := 0

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text[0] != ':' {
			return nil, errors.Errorf("line %d: missing record mark", line)
		}

		raw, err := hex.DecodeString(text[1:])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if len(raw) < 5 {
			return nil, errors.Errorf("line %d: record too short", line)
		}

		count := int(raw[0])
		addr := uint32(raw[1])<<8 | uint32(raw[2])
		typ := raw[3]
		if len(raw) != count+5 {
			return nil, errors.Errorf("line %d: length mismatch", line)
		}

		var sum byte
		for _, b := range raw {
			sum += b
		}
		if sum != 0 {
			return nil, errors.Errorf("line %d: checksum mismatch", line)
		}

		data := raw[4 : 4+count]

		switch typ {
		case hexRecordData:
			img.Records = append(img.Records, Record{
				Addr: base + addr,
				Data: append([]byte(nil), data...),
			})
		case hexRecordEOF:
			return img, nil
		case hexRecordExtSegment:
			if count != 2 {
				return nil, errors.Errorf("line %d: bad segment record", line)
			}
			base = (uint32(data[0])<<8 | uint32(data[1])) << 4
		case hexRecordExtLinearAddr:
			if count != 2 {
				return nil, errors.Errorf("line %d: bad linear address record", line)
			}
			base = (uint32(data[0])<<8 | uint32(data[1])) << 16
		default:
			// Ignore record types we don't use (start addresses)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("missing end-of-file record")
}

// =============================================================================
// Cypress IIC
// =============================================================================

// ParseIIC parses a Cypress C2 EEPROM image: an 8-byte header starting
// with 0xC2, then big-endian length/address blocks. The final block has
// the high bit of its length set.
func ParseIIC(r io.Reader) (*Image, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(buf) < 8 || buf[0] != 0xC2 {
		return nil, errors.New("bad IIC header")
	}

	img := &Image{}
	i := 8

	for {
		if i+4 > len(buf) {
			return nil, errors.New("truncated IIC block header")
		}
		length := int(buf[i])<<8 | int(buf[i+1])
		addr := uint32(buf[i+2])<<8 | uint32(buf[i+3])
		i += 4

		last := length&0x8000 != 0
		length &= 0x7fff

		if i+length > len(buf) {
			return nil, errors.New("truncated IIC block data")
		}

		img.Records = append(img.Records, Record{
			Addr: addr,
			Data: append([]byte(nil), buf[i:i+length]...),
		})
		i += length

		if last {
			return img, nil
		}
	}
}

// =============================================================================
// Flat Binary
// =============================================================================

// ParseBIX parses a flat binary image, loaded at address 0.
func ParseBIX(r io.Reader) (*Image, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, errors.New("empty image")
	}
	return &Image{
		Records: []Record{{Addr: 0, Data: buf}},
	}, nil
}

// =============================================================================
// FX3 Boot Image
// =============================================================================

// ParseIMG parses an FX3 boot image: a "CY" signature, then sections of
// little-endian word count and address, terminated by a zero-length
// section whose address is the program entry point.
func ParseIMG(r io.Reader) (*Image, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(buf) < 4 || buf[0] != 'C' || buf[1] != 'Y' {
		return nil, errors.New("bad boot image signature")
	}

	img := &Image{}
	i := 4

	for {
		if i+8 > len(buf) {
			return nil, errors.New("truncated boot image section")
		}
		words := binary.LittleEndian.Uint32(buf[i:])
		addr := binary.LittleEndian.Uint32(buf[i+4:])
		i += 8

		if words == 0 {
			img.Entry = addr
			img.HasEntry = true
			return img, nil
		}

		n := int(words) * 4
		if i+n > len(buf) {
			return nil, errors.New("truncated boot image data")
		}

		img.Records = append(img.Records, Record{
			Addr: addr,
			Data: append([]byte(nil), buf[i:i+n]...),
		})
		i += n
	}
}
