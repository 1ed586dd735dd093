// Package config holds the streaming session options, their defaults,
// validation rules, and YAML profile loading.
package config

import (
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jhol/cannelloni/firmware"
)

// =============================================================================
// Options
// =============================================================================

// Defaults applied by DefaultOptions.
const (
	DefaultBlockSize       = 16384
	DefaultQueueDepth      = 4
	DefaultTransferTimeout = time.Second
)

// Options collects everything a streaming session needs: which device to
// open, what firmware to program into it, and how to move the data.
// Options come from a YAML profile, command line flags, or both, with
// flags overriding the profile.
type Options struct {
	// Firmware is the path of the image to upload. Required.
	Firmware string `yaml:"firmware"`

	// Loader is an optional second stage loader image.
	Loader string `yaml:"loader"`

	// Target names the microcontroller family: an21, fx, fx2, fx2lp,
	// fx3. Empty means detect from the matched device.
	Target string `yaml:"target"`

	// DeviceID selects the device by "vid:pid" in hexadecimal.
	DeviceID string `yaml:"device_id"`

	// DeviceAddr selects the device by "bus,addr" in decimal.
	DeviceAddr string `yaml:"device_addr"`

	// BlockSize is the transfer block size in bytes. Must be even.
	BlockSize int `yaml:"block_size"`

	// Limit stops the session after this many bytes. Zero streams
	// until the input ends or a signal arrives. Must be a multiple of
	// BlockSize when set.
	Limit uint64 `yaml:"limit"`

	// Discard detaches the byte stream from stdin/stdout: incoming
	// data is dropped and outgoing data is zeros. For speed testing.
	Discard bool `yaml:"discard"`

	// QueueDepth is the number of transfers kept in flight.
	QueueDepth int `yaml:"queue_depth"`

	// TransferTimeout bounds each bulk transfer.
	TransferTimeout Duration `yaml:"transfer_timeout"`

	// FIFO configures the slave FIFO interface on the device.
	FIFO firmware.FIFOConfig `yaml:"fifo"`

	// Verbosity adjusts log output, negative for quiet.
	Verbosity int `yaml:"verbosity"`
}

// DefaultOptions returns the options a bare command line implies.
func DefaultOptions() Options {
	return Options{
		BlockSize:       DefaultBlockSize,
		QueueDepth:      DefaultQueueDepth,
		TransferTimeout: Duration(DefaultTransferTimeout),
		FIFO:            firmware.DefaultFIFOConfig(),
	}
}

// Load reads a YAML profile over the defaults. Unknown keys are
// rejected so a typo doesn't silently fall back to a default.
func Load(path string) (Options, error) {
	opts := DefaultOptions()

	f, err := os.Open(path)
	if err != nil {
		return opts, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil {
		return opts, errors.Wrap(err, path)
	}
	return opts, nil
}

// Validate checks option values and their cross-field constraints.
func (o *Options) Validate() error {
	if o.Firmware == "" {
		return errors.New("no firmware specified")
	}
	if o.DeviceID != "" && o.DeviceAddr != "" {
		return errors.New("only one of device_id or device_addr can be specified")
	}
	if o.Target != "" {
		if _, err := firmware.ParseTarget(o.Target); err != nil {
			return errors.Errorf("illegal microcontroller type: %s", o.Target)
		}
	}

	if o.BlockSize < 2 || o.BlockSize%2 != 0 || o.BlockSize > math.MaxInt32-1 {
		return errors.New("block size must be even, from 2 to 2^31-2")
	}
	if o.Limit != 0 {
		if o.Limit < 2 || o.Limit%2 != 0 {
			return errors.New("byte limit must be even and at least 2")
		}
		if o.Limit%uint64(o.BlockSize) != 0 {
			return errors.New("byte limit must be divisible by block size")
		}
	}

	if o.QueueDepth < 1 {
		return errors.New("queue depth must be at least 1")
	}
	if o.TransferTimeout <= 0 {
		return errors.New("transfer timeout must be positive")
	}

	if err := o.FIFO.Validate(); err != nil {
		return errors.Wrap(err, "fifo configuration")
	}
	return nil
}

// =============================================================================
// YAML Duration
// =============================================================================

// Duration wraps time.Duration with YAML support for strings like
// "500ms" or "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrap(err, "duration")
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
