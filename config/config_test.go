package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validOptions() Options {
	opts := DefaultOptions()
	opts.Firmware = "slave.hex"
	return opts
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.Equal(t, DefaultBlockSize, opts.BlockSize)
	require.Equal(t, DefaultQueueDepth, opts.QueueDepth)
	require.Equal(t, DefaultTransferTimeout, opts.TransferTimeout.Std())
	require.True(t, opts.FIFO.DirectionIn)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{"defaults with firmware", func(o *Options) {}, false},
		{"missing firmware", func(o *Options) { o.Firmware = "" }, true},
		{"both device selectors", func(o *Options) {
			o.DeviceID = "04b4:8613"
			o.DeviceAddr = "1,4"
		}, true},
		{"known target", func(o *Options) { o.Target = "fx2lp" }, false},
		{"unknown target", func(o *Options) { o.Target = "fx9" }, true},
		{"odd block size", func(o *Options) { o.BlockSize = 16383 }, true},
		{"block size too small", func(o *Options) { o.BlockSize = 0 }, true},
		{"minimum block size", func(o *Options) { o.BlockSize = 2; o.Limit = 0 }, false},
		{"limit multiple of block", func(o *Options) { o.Limit = 16384 * 3 }, false},
		{"limit not multiple of block", func(o *Options) { o.Limit = 16384 + 2 }, true},
		{"odd limit", func(o *Options) { o.BlockSize = 2; o.Limit = 3 }, true},
		{"zero queue depth", func(o *Options) { o.QueueDepth = 0 }, true},
		{"zero timeout", func(o *Options) { o.TransferTimeout = 0 }, true},
		{"bad fifo buffers", func(o *Options) { o.FIFO.BufferCount = 5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	const profile = `
firmware: slave.hex
target: fx2lp
block_size: 4096
limit: 40960
queue_depth: 8
transfer_timeout: 500ms
discard: true
fifo:
  direction_in: false
  buffer_count: 2
  bus_8bit: true
`
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profile), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "slave.hex", opts.Firmware)
	require.Equal(t, "fx2lp", opts.Target)
	require.Equal(t, 4096, opts.BlockSize)
	require.Equal(t, uint64(40960), opts.Limit)
	require.Equal(t, 8, opts.QueueDepth)
	require.Equal(t, 500*time.Millisecond, opts.TransferTimeout.Std())
	require.True(t, opts.Discard)
	require.False(t, opts.FIFO.DirectionIn)
	require.Equal(t, 2, opts.FIFO.BufferCount)
	require.True(t, opts.FIFO.Bus8Bit)

	// Untouched fields keep their defaults
	require.Equal(t, 48, opts.FIFO.CPUMHz)

	require.NoError(t, opts.Validate())
}

func TestLoadUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("frimware: oops.hex\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDurationUnmarshalBad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("firmware: a.hex\ntransfer_timeout: fast\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
