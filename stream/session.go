//go:build linux

package stream

import (
	"time"

	"github.com/pkg/errors"

	"github.com/jhol/cannelloni/pkg"
)

// =============================================================================
// Session
// =============================================================================

// Interface and alternate setting exposing the bulk endpoints. Only bulk
// streaming is supported.
const (
	StreamInterface = 0
	BulkAltSetting  = 1

	maxPollWait = 500 * time.Millisecond
)

// Config parameterizes one streaming session.
type Config struct {
	// Device carries the transfers.
	Device SessionDevice

	// Stream is the host side of the pipe.
	Stream *ByteStream

	// Endpoint is the bulk endpoint address, direction bit included.
	Endpoint uint8

	// DirectionIn streams device-to-host when true.
	DirectionIn bool

	// BlockSize is the byte length of every transfer.
	BlockSize int

	// Limit stops the session after this many bytes, 0 for unlimited.
	Limit uint64

	// QueueDepth is the number of transfer slots kept in flight.
	QueueDepth int

	// TransferTimeout bounds each submitted transfer.
	TransferTimeout time.Duration

	// Canceller delivers cooperative shutdown. Optional; without one
	// the session only ends by exhaustion or error.
	Canceller *Canceller
}

// Stats reports what a finished session moved.
type Stats struct {
	Bytes   uint64
	Elapsed time.Duration
}

// Throughput returns the session's data rate in MiB/s.
func (s Stats) Throughput() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Bytes) / (1024 * 1024) / secs
}

// Session is the engine state for one run. All fields are owned by the
// dispatching goroutine; there is exactly one mutator.
type Session struct {
	cfg  Config
	pool *Pool

	// toSchedule is the byte count not yet handed to the device.
	// Meaningful only when limited.
	toSchedule uint64
	limited    bool

	// final stops new submissions once the host stream ended short.
	final bool

	transferred uint64

	aborting bool
	abortErr error
}

// NewSession builds the session and its slot pool.
func NewSession(cfg Config) *Session {
	return &Session{
		cfg:        cfg,
		pool:       NewPool(cfg.QueueDepth, cfg.BlockSize),
		toSchedule: cfg.Limit,
		limited:    cfg.Limit != 0,
	}
}

// Run claims the streaming interface, selects the bulk alternate
// setting, drives the dispatcher until the session drains, and releases
// the interface. Statistics are valid even when an error is returned:
// bytes moved before the failure stay counted.
func Run(cfg Config) (Stats, error) {
	dev := cfg.Device

	if err := dev.ClaimInterface(StreamInterface); err != nil {
		return Stats{}, errors.Wrap(err, "claim interface")
	}
	defer dev.ReleaseInterface(StreamInterface)

	if err := dev.SetAltSetting(StreamInterface, BulkAltSetting); err != nil {
		return Stats{}, errors.Wrap(err, "set alternate setting")
	}

	s := NewSession(cfg)

	start := time.Now()
	err := s.dispatch()
	stats := Stats{
		Bytes:   s.transferred,
		Elapsed: time.Since(start),
	}

	pkg.LogDebug(pkg.ComponentSession, "session finished",
		"bytes", stats.Bytes,
		"elapsed", stats.Elapsed,
		"error", err)

	return stats, err
}
