//go:build linux

package stream

import (
	"encoding/binary"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/jhol/cannelloni/pkg"
)

// =============================================================================
// Cancellation Controller
// =============================================================================

// DefaultSignalThreshold is how many termination signals are tolerated
// before the process is forced down without draining.
const DefaultSignalThreshold = 5

// Canceller converts termination signals into a readable descriptor.
// The dispatcher consumes the descriptor only between loop iterations,
// so cancellation is always observed at a safe point and never re-enters
// submission code from signal context. Past the threshold the operator
// is assumed stuck and the process exits immediately.
type Canceller struct {
	eventFD   int
	sigCh     chan os.Signal
	threshold int
	exit      func(code int)

	closeOnce sync.Once
	done      chan struct{}
}

// NewCanceller installs handlers for the given signals, SIGINT and
// SIGTERM when none are named, and starts forwarding them to the
// descriptor.
func NewCanceller(threshold int, signals ...os.Signal) (*Canceller, error) {
	return newCanceller(func(code int) { os.Exit(code) }, threshold, signals...)
}

// newCanceller lets tests intercept the forced exit.
func newCanceller(exit func(code int), threshold int, signals ...os.Signal) (*Canceller, error) {
	if threshold <= 0 {
		threshold = DefaultSignalThreshold
	}
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}

	c := &Canceller{
		eventFD:   fd,
		sigCh:     make(chan os.Signal, threshold),
		threshold: threshold,
		exit:      exit,
		done:      make(chan struct{}),
	}
	signal.Notify(c.sigCh, signals...)

	go c.forward()
	return c, nil
}

// forward counts signals, pokes the descriptor for each, and force-exits
// at the threshold.
func (c *Canceller) forward() {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)

	count := 0
	for {
		select {
		case <-c.done:
			return
		case <-c.sigCh:
		}

		count++
		if count >= c.threshold {
			pkg.LogError(pkg.ComponentSession, "received too many signals, forcibly stopping")
			c.exit(1)
			return
		}

		pkg.LogInfo(pkg.ComponentSession, "signal received, stopping after the current transfer")
		unix.Write(c.eventFD, buf[:])
	}
}

// FD returns the descriptor that becomes readable when cancellation has
// been requested.
func (c *Canceller) FD() int {
	return c.eventFD
}

// Drain consumes pending cancellation events. It reports whether any
// were delivered since the last call and never blocks.
func (c *Canceller) Drain() bool {
	var buf [8]byte
	n, err := unix.Read(c.eventFD, buf[:])
	return err == nil && n == 8
}

// Close stops signal forwarding and releases the descriptor. Safe to
// call more than once.
func (c *Canceller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		signal.Stop(c.sigCh)
		close(c.done)
		err = unix.Close(c.eventFD)
	})
	return err
}
