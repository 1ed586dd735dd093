//go:build linux

package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jhol/cannelloni/config"
	"github.com/jhol/cannelloni/firmware"
	"github.com/jhol/cannelloni/pkg"
	"github.com/jhol/cannelloni/pkg/prof"
	"github.com/jhol/cannelloni/stream"
	"github.com/jhol/cannelloni/usb"
)

const version = "cannelloni 1.0"

var (
	profilePath  = flag.String("profile", "", "Load options from a YAML profile")
	firmwarePath = flag.String("f", "", "Firmware to upload (.hex, .ihx, .iic, .bix, .img)")
	loaderPath   = flag.String("g", "", "Second stage loader firmware file")
	targetName   = flag.String("t", "", "Target type: an21, fx, fx2, fx2lp, fx3")
	deviceID     = flag.String("d", "", "Target device, as an USB vid:pid")
	deviceAddr   = flag.String("p", "", "Target device, as a bus,addr path")

	directionIn  = flag.Bool("i", false, "Run in IN direction, USB to host (default)")
	directionOut = flag.Bool("o", false, "Run in OUT direction, host to USB")
	discard      = flag.Bool("0", false, "No stdin/stdout, discard incoming data and send zeros")

	wideBus   = flag.Bool("w", false, "Use 16 bit wide FIFO bus (default)")
	narrowBus = flag.Bool("8", false, "Use 8 bit wide FIFO bus")
	quadBuf   = flag.Bool("4", false, "Use quadruple buffered FIFO (default)")
	tripleBuf = flag.Bool("3", false, "Use triple buffered FIFO")
	doubleBuf = flag.Bool("2", false, "Use double buffered FIFO")
	asyncBus  = flag.Bool("a", false, "Run in async slave FIFO mode")
	syncBus   = flag.Bool("s", false, "Run in sync slave FIFO mode (default)")

	blockSize = flag.Int("b", config.DefaultBlockSize, "IO block size in bytes, even, 2 to 2^31-2")
	byteLimit = flag.Uint64("n", 0, "Stop after this many bytes, divisible by the block size")

	ifclkSpec = flag.String("c", "", "Interface clock: x, 30[o], 48[o], suffix i to invert")
	cpuSpec   = flag.String("z", "", "8051 frequency and CLKOUT: 12|24|48, o|z, i to invert")

	invertFull   = flag.Bool("l", false, "Invert the 'queue full' flag output pin")
	invertEmpty  = flag.Bool("e", false, "Invert the 'queue empty' flag output pin")
	invertSLWR   = flag.Bool("x", false, "Invert the SLWR input pin")
	invertSLRD   = flag.Bool("r", false, "Invert the SLRD input pin")
	invertSLOE   = flag.Bool("j", false, "Invert the SLOE input pin")
	invertPKTEND = flag.Bool("k", false, "Invert the PKTEND input pin")

	queueDepth   = flag.Int("depth", config.DefaultQueueDepth, "Number of transfers kept in flight")
	xferTimeout  = flag.Duration("timeout", config.DefaultTransferTimeout, "Per-transfer timeout")
	verbosity    = flag.Int("v", 0, "Verbosity, negative for quiet")
	printVersion = flag.Bool("V", false, "Print program version")
	cpuProfile   = flag.String("cpuprofile", "", "Write a CPU profile to this file")
)

func main() {
	flag.Parse()

	if *printVersion {
		fmt.Println(version)
		return
	}

	os.Exit(run())
}

func run() int {
	opts, err := buildOptions()
	if err != nil {
		pkg.LogError(pkg.ComponentCLI, "invalid options", "error", err)
		return 1
	}

	setupLogging(opts.Verbosity)

	if *cpuProfile != "" {
		if err := prof.StartCPU(*cpuProfile); err != nil {
			pkg.LogError(pkg.ComponentCLI, "profiling unavailable", "error", err)
			return 1
		}
		defer prof.StopCPU()
	}

	info, target, err := matchDevice(opts)
	if err != nil {
		pkg.LogError(pkg.ComponentCLI, "no usable device",
			"error", err,
			"hint", "specify -t, -d or -p")
		return 1
	}
	pkg.LogInfo(pkg.ComponentCLI, "found device",
		"device", info.String(),
		"type", target.String())

	if err := program(info, target, opts); err != nil {
		pkg.LogError(pkg.ComponentCLI, "firmware upload failed", "error", err)
		return 1
	}

	stats, err := runSession(info, opts)
	printStats(os.Stderr, stats, opts.Verbosity)
	if err != nil {
		pkg.LogError(pkg.ComponentCLI, "session failed", "error", err)
		return 1
	}
	return 0
}

// printStats writes the transfer summary for a session that ran. A setup
// failure leaves Elapsed zero and produces no line; a session that moved
// bytes before failing still reports them.
func printStats(w io.Writer, stats stream.Stats, verbosity int) {
	if verbosity < 0 || stats.Elapsed == 0 {
		return
	}
	fmt.Fprintf(w, "Transferred %d bytes in %.2f seconds (%.2f MiB/s)\n",
		stats.Bytes, stats.Elapsed.Seconds(), stats.Throughput())
}

// buildOptions merges the YAML profile, when given, with every flag set
// on the command line. Flags win.
func buildOptions() (config.Options, error) {
	opts := config.DefaultOptions()

	if *profilePath != "" {
		var err error
		if opts, err = config.Load(*profilePath); err != nil {
			return opts, err
		}
	}

	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "f":
			opts.Firmware = *firmwarePath
		case "g":
			opts.Loader = *loaderPath
		case "t":
			opts.Target = *targetName
		case "d":
			opts.DeviceID = *deviceID
		case "p":
			opts.DeviceAddr = *deviceAddr
		case "i":
			opts.FIFO.DirectionIn = true
		case "o":
			opts.FIFO.DirectionIn = false
		case "0":
			opts.Discard = *discard
		case "w":
			opts.FIFO.Bus8Bit = false
		case "8":
			opts.FIFO.Bus8Bit = true
		case "4":
			opts.FIFO.BufferCount = 4
		case "3":
			opts.FIFO.BufferCount = 3
		case "2":
			opts.FIFO.BufferCount = 2
		case "a":
			opts.FIFO.AsyncBus = true
		case "s":
			opts.FIFO.AsyncBus = false
		case "b":
			opts.BlockSize = *blockSize
		case "n":
			opts.Limit = *byteLimit
		case "c":
			if err := applyClockSpec(*ifclkSpec, &opts.FIFO); err != nil {
				flagErr = err
			}
		case "z":
			if err := applyCPUSpec(*cpuSpec, &opts.FIFO); err != nil {
				flagErr = err
			}
		case "l":
			opts.FIFO.InvertFullPin = true
		case "e":
			opts.FIFO.InvertEmptyPin = true
		case "x":
			opts.FIFO.InvertSLWRPin = true
		case "r":
			opts.FIFO.InvertSLRDPin = true
		case "j":
			opts.FIFO.InvertSLOEPin = true
		case "k":
			opts.FIFO.InvertPKTENDPin = true
		case "depth":
			opts.QueueDepth = *queueDepth
		case "timeout":
			opts.TransferTimeout = config.Duration(*xferTimeout)
		case "v":
			opts.Verbosity = *verbosity
		}
	})
	if flagErr != nil {
		return opts, flagErr
	}

	return opts, opts.Validate()
}

// setupLogging maps verbosity to a log level and routes diagnostics to
// syslog when stderr is not a terminal, keeping them off the data path.
func setupLogging(verbosity int) {
	switch {
	case verbosity >= 2:
		pkg.SetLogLevel(slog.LevelDebug)
	case verbosity == 1:
		pkg.SetLogLevel(slog.LevelInfo)
	case verbosity == 0:
		pkg.SetLogLevel(slog.LevelWarn)
	default:
		pkg.SetLogLevel(slog.LevelError)
	}

	if !pkg.IsTerminal(int(os.Stderr.Fd())) {
		if err := pkg.UseSyslog("cannelloni"); err != nil {
			pkg.LogWarn(pkg.ComponentCLI, "syslog unavailable", "error", err)
		}
	}
}

// matchDevice finds the device to use, following the selection rules:
// explicit vid:pid or bus,addr narrow the scan, a target type restricts
// it to that family, and with nothing given the first known EZ-USB
// device wins.
func matchDevice(opts config.Options) (usb.DeviceInfo, firmware.Target, error) {
	sel := usb.Selector{}

	if opts.DeviceID != "" {
		vid, pid, err := usb.ParseDeviceID(opts.DeviceID)
		if err != nil {
			return usb.DeviceInfo{}, firmware.TargetUnknown, err
		}
		sel.VendorID, sel.ProductID, sel.HaveID = vid, pid, true
	}
	if opts.DeviceAddr != "" {
		bus, addr, err := usb.ParseDeviceAddr(opts.DeviceAddr)
		if err != nil {
			return usb.DeviceInfo{}, firmware.TargetUnknown, err
		}
		sel.BusNum, sel.DevNum, sel.HaveAddr = bus, addr, true
	}

	wantTarget := firmware.TargetUnknown
	if opts.Target != "" {
		wantTarget, _ = firmware.ParseTarget(opts.Target)
	}

	devices, err := usb.Scan()
	if err != nil {
		return usb.DeviceInfo{}, firmware.TargetUnknown, err
	}

	for _, dev := range devices {
		if !sel.Matches(dev) {
			continue
		}

		known, ok := firmware.DetectTarget(dev.VendorID, dev.ProductID)
		switch {
		case sel.HaveID || sel.HaveAddr:
			// An explicit selector overrides the known-device list;
			// the family then comes from -t or the list
			target := wantTarget
			if target == firmware.TargetUnknown {
				if !ok {
					return usb.DeviceInfo{}, firmware.TargetUnknown,
						pkg.ErrInvalidParameter
				}
				target = known.Target
			}
			return dev, target, nil
		case ok && (wantTarget == firmware.TargetUnknown || known.Target == wantTarget):
			return dev, known.Target, nil
		}
	}

	return usb.DeviceInfo{}, firmware.TargetUnknown, pkg.ErrNotFound
}

// program uploads the firmware over a control-only session, then closes
// the handle so the streaming session can reopen the reprogrammed
// device.
func program(info usb.DeviceInfo, target firmware.Target, opts config.Options) error {
	img, err := firmware.LoadFile(opts.Firmware)
	if err != nil {
		return err
	}

	var loaderImg *firmware.Image
	if opts.Loader != "" {
		if loaderImg, err = firmware.LoadFile(opts.Loader); err != nil {
			return err
		}
	}

	dev, err := usb.Open(info)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := dev.ClaimInterface(stream.StreamInterface); err != nil {
		return err
	}

	loader := &firmware.Loader{
		Device:   dev,
		Target:   target,
		PreReset: opts.FIFO.WriteConfig(),
	}
	if err := loader.Program(img, loaderImg); err != nil {
		return err
	}

	return dev.Close()
}

// runSession reopens the programmed device and streams until the byte
// budget, the host stream, or the operator ends it.
func runSession(info usb.DeviceInfo, opts config.Options) (stream.Stats, error) {
	dev, err := usb.Open(info)
	if err != nil {
		return stream.Stats{}, err
	}
	defer dev.Close()

	canceller, err := stream.NewCanceller(stream.DefaultSignalThreshold)
	if err != nil {
		return stream.Stats{}, err
	}
	defer canceller.Close()

	var bs *stream.ByteStream
	switch {
	case opts.Discard:
		bs = stream.NewDiscardStream()
	case opts.FIFO.DirectionIn:
		bs = stream.NewByteStream(nil, os.Stdout)
	default:
		bs = stream.NewByteStream(os.Stdin, nil)
	}

	return stream.Run(stream.Config{
		Device:          dev,
		Stream:          bs,
		Endpoint:        opts.FIFO.Endpoint(),
		DirectionIn:     opts.FIFO.DirectionIn,
		BlockSize:       opts.BlockSize,
		Limit:           opts.Limit,
		QueueDepth:      opts.QueueDepth,
		TransferTimeout: opts.TransferTimeout.Std(),
		Canceller:       canceller,
	})
}

// applyClockSpec parses the -c argument: "x" for the external IFCLK
// pin, or "30"/"48" for the internal clock, optionally followed by "o"
// to mirror the clock on CLKOUT, then optionally "i" to invert.
func applyClockSpec(spec string, cfg *firmware.FIFOConfig) error {
	s := spec

	switch {
	case len(s) > 0 && s[0] == 'x':
		cfg.UseIFCLK = true
		s = s[1:]
	case len(s) >= 2 && s[:2] == "30":
		cfg.UseIFCLK = false
		cfg.Use48MHzIFCLK = false
		s = s[2:]
		if len(s) > 0 && s[0] == 'o' {
			cfg.RedirectToCLKOUT = true
			s = s[1:]
		}
	case len(s) >= 2 && s[:2] == "48":
		cfg.UseIFCLK = false
		cfg.Use48MHzIFCLK = true
		s = s[2:]
		if len(s) > 0 && s[0] == 'o' {
			cfg.RedirectToCLKOUT = true
			s = s[1:]
		}
	}

	if len(s) > 0 && s[0] == 'i' {
		cfg.InvertIFCLK = true
		s = s[1:]
	}

	if s != "" {
		return fmt.Errorf("bad interface clock spec %q", spec)
	}
	return nil
}

// applyCPUSpec parses the -z argument: an optional core frequency
// (12, 24, 48), an optional CLKOUT driver mode (o to drive, z to
// tristate), and an optional trailing "i" to invert CLKOUT.
func applyCPUSpec(spec string, cfg *firmware.FIFOConfig) error {
	s := spec

	if len(s) >= 2 {
		switch s[:2] {
		case "12":
			cfg.CPUMHz = firmware.CPUMHz12
			s = s[2:]
		case "24":
			cfg.CPUMHz = firmware.CPUMHz24
			s = s[2:]
		case "48":
			cfg.CPUMHz = firmware.CPUMHz48
			s = s[2:]
		}
	}

	if len(s) > 0 {
		switch s[0] {
		case 'o':
			cfg.EnableCLKOUTDriver = true
			s = s[1:]
		case 'z':
			cfg.EnableCLKOUTDriver = false
			s = s[1:]
		}
	}

	if len(s) > 0 && s[0] == 'i' {
		cfg.InvertCLKOUT = true
		s = s[1:]
	}

	if s != "" {
		return fmt.Errorf("bad cpu clock spec %q", spec)
	}
	return nil
}
