// Package prof provides profiling utilities for throughput tuning.
//
// The streaming engine targets sustained multi-tens-of-MiB/s rates, so the
// discard/zero-fill benchmark mode is the natural place to capture profiles.
// The package wraps [runtime/pprof] and is conditionally compiled using the
// "profile" build tag:
//
//	go build -tags profile
//
// When built without the "profile" tag, all exported functions become no-ops,
// allowing the -cpuprofile flag to remain wired without overhead in normal
// builds.
//
// # CPU Profiling
//
// CPU profiling streams samples to a file and requires explicit start/stop:
//
//	prof.StartCPU("cpu.prof")
//	defer prof.StopCPU()
//
// Attempting to start CPU profiling while already active returns
// [ErrCPUProfileActive].
//
// # Snapshot Profiles
//
// Other profiles capture a point-in-time snapshot:
//
//	prof.Write(prof.ProfileHeap, "heap.prof")
package prof
