// Package stream implements the asynchronous bulk streaming engine.
//
// The engine keeps a bulk endpoint continuously fed or drained with a
// fixed pool of reusable transfer slots. Each slot owns one buffer for
// its whole lifetime, so the hot path never allocates. A single-threaded
// dispatcher multiplexes transfer completions and cancellation signals
// over one poll call: on every wake it services completed transfers,
// moves their bytes to or from the host byte stream, and resubmits the
// slot until the byte budget or the host stream runs out.
//
// Termination signals never interrupt the engine mid-operation. A
// controller converts them to a readable descriptor that the dispatcher
// observes between iterations, cancels the outstanding transfers, and
// lets them drain. Repeated signals past a threshold force the process
// down immediately.
//
// All engine state is owned by the dispatching goroutine. Nothing in
// this package takes a lock and nothing may be called concurrently with
// Run.
package stream
