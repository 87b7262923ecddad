// Package console implements the polled serial command console.
package console

// The console runs as a single cooperative loop with no blocking besides
// the transport's own send. Each iteration polls the heartbeat first and
// then at most one received byte:
//
//   Ticks -> Heartbeat -> Transport
//   Transport -> Accumulator -> Dispatcher -> Transport
//
// Both flows write to the same Transport. That is safe only because the
// loop never runs two steps at once; a Console must not be shared between
// goroutines.
