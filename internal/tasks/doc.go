// Package tasks runs the periodic capture-and-analyze loop.
//
// # Capture Loop
//
// [CaptureLoop] owns the camera [capture.Stream] and a single repeating ticker while it runs.
// Every tick either starts one analysis or, when the previous analysis has not returned yet,
// is skipped. At most one request is in flight per run.
//
//	Start -> open camera -> ticker -> tick -> frame -> encode -> Analyzer -> Event
//	                                    \-> busy -> EventTickSkipped
//
// # Events
//
// Progress is reported through a caller-supplied sink as [Event] values. The sink is called
// from loop goroutines and must not block; the shell forwards events into a buffered channel
// with select/default and applies them on its own goroutine.
//
// Each event carries the generation passed to [CaptureLoop.Start]. Once [CaptureLoop.Stop]
// returns, no event of the stopped run reaches the sink, even if its request completes later.
//
// # Teardown
//
// Stop cancels the run context (aborting the in-flight request), stops the ticker and releases
// the camera. Cancelling the context given to Start has the same effect.
package tasks
