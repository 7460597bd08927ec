// package tasks implements the synchronization daemon.
//
// A [Daemon] cycle is a [Walker] sweep over every stored artist followed by a
// [Dispatcher] pass over pending notifications. Each sweep step reconciles one
// artist's release groups through a [Reconciler]; between steps a [JobProcessor]
// drains user-submitted jobs so interactive actions stay responsive during a long sweep.
//
// Everything runs on one goroutine. Long-running operations emit [ProgressUpdate]
// values on an optional channel for non-blocking status reporting to the CLI.
package tasks
