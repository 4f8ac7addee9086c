// Package parallel decodes many grid files concurrently.
//
// It provides:
//   - WorkerPool: bounded concurrency with optional fail-fast cancellation
//   - DecodeFiles: one decode per file, results sorted by source
//   - SelectFiles: expands directories into the grid files they hold
//
// Each decode is shared-nothing; the pool only bounds how many run at once.
package parallel
