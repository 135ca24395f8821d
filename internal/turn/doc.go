// Package turn drives the voice interaction lifecycle: it gates the
// recording device, exchanges finalized segments with the backend, and
// merges completed turns into the conversation cache. The controller
// moves Idle -> Recording -> Processing -> Idle, with every failure edge
// returning to Idle without touching the cache.
package turn
