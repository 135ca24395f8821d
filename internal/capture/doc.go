// Package capture acquires the recording device and accumulates a bounded
// audio segment. At most one recording session exists at a time; stopping
// a session finalizes the accumulated PCM into a single WAV blob.
package capture
