// Package audio provides WAV encoding and inspection for captured PCM
// audio. Recorded segments are finalized into WAV blobs before upload.
package audio
