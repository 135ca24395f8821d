// Package api is the HTTP client for the PerceptoAI backend: conversation
// list and transcripts, voice preference, and the audio turn exchange
// (multipart upload in, transcript/response/synthesized-speech out).
package api
