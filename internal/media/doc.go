// Package media persists synthesized reply audio to the local media
// directory and hands back playable file references for assistant
// messages.
package media
