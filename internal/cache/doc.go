// Package cache holds the client-resident copy of conversation data: one
// ordered message sequence per conversation plus the conversation summary
// list. Readers always observe a consistent snapshot; a turn's message
// pair is appended atomically.
package cache
