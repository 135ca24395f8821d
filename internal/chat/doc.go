// Package chat defines the shared conversation data model: messages,
// conversation summaries, and the expansion of server turn records into
// user/assistant message pairs.
package chat
