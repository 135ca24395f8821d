package chat

import (
	"fmt"

	"github.com/google/uuid"
)

// Role identifies which side of a turn a message belongs to.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one half of a turn. A user message always immediately
// precedes its paired assistant message in a conversation sequence.
// Messages are never mutated after insertion.
type Message struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	Image    string `json:"image,omitempty"`     // user-authored attachments only
	AudioURL string `json:"audio_url,omitempty"` // synthesized speech, assistant only
}

// Conversation is a summary entry as returned by the conversation list
// endpoint. The server owns conversations; the client holds an
// eventually-consistent copy.
type Conversation struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Pending bool   `json:"-"` // placeholder awaiting the first server round-trip
}

// TurnRecord is one turn as delivered by the transcript fetch endpoint.
type TurnRecord struct {
	MessageID      int64  `json:"message_id"`
	ConversationID int64  `json:"conversation_id"`
	UserInput      string `json:"user_input"`
	AIResponse     string `json:"ai_response"`
	Image          string `json:"image,omitempty"`
}

// ExpandRecords converts server turn records into the flat message
// sequence the client renders, preserving record order. Each record
// yields exactly two messages, user first.
func ExpandRecords(records []TurnRecord) []Message {
	messages := make([]Message, 0, len(records)*2)
	for _, rec := range records {
		user, assistant := ExpandRecord(rec)
		messages = append(messages, user, assistant)
	}
	return messages
}

// ExpandRecord builds the user/assistant pair for a single turn record.
func ExpandRecord(rec TurnRecord) (Message, Message) {
	user := Message{
		ID:      fmt.Sprintf("%d-user", rec.MessageID),
		Role:    RoleUser,
		Content: rec.UserInput,
		Image:   rec.Image,
	}
	assistant := Message{
		ID:      fmt.Sprintf("%d-assistant", rec.MessageID),
		Role:    RoleAssistant,
		Content: rec.AIResponse,
	}
	return user, assistant
}

// TurnMessages builds the message pair for a freshly completed turn from
// the canonical message id assigned by the server.
func TurnMessages(messageID int64, transcript, response, audioURL string) (Message, Message) {
	user := Message{
		ID:      fmt.Sprintf("%d-user", messageID),
		Role:    RoleUser,
		Content: transcript,
	}
	assistant := Message{
		ID:       fmt.Sprintf("%d-assistant", messageID),
		Role:     RoleAssistant,
		Content:  response,
		AudioURL: audioURL,
	}
	return user, assistant
}

// NewPlaceholderConversation returns a transient local conversation shown
// while the server-side create has not completed yet. The placeholder id
// never reaches the server.
func NewPlaceholderConversation(title string) Conversation {
	if title == "" {
		title = "New Conversation"
	}
	return Conversation{
		ID:      "pending-" + uuid.NewString(),
		Title:   title,
		Pending: true,
	}
}
