package cache

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/AhmeddEmad7/PerceptoAI/internal/chat"
)

// ErrUnknownConversation indicates an append was attempted for a
// conversation that was never seeded. The caller must fetch and Seed the
// transcript first.
var ErrUnknownConversation = errors.New("conversation not seeded in cache")

// Store is the process-resident conversation cache. It has exactly one
// writer per conversation at a time (the turn controller or the initial
// fetch path) and any number of concurrent readers.
type Store struct {
	logger *slog.Logger

	mu             sync.RWMutex
	messages       map[string][]chat.Message
	summaries      []chat.Conversation
	summariesFresh bool
}

// Stats describes cache contents for monitoring.
type Stats struct {
	Conversations  int  `json:"conversations"`
	Messages       int  `json:"messages"`
	Summaries      int  `json:"summaries"`
	SummariesFresh bool `json:"summaries_fresh"`
}

// NewStore creates an empty cache.
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		logger:   logger,
		messages: make(map[string][]chat.Message),
	}
}

// Read returns a snapshot of the cached message sequence for a
// conversation. The second return is false when the conversation is
// unknown, which obliges the caller to fetch and Seed.
func (s *Store) Read(conversationID string) ([]chat.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[conversationID]
	if !ok {
		return nil, false
	}

	snapshot := make([]chat.Message, len(messages))
	copy(snapshot, messages)
	return snapshot, true
}

// Seed replaces the entire cached sequence for a conversation. Used for
// the initial transcript load and for refetches after invalidation.
func (s *Store) Seed(conversationID string, messages []chat.Message) {
	entry := make([]chat.Message, len(messages))
	copy(entry, messages)

	s.mu.Lock()
	s.messages[conversationID] = entry
	s.mu.Unlock()

	s.logger.Debug("Conversation cache seeded",
		slog.String("conversation_id", conversationID),
		slog.Int("messages", len(entry)),
	)
}

// AppendTurn appends a completed turn's user/assistant pair to the end of
// a seeded conversation. The pair is inseparable for any observer: a
// concurrent Read sees either neither message or both.
func (s *Store) AppendTurn(conversationID string, user, assistant chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.messages[conversationID]
	if !ok {
		return ErrUnknownConversation
	}

	s.messages[conversationID] = append(entry, user, assistant)

	s.logger.Debug("Turn appended to conversation cache",
		slog.String("conversation_id", conversationID),
		slog.String("user_message_id", user.ID),
		slog.String("assistant_message_id", assistant.ID),
	)

	return nil
}

// Invalidate drops a conversation's cached sequence, forcing the next
// Read to miss and refetch.
func (s *Store) Invalidate(conversationID string) {
	s.mu.Lock()
	delete(s.messages, conversationID)
	s.mu.Unlock()

	s.logger.Debug("Conversation cache entry invalidated",
		slog.String("conversation_id", conversationID),
	)
}

// Summaries returns a snapshot of the conversation summary list and
// whether it is fresh. A stale list may still be rendered while a
// refetch is in flight.
func (s *Store) Summaries() ([]chat.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]chat.Conversation, len(s.summaries))
	copy(snapshot, s.summaries)
	return snapshot, s.summariesFresh
}

// SetSummaries replaces the summary list and marks it fresh.
func (s *Store) SetSummaries(summaries []chat.Conversation) {
	entry := make([]chat.Conversation, len(summaries))
	copy(entry, summaries)

	s.mu.Lock()
	s.summaries = entry
	s.summariesFresh = true
	s.mu.Unlock()

	s.logger.Debug("Conversation summaries cached",
		slog.Int("summaries", len(entry)),
	)
}

// InvalidateSummaries marks the summary list stale. The cached list stays
// readable until the next SetSummaries. Called after a completed turn,
// since a turn may reorder or retitle conversations server-side.
func (s *Store) InvalidateSummaries() {
	s.mu.Lock()
	s.summariesFresh = false
	s.mu.Unlock()

	s.logger.Debug("Conversation summaries marked stale")
}

// Stats reports current cache contents.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, entry := range s.messages {
		total += len(entry)
	}

	return Stats{
		Conversations:  len(s.messages),
		Messages:       total,
		Summaries:      len(s.summaries),
		SummariesFresh: s.summariesFresh,
	}
}
