package media

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Store writes reply audio blobs under a single directory. The backend
// delivers assistant speech inline as bytes, not as a fetchable URL, so
// the client materializes its own playable reference.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates the media directory if needed.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("media directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// SaveReplyAudio writes one assistant reply as an MP3 file named after
// the canonical message id and returns its path. Re-saving the same
// message overwrites the previous file.
func (s *Store) SaveReplyAudio(messageID int64, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("reply audio for message %d is empty", messageID)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("reply_%d.mp3", messageID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write reply audio %s: %w", path, err)
	}

	s.logger.Debug("Reply audio saved",
		slog.Int64("message_id", messageID),
		slog.String("path", path),
		slog.Int("bytes", len(data)),
	)

	return path, nil
}
