package media

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSaveReplyAudio(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "media")
	store, err := NewStore(dir, testLogger())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	data := []byte("mp3-bytes")
	path, err := store.SaveReplyAudio(101, data)
	if err != nil {
		t.Fatalf("SaveReplyAudio failed: %v", err)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved audio: %v", err)
	}
	if !bytes.Equal(written, data) {
		t.Error("Saved audio does not match input")
	}

	if filepath.Base(path) != "reply_101.mp3" {
		t.Errorf("Unexpected file name: %s", filepath.Base(path))
	}
}

func TestSaveReplyAudioEmpty(t *testing.T) {
	store, err := NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if _, err := store.SaveReplyAudio(1, nil); err == nil {
		t.Error("Expected error for empty reply audio")
	}
}

func TestNewStoreEmptyDir(t *testing.T) {
	if _, err := NewStore("", testLogger()); err == nil {
		t.Error("Expected error for empty media directory")
	}
}
