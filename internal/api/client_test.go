package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/AhmeddEmad7/PerceptoAI/internal/chat"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL, Timeout: 5 * time.Second}, testLogger())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client, server
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}, testLogger()); err == nil {
		t.Error("Expected error for empty base URL")
	}
}

func TestConversations(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/conversations" || r.Method != http.MethodGet {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 2, "title": "Trip planning"},
			{"id": 1, "title": "First chat"},
		})
	}))

	conversations, err := client.Conversations(context.Background())
	if err != nil {
		t.Fatalf("Conversations failed: %v", err)
	}

	if len(conversations) != 2 {
		t.Fatalf("Expected 2 conversations, got %d", len(conversations))
	}

	if conversations[0].ID != "2" || conversations[0].Title != "Trip planning" {
		t.Errorf("Unexpected first conversation: %+v", conversations[0])
	}

	if conversations[1].ID != "1" {
		t.Errorf("Expected recency order preserved, got %+v", conversations[1])
	}
}

func TestCreateConversation(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]string
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("Failed to parse request body: %v", err)
		}
		if req["title"] != "New Conversation" {
			t.Errorf("Expected default title, got %q", req["title"])
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"id": 7, "title": "New Conversation"})
	}))

	conversation, err := client.CreateConversation(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	if conversation.ID != "7" {
		t.Errorf("Expected id 7, got %q", conversation.ID)
	}
}

func TestMessages(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/conversations/42" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]chat.TurnRecord{
			{MessageID: 10, ConversationID: 42, UserInput: "hello", AIResponse: "hi there", Image: "photo.png"},
			{MessageID: 11, ConversationID: 42, UserInput: "how are you", AIResponse: "fine"},
		})
	}))

	messages, err := client.Messages(context.Background(), "42")
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}

	if len(messages) != 4 {
		t.Fatalf("Expected 4 messages, got %d", len(messages))
	}

	if messages[0].ID != "10-user" || messages[0].Role != chat.RoleUser {
		t.Errorf("Unexpected first message: %+v", messages[0])
	}

	if messages[0].Image != "photo.png" {
		t.Error("Expected image carried on the user message")
	}

	if messages[1].ID != "10-assistant" || messages[1].Role != chat.RoleAssistant {
		t.Errorf("Unexpected second message: %+v", messages[1])
	}

	if messages[1].Image != "" {
		t.Error("Assistant messages must not carry image attachments")
	}

	if messages[2].Content != "how are you" || messages[3].Content != "fine" {
		t.Error("Expected record order preserved in expansion")
	}
}

func TestSubmitTurn(t *testing.T) {
	replyAudio := []byte("mp3-bytes")

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process_audio" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("conversation_id"); got != "42" {
			t.Errorf("Expected conversation_id=42, got %q", got)
		}
		if got := r.URL.Query().Get("voice"); got != "Sarah" {
			t.Errorf("Expected voice=Sarah, got %q", got)
		}
		if r.URL.Query().Get("new_conv") != "" {
			t.Error("Did not expect new_conv for an existing conversation")
		}

		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("Failed to parse multipart form: %v", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("Missing audio file field: %v", err)
		}
		defer file.Close()
		audio, _ := io.ReadAll(file)
		if string(audio) != "fake-wav" {
			t.Errorf("Unexpected audio payload: %q", audio)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"transcription":         "what is the weather",
			"prompt_type":           "question",
			"response":              "sunny all week",
			"audio_response_base64": base64.StdEncoding.EncodeToString(replyAudio),
			"voice":                 "Sarah",
			"conversation_id":       42,
			"message_id":            101,
		})
	}))

	result, err := client.SubmitTurn(context.Background(), "42", []byte("fake-wav"), "Sarah", false)
	if err != nil {
		t.Fatalf("SubmitTurn failed: %v", err)
	}

	if result.Transcript != "what is the weather" {
		t.Errorf("Unexpected transcript: %q", result.Transcript)
	}

	if result.ResponseText != "sunny all week" {
		t.Errorf("Unexpected response: %q", result.ResponseText)
	}

	if string(result.ReplyAudio) != string(replyAudio) {
		t.Error("Expected reply audio decoded from base64")
	}

	if result.ConversationID != "42" || result.MessageID != 101 {
		t.Errorf("Unexpected identifiers: conv=%q msg=%d", result.ConversationID, result.MessageID)
	}
}

func TestSubmitTurnEmptyAudio(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("No request should be sent for an empty payload")
	}))

	_, err := client.SubmitTurn(context.Background(), "1", nil, "", false)
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected *TransportError, got %v", err)
	}
}

func TestSubmitTurnServerErrorSingleAttempt(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "whisper model unavailable", http.StatusInternalServerError)
	}))

	_, err := client.SubmitTurn(context.Background(), "42", []byte("fake-wav"), "", false)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected *TransportError, got %v", err)
	}
	if transportErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", transportErr.StatusCode)
	}

	// Turn submission is not idempotent server-side, so there must be
	// exactly one attempt.
	if requests != 1 {
		t.Errorf("Expected exactly 1 request, got %d", requests)
	}

	stats := client.Stats()
	if stats.TotalRequests != 1 || stats.FailedRequests != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestSubmitTurnContextCancelled(t *testing.T) {
	started := make(chan struct{})
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		// Drain the body so the server detects the client disconnect;
		// otherwise the request context is never cancelled and Cleanup
		// blocks in server.Close.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.SubmitTurn(ctx, "42", []byte("fake-wav"), "", false)
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected *TransportError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected cancellation cause preserved, got %v", err)
	}
}

func TestVoicePreference(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]string{"voice": "Sarah"})
		case http.MethodPut:
			if got := r.URL.Query().Get("voice"); got != "Antoni" {
				t.Errorf("Expected voice=Antoni, got %q", got)
			}
			body, _ := io.ReadAll(r.Body)
			if len(body) != 0 {
				t.Errorf("Expected empty body, got %d bytes", len(body))
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("Unexpected method %s", r.Method)
		}
	}))

	voice, err := client.VoicePreference(context.Background())
	if err != nil {
		t.Fatalf("VoicePreference failed: %v", err)
	}
	if voice != "Sarah" {
		t.Errorf("Expected voice Sarah, got %q", voice)
	}

	if err := client.SetVoicePreference(context.Background(), "Antoni"); err != nil {
		t.Fatalf("SetVoicePreference failed: %v", err)
	}
}
