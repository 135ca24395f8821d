package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Fake PerceptoAI backend for local development. It accepts audio turns,
// returns canned transcriptions and replies, and keeps conversations in
// memory.

type conversationResponse struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type turnRecord struct {
	MessageID      int64  `json:"message_id"`
	ConversationID int64  `json:"conversation_id"`
	UserInput      string `json:"user_input"`
	AIResponse     string `json:"ai_response"`
	Image          string `json:"image,omitempty"`
}

type turnResponse struct {
	Transcription       string `json:"transcription"`
	PromptType          string `json:"prompt_type"`
	Response            string `json:"response"`
	AudioResponseBase64 string `json:"audio_response_base64"`
	Voice               string `json:"voice"`
	ConversationID      int64  `json:"conversation_id"`
	MessageID           int64  `json:"message_id"`
}

type backendState struct {
	mu            sync.Mutex
	conversations []conversationResponse
	records       map[int64][]turnRecord
	nextConvID    int64
	nextMessageID int64
	voice         string
}

func newBackendState() *backendState {
	return &backendState{
		records:       make(map[int64][]turnRecord),
		nextConvID:    1,
		nextMessageID: 1,
		voice:         "alloy",
	}
}

func (s *backendState) handleConversations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.conversations)

	case http.MethodPost:
		var body struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == "" {
			body.Title = "New Conversation"
		}
		conv := conversationResponse{ID: s.nextConvID, Title: body.Title}
		s.nextConvID++
		// Newest first, like the real backend
		s.conversations = append([]conversationResponse{conv}, s.conversations...)
		log.Printf("Created conversation %d (%s)", conv.ID, conv.Title)
		writeJSON(w, conv)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *backendState) handleConversationDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/conversations/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid conversation id", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.records[id]
	if !ok {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, records)
}

func (s *backendState) handleProcessAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(25 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	voice := query.Get("voice")
	newConv := query.Get("new_conv") == "true"

	s.mu.Lock()
	defer s.mu.Unlock()

	if voice == "" {
		voice = s.voice
	}

	var convID int64
	if newConv {
		conv := conversationResponse{ID: s.nextConvID, Title: "Voice Conversation"}
		s.nextConvID++
		s.conversations = append([]conversationResponse{conv}, s.conversations...)
		convID = conv.ID
	} else {
		convID, err = strconv.ParseInt(query.Get("conversation_id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid conversation id", http.StatusBadRequest)
			return
		}
	}

	messageID := s.nextMessageID
	s.nextMessageID++

	transcription := fmt.Sprintf("Test transcription of %d audio bytes", len(audioData))
	response := "This is a canned assistant reply from the test backend."

	s.records[convID] = append(s.records[convID], turnRecord{
		MessageID:      messageID,
		ConversationID: convID,
		UserInput:      transcription,
		AIResponse:     response,
	})

	log.Printf("Processed audio turn: conversation=%d message=%d file=%s bytes=%d voice=%s new_conv=%v",
		convID, messageID, header.Filename, len(audioData), voice, newConv)

	// Simulate model latency
	time.Sleep(200 * time.Millisecond)

	writeJSON(w, turnResponse{
		Transcription:       transcription,
		PromptType:          "general",
		Response:            response,
		AudioResponseBase64: base64.StdEncoding.EncodeToString([]byte("fake-mp3-audio")),
		Voice:               voice,
		ConversationID:      convID,
		MessageID:           messageID,
	})
}

func (s *backendState) handleVoice(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]string{"voice": s.voice})

	case http.MethodPut:
		voice := r.URL.Query().Get("voice")
		if voice == "" {
			http.Error(w, "Voice required", http.StatusBadRequest)
			return
		}
		s.voice = voice
		log.Printf("Voice preference set to %s", voice)
		writeJSON(w, map[string]string{"voice": s.voice})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func main() {
	state := newBackendState()

	http.HandleFunc("/conversations", state.handleConversations)
	http.HandleFunc("/conversations/", state.handleConversationDetail)
	http.HandleFunc("/process_audio", state.handleProcessAudio)
	http.HandleFunc("/voice", state.handleVoice)

	port := ":8000"
	log.Printf("Test backend starting on port %s", port)
	log.Printf("Point the client at: http://localhost%s", port)

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
