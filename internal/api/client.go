package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AhmeddEmad7/PerceptoAI/internal/chat"
)

// Config contains backend client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the PerceptoAI backend over HTTP. All endpoints are
// addressed relative to one base URL.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger

	// Statistics
	totalRequests  uint64
	failedRequests uint64
	mu             sync.RWMutex
}

// TurnResult is the outcome of one submitted audio turn.
type TurnResult struct {
	Transcript     string
	PromptType     string
	ResponseText   string
	ReplyAudio     []byte // decoded synthesized speech (MP3)
	Voice          string
	ConversationID string
	MessageID      int64
}

// ClientStats reports request counters for monitoring.
type ClientStats struct {
	TotalRequests  uint64 `json:"total_requests"`
	FailedRequests uint64 `json:"failed_requests"`
}

// Wire shapes. The backend uses numeric ids; the client model uses
// strings throughout.
type conversationPayload struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type turnPayload struct {
	Transcription       string `json:"transcription"`
	PromptType          string `json:"prompt_type"`
	Response            string `json:"response"`
	AudioResponseBase64 string `json:"audio_response_base64"`
	Voice               string `json:"voice"`
	ConversationID      int64  `json:"conversation_id"`
	MessageID           int64  `json:"message_id"`
}

type voicePayload struct {
	Voice string `json:"voice"`
}

// NewClient creates a backend client. An empty base URL is a
// configuration error, not a runtime fault.
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", config.BaseURL, err)
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Conversations fetches the recency-ordered conversation summary list.
func (c *Client) Conversations(ctx context.Context) ([]chat.Conversation, error) {
	var payload []conversationPayload
	if err := c.doJSON(ctx, http.MethodGet, "/conversations", nil, nil, &payload); err != nil {
		return nil, err
	}

	conversations := make([]chat.Conversation, 0, len(payload))
	for _, p := range payload {
		conversations = append(conversations, chat.Conversation{
			ID:    strconv.FormatInt(p.ID, 10),
			Title: p.Title,
		})
	}
	return conversations, nil
}

// CreateConversation asks the server to create a new conversation and
// returns its canonical summary.
func (c *Client) CreateConversation(ctx context.Context, title string) (chat.Conversation, error) {
	if title == "" {
		title = "New Conversation"
	}
	body, err := json.Marshal(map[string]string{"title": title})
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("failed to encode conversation request: %w", err)
	}

	var payload conversationPayload
	if err := c.doJSON(ctx, http.MethodPost, "/conversations", nil, body, &payload); err != nil {
		return chat.Conversation{}, err
	}

	return chat.Conversation{
		ID:    strconv.FormatInt(payload.ID, 10),
		Title: payload.Title,
	}, nil
}

// Messages fetches the full transcript of a conversation, expanded into
// the flat user/assistant message sequence in record order.
func (c *Client) Messages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var records []chat.TurnRecord
	path := "/conversations/" + url.PathEscape(conversationID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &records); err != nil {
		return nil, err
	}
	return chat.ExpandRecords(records), nil
}

// SubmitTurn uploads one finalized audio segment for the given
// conversation and returns the completed turn. The blob travels as an
// opaque multipart file; conversation id and voice ride as query
// parameters. A submitted turn is never retried: the server applies its
// side effects on receipt, so the caller surfaces failure instead.
func (c *Client) SubmitTurn(ctx context.Context, conversationID string, audioWAV []byte, voice string, newConversation bool) (*TurnResult, error) {
	const op = "submit turn"

	if len(audioWAV) == 0 {
		return nil, &TransportError{Op: op, Message: "empty audio payload"}
	}

	body, contentType, err := buildTurnBody(audioWAV)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	query := url.Values{}
	query.Set("conversation_id", conversationID)
	if voice != "" {
		query.Set("voice", voice)
	}
	if newConversation {
		query.Set("new_conv", "true")
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/process_audio", query, body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	c.logger.Info("Submitting audio turn",
		slog.String("conversation_id", conversationID),
		slog.String("voice", voice),
		slog.Bool("new_conversation", newConversation),
		slog.Int("audio_bytes", len(audioWAV)),
	)

	var payload turnPayload
	if err := c.do(req, op, &payload); err != nil {
		return nil, err
	}

	replyAudio, err := base64.StdEncoding.DecodeString(payload.AudioResponseBase64)
	if err != nil {
		return nil, &TransportError{Op: op, Message: "undecodable reply audio", Err: err}
	}

	c.logger.Info("Audio turn completed",
		slog.String("conversation_id", strconv.FormatInt(payload.ConversationID, 10)),
		slog.Int64("message_id", payload.MessageID),
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("reply_audio_bytes", len(replyAudio)),
	)

	return &TurnResult{
		Transcript:     payload.Transcription,
		PromptType:     payload.PromptType,
		ResponseText:   payload.Response,
		ReplyAudio:     replyAudio,
		Voice:          payload.Voice,
		ConversationID: strconv.FormatInt(payload.ConversationID, 10),
		MessageID:      payload.MessageID,
	}, nil
}

// VoicePreference fetches the currently selected synthesis voice.
func (c *Client) VoicePreference(ctx context.Context) (string, error) {
	var payload voicePayload
	if err := c.doJSON(ctx, http.MethodGet, "/voice", nil, nil, &payload); err != nil {
		return "", err
	}
	return payload.Voice, nil
}

// SetVoicePreference updates the synthesis voice. The identifier is a
// query parameter; the request carries no body.
func (c *Client) SetVoicePreference(ctx context.Context, voice string) error {
	query := url.Values{}
	query.Set("voice", voice)
	return c.doJSON(ctx, http.MethodPut, "/voice", query, nil, nil)
}

// Stats returns current request counters.
func (c *Client) Stats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ClientStats{
		TotalRequests:  c.totalRequests,
		FailedRequests: c.failedRequests,
	}
}

// buildTurnBody wraps a WAV blob in a multipart form with a single file
// field, matching what the backend's upload handler expects.
func buildTurnBody(audioWAV []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", uuid.NewString()+".wav")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(audioWAV); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("User-Agent", "PerceptoAI-Client/1.0")

	return req, nil
}

// doJSON performs a request with an optional JSON body and decodes a JSON
// response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body []byte, out interface{}) error {
	op := fmt.Sprintf("%s %s", strings.ToLower(method), path)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := c.newRequest(ctx, method, path, query, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, op, out)
}

// do performs a single request/response exchange. There is exactly one
// attempt per call; every failure mode surfaces as a *TransportError.
func (c *Client) do(req *http.Request, op string, out interface{}) error {
	c.incrementRequests()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.incrementFailures()
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.incrementFailures()
		return &TransportError{Op: op, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.incrementFailures()
		return &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    truncate(string(respBody), 512),
		}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		c.incrementFailures()
		return &TransportError{Op: op, Message: "failed to parse response JSON", Err: err}
	}

	return nil
}

func (c *Client) incrementRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementFailures() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
