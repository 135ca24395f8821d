package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AhmeddEmad7/PerceptoAI/internal/api"
	"github.com/AhmeddEmad7/PerceptoAI/internal/cache"
	"github.com/AhmeddEmad7/PerceptoAI/internal/capture"
	"github.com/AhmeddEmad7/PerceptoAI/internal/chat"
	"github.com/AhmeddEmad7/PerceptoAI/internal/metrics"
)

// State is the controller's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

var (
	// ErrNotIdle indicates StartTurn was called while a turn is already
	// recording or processing.
	ErrNotIdle = errors.New("a turn is already in progress")

	// ErrNotRecording indicates StopTurn was called outside Recording.
	ErrNotRecording = errors.New("no recording in progress")

	// ErrNoTurn indicates AbortTurn was called while idle.
	ErrNoTurn = errors.New("no turn in progress")
)

const defaultProcessingTimeout = 2 * time.Minute

// Recorder is the slice of the capture recorder the controller drives.
type Recorder interface {
	Open() error
	Stop() (*capture.Segment, error)
	Abort() error
}

// Exchange submits one finalized audio segment to the backend.
type Exchange interface {
	SubmitTurn(ctx context.Context, conversationID string, audioWAV []byte, voice string, newConversation bool) (*api.TurnResult, error)
}

// MediaStore materializes reply audio into a playable reference.
type MediaStore interface {
	SaveReplyAudio(messageID int64, data []byte) (string, error)
}

// Result is a completed turn as merged into the cache.
type Result struct {
	ConversationID string
	User           chat.Message
	Assistant      chat.Message
	PromptType     string
	Voice          string
}

// Controller is the audio-turn state machine. All transitions are gated
// on the current state; the recording device is held only in Recording
// and at most one exchange is in flight at a time.
type Controller struct {
	recorder          Recorder
	exchange          Exchange
	cache             *cache.Store
	media             MediaStore
	logger            *slog.Logger
	metrics           *metrics.Metrics // optional
	processingTimeout time.Duration

	mu               sync.Mutex
	state            State
	turnStart        time.Time
	cancelProcessing context.CancelFunc
}

// NewController wires the turn state machine. metrics may be nil.
func NewController(recorder Recorder, exchange Exchange, store *cache.Store, media MediaStore, logger *slog.Logger, m *metrics.Metrics, processingTimeout time.Duration) *Controller {
	if processingTimeout <= 0 {
		processingTimeout = defaultProcessingTimeout
	}
	return &Controller{
		recorder:          recorder,
		exchange:          exchange,
		cache:             store,
		media:             media,
		logger:            logger,
		metrics:           m,
		processingTimeout: processingTimeout,
	}
}

// State reports the controller's current state for presentation.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartTurn acquires the recording device and enters Recording. It is
// rejected unless the current state is exactly Idle. A device failure
// leaves the controller in Idle with nothing observable in the cache.
func (c *Controller) StartTurn() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return ErrNotIdle
	}

	if err := c.recorder.Open(); err != nil {
		c.recordFailure("device")
		c.logger.Warn("Failed to open recording device", slog.String("error", err.Error()))
		return err
	}

	c.turnStart = time.Now()
	c.setState(StateRecording)
	if c.metrics != nil {
		c.metrics.RecordTurnStarted()
	}

	return nil
}

// StopTurn finalizes the recording and exchanges it for a completed
// turn. The conversation id is captured here, as an immutable parameter,
// so a turn always lands in the conversation that was active when the
// user stopped speaking regardless of navigation afterwards.
//
// An empty recording produces no turn and no exchange. A transport
// failure, timeout or abort leaves the cached sequence untouched. On
// success exactly one user and one assistant message are appended and
// the summary list is marked stale.
func (c *Controller) StopTurn(ctx context.Context, conversationID, voice string, newConversation bool) (*Result, error) {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return nil, ErrNotRecording
	}

	segment, err := c.recorder.Stop()
	if err != nil {
		c.setState(StateIdle)
		c.mu.Unlock()

		if errors.Is(err, capture.ErrEmptySegment) {
			if c.metrics != nil {
				c.metrics.RecordEmptyRecording()
			}
			c.logger.Info("Turn discarded: empty recording")
			return nil, err
		}

		c.recordFailure("capture")
		return nil, err
	}

	pctx, cancel := context.WithTimeout(ctx, c.processingTimeout)
	c.cancelProcessing = cancel
	c.setState(StateProcessing)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordSegment(segment.Duration.Seconds(), len(segment.WAV))
	}

	c.logger.Info("Submitting turn",
		slog.String("conversation_id", conversationID),
		slog.String("segment_id", segment.ID),
		slog.Duration("recording_duration", segment.Duration),
		slog.Bool("new_conversation", newConversation),
	)

	exchangeStart := time.Now()
	result, err := c.exchange.SubmitTurn(pctx, conversationID, segment.WAV, voice, newConversation)
	exchangeElapsed := time.Since(exchangeStart)

	c.mu.Lock()
	c.cancelProcessing = nil
	cancel()
	c.setState(StateIdle)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordExchange(err == nil, exchangeElapsed.Seconds())
	}

	if err != nil {
		c.recordFailure("transport")
		c.logger.Error("Turn exchange failed",
			slog.String("conversation_id", conversationID),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", exchangeElapsed),
		)
		return nil, err
	}

	return c.mergeTurn(conversationID, newConversation, result)
}

// mergeTurn lands a successful exchange in the cache.
func (c *Controller) mergeTurn(conversationID string, newConversation bool, result *api.TurnResult) (*Result, error) {
	audioURL := ""
	if len(result.ReplyAudio) > 0 {
		path, err := c.media.SaveReplyAudio(result.MessageID, result.ReplyAudio)
		if err != nil {
			// The turn itself succeeded; losing the local audio copy
			// only costs playback.
			c.logger.Warn("Failed to save reply audio",
				slog.Int64("message_id", result.MessageID),
				slog.String("error", err.Error()),
			)
		} else {
			audioURL = path
		}
	}

	user, assistant := chat.TurnMessages(result.MessageID, result.Transcript, result.ResponseText, audioURL)

	// A brand-new conversation has no seeded entry yet; it starts from
	// the canonical id the server assigned.
	targetID := conversationID
	if newConversation {
		targetID = result.ConversationID
		c.cache.Seed(targetID, nil)
		if c.metrics != nil {
			c.metrics.RecordCacheSeed()
		}
	}

	if err := c.cache.AppendTurn(targetID, user, assistant); err != nil {
		c.recordFailure("cache")
		return nil, fmt.Errorf("turn %d completed but could not be cached: %w", result.MessageID, err)
	}
	c.cache.InvalidateSummaries()

	if c.metrics != nil {
		c.metrics.RecordCacheAppend()
		c.metrics.RecordSummaryInvalidation()
		c.metrics.RecordTurnCompleted(time.Since(c.turnStartTime()).Seconds())
	}

	c.logger.Info("Turn completed",
		slog.String("conversation_id", targetID),
		slog.Int64("message_id", result.MessageID),
		slog.String("prompt_type", result.PromptType),
	)

	return &Result{
		ConversationID: targetID,
		User:           user,
		Assistant:      assistant,
		PromptType:     result.PromptType,
		Voice:          result.Voice,
	}, nil
}

// AbortTurn cancels the current turn. In Recording the device is
// released and the session discarded; in Processing the in-flight
// exchange is cancelled, which surfaces to the StopTurn caller as a
// transport failure and returns the controller to Idle.
func (c *Controller) AbortTurn() error {
	c.mu.Lock()

	switch c.state {
	case StateRecording:
		err := c.recorder.Abort()
		c.setState(StateIdle)
		c.mu.Unlock()

		if c.metrics != nil {
			c.metrics.RecordTurnAborted()
		}
		c.logger.Info("Recording aborted")
		return err

	case StateProcessing:
		if c.cancelProcessing != nil {
			c.cancelProcessing()
		}
		c.mu.Unlock()

		if c.metrics != nil {
			c.metrics.RecordTurnAborted()
		}
		c.logger.Info("Processing turn aborted")
		return nil

	default:
		c.mu.Unlock()
		return ErrNoTurn
	}
}

// setState must be called with c.mu held.
func (c *Controller) setState(s State) {
	if s != c.state {
		c.logger.Debug("Controller state changed",
			slog.String("from", c.state.String()),
			slog.String("to", s.String()),
		)
	}
	c.state = s
	if c.metrics != nil {
		c.metrics.SetControllerState(int(s))
	}
}

func (c *Controller) turnStartTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turnStart
}

func (c *Controller) recordFailure(reason string) {
	if c.metrics != nil {
		c.metrics.RecordTurnFailed(reason)
	}
}
