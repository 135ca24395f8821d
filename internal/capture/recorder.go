package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AhmeddEmad7/PerceptoAI/internal/audio"
)

var (
	// ErrDeviceUnavailable indicates the input device could not be
	// acquired (no device present or permission denied).
	ErrDeviceUnavailable = errors.New("recording device unavailable")

	// ErrSessionActive indicates Open was called while a session holds
	// the device. Callers must Stop or Abort before reopening.
	ErrSessionActive = errors.New("recording session already active")

	// ErrEmptySegment indicates Stop finalized a session that captured
	// no audio. The device is still released.
	ErrEmptySegment = errors.New("recording captured no audio")

	// ErrNoSession indicates Stop or Abort was called with no session
	// open.
	ErrNoSession = errors.New("no active recording session")
)

// Device delivers raw little-endian PCM-16 audio from an input source.
// Start acquires the underlying handle and begins delivering chunks to
// the callback; Stop releases the handle and stops delivery.
type Device interface {
	Start(onChunk func(pcm []byte)) error
	Stop() error
}

// Segment is the immutable result of a finalized recording session.
type Segment struct {
	ID         string
	WAV        []byte
	Duration   time.Duration
	SampleRate int
	Channels   int
}

// Recorder owns the recording device and the at-most-one active session.
type Recorder struct {
	device      Device
	sampleRate  int
	channels    int
	maxDuration time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	session *session
}

// session accumulates PCM chunks between Open and Stop/Abort. Chunks are
// appended in arrival order with no reordering or drop, up to maxBytes;
// audio past the cap is discarded so a forgotten recording cannot grow
// without bound.
type session struct {
	id       string
	started  time.Time
	maxBytes int

	mu        sync.Mutex
	pcm       []byte
	chunks    int
	truncated bool
}

func (s *session) append(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxBytes > 0 && len(s.pcm)+len(chunk) > s.maxBytes {
		chunk = chunk[:s.maxBytes-len(s.pcm)]
		s.truncated = true
	}
	if len(chunk) == 0 {
		return
	}

	s.pcm = append(s.pcm, chunk...)
	s.chunks++
}

func (s *session) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pcm
}

// NewRecorder creates a recorder bound to a device and audio format.
// maxDuration caps how much audio a single session retains; zero means
// unbounded.
func NewRecorder(device Device, sampleRate, channels int, maxDuration time.Duration, logger *slog.Logger) *Recorder {
	return &Recorder{
		device:      device,
		sampleRate:  sampleRate,
		channels:    channels,
		maxDuration: maxDuration,
		logger:      logger,
	}
}

// Open acquires the device and starts a new recording session. It fails
// with ErrSessionActive if a session is already open, leaving that
// session untouched, and with ErrDeviceUnavailable if the device cannot
// be acquired.
func (r *Recorder) Open() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return ErrSessionActive
	}

	s := &session{
		id:       uuid.NewString(),
		started:  time.Now(),
		maxBytes: r.maxSessionBytes(),
	}

	if err := r.device.Start(s.append); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	r.session = s
	r.logger.Info("Recording session opened",
		slog.String("session_id", s.id),
		slog.Int("sample_rate", r.sampleRate),
		slog.Int("channels", r.channels),
	)

	return nil
}

// Stop releases the device unconditionally and finalizes the accumulated
// chunks into one immutable WAV segment. A session that captured no data
// yields ErrEmptySegment.
func (r *Recorder) Stop() (*Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil, ErrNoSession
	}

	s := r.session
	r.session = nil

	// Release the device before touching the data so a finalization
	// failure never leaks the handle.
	if err := r.device.Stop(); err != nil {
		r.logger.Warn("Error releasing recording device",
			slog.String("session_id", s.id),
			slog.String("error", err.Error()),
		)
	}

	pcm := s.bytes()
	if len(pcm) == 0 {
		r.logger.Info("Recording session produced no audio",
			slog.String("session_id", s.id),
		)
		return nil, ErrEmptySegment
	}

	wav, err := audio.EncodeWAV(pcm, r.sampleRate, r.channels)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize recording session %s: %w", s.id, err)
	}

	duration, err := audio.Duration(wav)
	if err != nil {
		return nil, fmt.Errorf("failed to measure recording session %s: %w", s.id, err)
	}

	if s.truncated {
		r.logger.Warn("Recording session hit the duration cap",
			slog.String("session_id", s.id),
			slog.Duration("max_duration", r.maxDuration),
		)
	}

	r.logger.Info("Recording session finalized",
		slog.String("session_id", s.id),
		slog.Int("chunks", s.chunks),
		slog.Int("bytes", len(pcm)),
		slog.Duration("duration", duration),
	)

	return &Segment{
		ID:         s.id,
		WAV:        wav,
		Duration:   duration,
		SampleRate: r.sampleRate,
		Channels:   r.channels,
	}, nil
}

// Abort releases the device and discards the session without producing a
// segment.
func (r *Recorder) Abort() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return ErrNoSession
	}

	s := r.session
	r.session = nil

	if err := r.device.Stop(); err != nil {
		r.logger.Warn("Error releasing recording device on abort",
			slog.String("session_id", s.id),
			slog.String("error", err.Error()),
		)
	}

	r.logger.Info("Recording session aborted",
		slog.String("session_id", s.id),
		slog.Int("chunks", s.chunks),
	)

	return nil
}

// maxSessionBytes converts the duration cap into a PCM-16 byte limit.
func (r *Recorder) maxSessionBytes() int {
	if r.maxDuration <= 0 {
		return 0
	}
	bytesPerSecond := r.sampleRate * r.channels * 2
	return int(r.maxDuration.Seconds() * float64(bytesPerSecond))
}

// Active reports whether a recording session currently holds the device.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}
