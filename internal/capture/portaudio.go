package capture

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice captures microphone input through the default PortAudio
// input stream. It implements Device.
type PortAudioDevice struct {
	sampleRate      int
	channels        int
	framesPerBuffer int

	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []int16
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewPortAudioDevice creates a device for the default system microphone.
func NewPortAudioDevice(sampleRate, channels, framesPerBuffer int) *PortAudioDevice {
	return &PortAudioDevice{
		sampleRate:      sampleRate,
		channels:        channels,
		framesPerBuffer: framesPerBuffer,
	}
}

// Start initializes PortAudio, opens the default input stream and begins
// delivering PCM chunks to onChunk from a background read loop.
func (d *PortAudioDevice) Start(onChunk func(pcm []byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream != nil {
		return fmt.Errorf("input stream already open")
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	d.buf = make([]int16, d.framesPerBuffer*d.channels)
	stream, err := portaudio.OpenDefaultStream(d.channels, 0, float64(d.sampleRate), d.framesPerBuffer, d.buf)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open default input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	d.stream = stream
	d.done = make(chan struct{})
	d.wg.Add(1)
	go d.readLoop(stream, onChunk)

	return nil
}

// readLoop copies buffers off the stream until Stop closes done. Each
// buffer is converted to little-endian bytes so sessions accumulate the
// exact wire representation.
func (d *PortAudioDevice) readLoop(stream *portaudio.Stream, onChunk func(pcm []byte)) {
	defer d.wg.Done()

	for {
		select {
		case <-d.done:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			if err == portaudio.InputOverflowed {
				// Overflow drops device-side frames; the buffer we got
				// is still valid audio.
			} else {
				return
			}
		}

		chunk := make([]byte, len(d.buf)*2)
		for i, sample := range d.buf {
			binary.LittleEndian.PutUint16(chunk[i*2:], uint16(sample))
		}
		onChunk(chunk)
	}
}

// Stop ends the read loop, closes the stream and releases PortAudio.
func (d *PortAudioDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil {
		return nil
	}

	close(d.done)
	d.wg.Wait()

	stopErr := d.stream.Stop()
	closeErr := d.stream.Close()
	d.stream = nil
	portaudio.Terminate()

	if stopErr != nil {
		return fmt.Errorf("failed to stop input stream: %w", stopErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close input stream: %w", closeErr)
	}

	return nil
}
