package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

const headerSize = 44

// wavHeader is the canonical 44-byte PCM WAV header.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// EncodeWAV wraps raw little-endian PCM-16 bytes in a WAV container.
// The input is the byte stream a recording session accumulates; it must
// contain whole frames for every channel.
func EncodeWAV(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio data")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if channels < 1 {
		return nil, fmt.Errorf("channel count must be at least 1, got %d", channels)
	}
	if len(pcm)%(2*channels) != 0 {
		return nil, fmt.Errorf("audio data length %d is not a whole number of %d-channel frames", len(pcm), channels)
	}

	bitsPerSample := uint16(16)
	numChannels := uint16(channels)
	dataSize := uint32(len(pcm))

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(headerSize-8) + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(pcm)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// DecodeWAV extracts the raw PCM bytes and sample rate from a WAV blob.
func DecodeWAV(data []byte) ([]byte, int, error) {
	header, err := parseHeader(data)
	if err != nil {
		return nil, 0, err
	}

	if int(header.Subchunk2Size) > len(data)-headerSize {
		return nil, 0, fmt.Errorf("WAV data truncated: header declares %d bytes, %d available",
			header.Subchunk2Size, len(data)-headerSize)
	}

	pcm := make([]byte, header.Subchunk2Size)
	copy(pcm, data[headerSize:headerSize+int(header.Subchunk2Size)])

	return pcm, int(header.SampleRate), nil
}

// ValidateWAV checks that a blob carries a well-formed PCM-16 WAV header.
func ValidateWAV(data []byte) error {
	_, err := parseHeader(data)
	return err
}

// Duration reports the playback duration of a WAV blob.
func Duration(data []byte) (time.Duration, error) {
	header, err := parseHeader(data)
	if err != nil {
		return 0, err
	}
	if header.ByteRate == 0 {
		return 0, fmt.Errorf("invalid byte rate: 0")
	}
	seconds := float64(header.Subchunk2Size) / float64(header.ByteRate)
	return time.Duration(seconds * float64(time.Second)), nil
}

func parseHeader(data []byte) (*wavHeader, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("WAV data too short: need at least %d bytes, got %d", headerSize, len(data))
	}

	var header wavHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" {
		return nil, fmt.Errorf("invalid WAV file: missing RIFF header")
	}
	if string(header.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV file: missing WAVE format")
	}
	if string(header.Subchunk1ID[:]) != "fmt " {
		return nil, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}
	if string(header.Subchunk2ID[:]) != "data" {
		return nil, fmt.Errorf("invalid WAV file: missing data chunk")
	}
	if header.AudioFormat != 1 {
		return nil, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", header.AudioFormat)
	}
	if header.BitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", header.BitsPerSample)
	}

	return &header, nil
}
