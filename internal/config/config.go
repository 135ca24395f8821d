package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete client configuration
type Config struct {
	API     APIConfig     `yaml:"api"`
	Audio   AudioConfig   `yaml:"audio"`
	Turn    TurnConfig    `yaml:"turn"`
	Media   MediaConfig   `yaml:"media"`
	Voice   VoiceConfig   `yaml:"voice"`
	Monitor MonitorConfig `yaml:"monitor"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig contains backend connection configuration
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"` // seconds
}

// AudioConfig contains microphone capture parameters
type AudioConfig struct {
	SampleRate      int     `yaml:"sample_rate"`
	Channels        int     `yaml:"channels"`
	BitDepth        int     `yaml:"bit_depth"`
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
	MaxDuration     float64 `yaml:"max_duration"` // seconds
}

// TurnConfig contains turn lifecycle configuration
type TurnConfig struct {
	ProcessingTimeout int `yaml:"processing_timeout"` // seconds
}

// MediaConfig contains local media storage configuration
type MediaConfig struct {
	Dir string `yaml:"dir"`
}

// VoiceConfig contains assistant voice configuration
type VoiceConfig struct {
	Default string `yaml:"default"`
}

// MonitorConfig contains the local monitoring endpoint configuration
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Turn.Validate(); err != nil {
		return fmt.Errorf("turn config: %w", err)
	}

	if err := c.Media.Validate(); err != nil {
		return fmt.Errorf("media config: %w", err)
	}

	if err := c.Voice.Validate(); err != nil {
		return fmt.Errorf("voice config: %w", err)
	}

	if err := c.Monitor.Validate(); err != nil {
		return fmt.Errorf("monitor config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates backend API configuration
func (a *APIConfig) Validate() error {
	if a.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}

	if a.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", a.Timeout)
	}

	return nil
}

// Validate validates audio capture configuration
func (a *AudioConfig) Validate() error {
	validRates := map[int]bool{8000: true, 16000: true, 22050: true, 44100: true, 48000: true}
	if !validRates[a.SampleRate] {
		return fmt.Errorf("sample_rate must be one of [8000, 16000, 22050, 44100, 48000], got %d", a.SampleRate)
	}

	if a.Channels != 1 && a.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	if a.FramesPerBuffer < 64 || a.FramesPerBuffer > 8192 {
		return fmt.Errorf("frames_per_buffer must be between 64 and 8192, got %d", a.FramesPerBuffer)
	}

	if a.MaxDuration <= 0 {
		return fmt.Errorf("max_duration must be positive, got %f", a.MaxDuration)
	}

	return nil
}

// Validate validates turn configuration
func (t *TurnConfig) Validate() error {
	if t.ProcessingTimeout < 1 {
		return fmt.Errorf("processing_timeout must be at least 1 second, got %d", t.ProcessingTimeout)
	}

	return nil
}

// Validate validates media storage configuration
func (m *MediaConfig) Validate() error {
	if m.Dir == "" {
		return fmt.Errorf("dir cannot be empty")
	}

	return nil
}

// Validate validates voice configuration
func (v *VoiceConfig) Validate() error {
	if v.Default == "" {
		return fmt.Errorf("default voice cannot be empty")
	}

	return nil
}

// Validate validates monitoring configuration
func (m *MonitorConfig) Validate() error {
	if m.Enabled && m.Address == "" {
		return fmt.Errorf("address cannot be empty when monitoring is enabled")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	if l.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}

	return nil
}

// GetTimeoutDuration returns the API request timeout as a time.Duration
func (a *APIConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

// GetMaxDuration returns the recording cap as a time.Duration
func (a *AudioConfig) GetMaxDuration() time.Duration {
	return time.Duration(a.MaxDuration * float64(time.Second))
}

// GetProcessingTimeoutDuration returns the processing timeout as a time.Duration
func (t *TurnConfig) GetProcessingTimeoutDuration() time.Duration {
	return time.Duration(t.ProcessingTimeout) * time.Second
}
