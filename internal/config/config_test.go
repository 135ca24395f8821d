package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 30,
		},
		Audio: AudioConfig{
			SampleRate:      16000,
			Channels:        1,
			BitDepth:        16,
			FramesPerBuffer: 1024,
			MaxDuration:     120.0,
		},
		Turn: TurnConfig{
			ProcessingTimeout: 90,
		},
		Media: MediaConfig{
			Dir: "./media",
		},
		Voice: VoiceConfig{
			Default: "alloy",
		},
		Monitor: MonitorConfig{
			Enabled: true,
			Address: "127.0.0.1:9091",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "empty base url",
			mutate:      func(c *Config) { c.API.BaseURL = "" },
			expectError: true,
			errorMsg:    "base_url",
		},
		{
			name:        "zero api timeout",
			mutate:      func(c *Config) { c.API.Timeout = 0 },
			expectError: true,
			errorMsg:    "timeout",
		},
		{
			name:        "unsupported sample rate",
			mutate:      func(c *Config) { c.Audio.SampleRate = 11025 },
			expectError: true,
			errorMsg:    "sample_rate",
		},
		{
			name:        "invalid channel count",
			mutate:      func(c *Config) { c.Audio.Channels = 3 },
			expectError: true,
			errorMsg:    "channels",
		},
		{
			name:        "invalid bit depth",
			mutate:      func(c *Config) { c.Audio.BitDepth = 24 },
			expectError: true,
			errorMsg:    "bit_depth",
		},
		{
			name:        "frames per buffer too small",
			mutate:      func(c *Config) { c.Audio.FramesPerBuffer = 32 },
			expectError: true,
			errorMsg:    "frames_per_buffer",
		},
		{
			name:        "negative max duration",
			mutate:      func(c *Config) { c.Audio.MaxDuration = -1 },
			expectError: true,
			errorMsg:    "max_duration",
		},
		{
			name:        "zero processing timeout",
			mutate:      func(c *Config) { c.Turn.ProcessingTimeout = 0 },
			expectError: true,
			errorMsg:    "processing_timeout",
		},
		{
			name:        "empty media dir",
			mutate:      func(c *Config) { c.Media.Dir = "" },
			expectError: true,
			errorMsg:    "dir",
		},
		{
			name:        "empty default voice",
			mutate:      func(c *Config) { c.Voice.Default = "" },
			expectError: true,
			errorMsg:    "voice",
		},
		{
			name: "monitor enabled without address",
			mutate: func(c *Config) {
				c.Monitor.Enabled = true
				c.Monitor.Address = ""
			},
			expectError: true,
			errorMsg:    "address",
		},
		{
			name: "monitor disabled ignores address",
			mutate: func(c *Config) {
				c.Monitor.Enabled = false
				c.Monitor.Address = ""
			},
			expectError: false,
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "verbose" },
			expectError: true,
			errorMsg:    "level",
		},
		{
			name:        "invalid log format",
			mutate:      func(c *Config) { c.Logging.Format = "xml" },
			expectError: true,
			errorMsg:    "format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected validation error containing '%s', got nil", tt.errorMsg)
				} else if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected valid configuration, got error: %v", err)
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	configYAML := `
api:
  base_url: "http://localhost:8000"
  timeout: 30

audio:
  sample_rate: 16000
  channels: 1
  bit_depth: 16
  frames_per_buffer: 1024
  max_duration: 120.0

turn:
  processing_timeout: 90

media:
  dir: "./media"

voice:
  default: "alloy"

monitor:
  enabled: true
  address: "127.0.0.1:9091"

logging:
  level: "info"
  format: "json"
  output: "stdout"
`

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.API.BaseURL != "http://localhost:8000" {
		t.Errorf("Unexpected base_url: %s", config.API.BaseURL)
	}
	if config.Audio.SampleRate != 16000 {
		t.Errorf("Unexpected sample_rate: %d", config.Audio.SampleRate)
	}
	if config.Turn.ProcessingTimeout != 90 {
		t.Errorf("Unexpected processing_timeout: %d", config.Turn.ProcessingTimeout)
	}
	if config.Voice.Default != "alloy" {
		t.Errorf("Unexpected default voice: %s", config.Voice.Default)
	}
}

func TestConfigLoadInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("api: [not a mapping"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Expected parse error for invalid YAML")
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent config file")
	}
}

func TestDurationHelpers(t *testing.T) {
	api := APIConfig{Timeout: 30}
	if api.GetTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected 30s, got %v", api.GetTimeoutDuration())
	}

	audio := AudioConfig{MaxDuration: 1.5}
	if audio.GetMaxDuration() != 1500*time.Millisecond {
		t.Errorf("Expected 1.5 seconds, got %v", audio.GetMaxDuration())
	}

	turn := TurnConfig{ProcessingTimeout: 90}
	if turn.GetProcessingTimeoutDuration() != 90*time.Second {
		t.Errorf("Expected 90s, got %v", turn.GetProcessingTimeoutDuration())
	}
}
