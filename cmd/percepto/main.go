package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AhmeddEmad7/PerceptoAI/internal/api"
	"github.com/AhmeddEmad7/PerceptoAI/internal/cache"
	"github.com/AhmeddEmad7/PerceptoAI/internal/capture"
	"github.com/AhmeddEmad7/PerceptoAI/internal/config"
	"github.com/AhmeddEmad7/PerceptoAI/internal/media"
	"github.com/AhmeddEmad7/PerceptoAI/internal/metrics"
	"github.com/AhmeddEmad7/PerceptoAI/internal/server"
	"github.com/AhmeddEmad7/PerceptoAI/internal/turn"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "percepto-client"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Optional .env file for local overrides
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "Loaded environment from .env")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Environment overrides take precedence over the config file
	if url := os.Getenv("PERCEPTO_API_URL"); url != "" {
		cfg.API.BaseURL = url
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Client starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	logger.Info("Configuration loaded",
		slog.String("api_base_url", cfg.API.BaseURL),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("channels", cfg.Audio.Channels),
		slog.Float64("max_duration", cfg.Audio.MaxDuration),
		slog.Int("processing_timeout", cfg.Turn.ProcessingTimeout),
		slog.String("media_dir", cfg.Media.Dir),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()

	// Backend client
	client, err := api.NewClient(api.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.GetTimeoutDuration(),
	}, logger)
	if err != nil {
		logger.Error("Failed to create backend client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Local stores
	store := cache.NewStore(logger)
	mediaStore, err := media.NewStore(cfg.Media.Dir, logger)
	if err != nil {
		logger.Error("Failed to create media store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Microphone and turn controller
	device := capture.NewPortAudioDevice(cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.FramesPerBuffer)
	recorder := capture.NewRecorder(device, cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.GetMaxDuration(), logger)
	controller := turn.NewController(recorder, client, store, mediaStore, logger, appMetrics, cfg.Turn.GetProcessingTimeoutDuration())

	// Monitoring endpoint (if enabled)
	var monitor *server.MonitorServer
	if cfg.Monitor.Enabled {
		monitor = server.NewMonitorServer(cfg.Monitor.Address, logger, controller, store, client)
		if err := monitor.Start(); err != nil {
			logger.Error("Failed to start monitoring server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Shut down cleanly on SIGINT/SIGTERM or when the REPL exits
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	repl := newREPL(controller, client, store, cfg.Voice.Default, logger)
	repl.run(ctx)

	logger.Info("Starting graceful shutdown...")

	// Drop any in-flight turn before releasing the device
	if controller.State() != turn.StateIdle {
		if err := controller.AbortTurn(); err != nil {
			logger.Warn("Error aborting turn on shutdown", slog.String("error", err.Error()))
		}
	}

	if monitor != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := monitor.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping monitoring server", slog.String("error", err.Error()))
		}
	}

	stats := client.Stats()
	logger.Info("Final client statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("failed_requests", stats.FailedRequests),
	)

	logger.Info("Client stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(handler)
}
