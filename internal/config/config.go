package config

import (
	"time"

	"github.com/charmbracelet/log"
)

// Defaults shared by the command line and the environment.
const (
	DefaultHTTPAddr        = ":8080"
	DefaultGestureURL      = "ws://localhost:6789"
	DefaultVoiceURL        = "ws://localhost:6790"
	DefaultCanvasWidth     = 800
	DefaultCanvasHeight    = 600
	DefaultCollisionPolicy = "report"
	DefaultReconnectDelay  = time.Second
	DefaultReconnectMax    = 30 * time.Second
	DefaultAITimeout       = 2 * time.Second
	DefaultLogLevel        = "info"
)

// Config aggregates the process-wide settings.
type Config struct {
	HTTPAddr        string
	GestureURL      string
	VoiceURL        string
	AIEndpoint      string
	AITimeout       time.Duration
	CanvasWidth     int
	CanvasHeight    int
	CollisionPolicy string
	AudioFile       string
	LogLevel        string
	LogFile         string // Terminal clients log here instead of the screen

	// Reconnect policy for the gesture and voice channels.
	ReconnectDelay       time.Duration
	ReconnectMaxInterval time.Duration
	ReconnectMaxAttempts int
}

// Load reads the configuration from the environment.
func Load() Config {
	return Config{
		HTTPAddr:             GetEnv("HTTP_ADDR", DefaultHTTPAddr),
		GestureURL:           GetEnv("GESTURE_URL", DefaultGestureURL),
		VoiceURL:             GetEnv("VOICE_URL", DefaultVoiceURL),
		AIEndpoint:           GetEnv("AI_ENDPOINT", ""),
		AITimeout:            GetEnvDuration("AI_TIMEOUT", DefaultAITimeout),
		CanvasWidth:          GetEnvInt("CANVAS_WIDTH", DefaultCanvasWidth),
		CanvasHeight:         GetEnvInt("CANVAS_HEIGHT", DefaultCanvasHeight),
		CollisionPolicy:      GetEnv("COLLISION_POLICY", DefaultCollisionPolicy),
		AudioFile:            GetEnv("AUDIO_FILE", ""),
		LogLevel:             GetEnv("LOG_LEVEL", DefaultLogLevel),
		LogFile:              GetEnv("LOG_FILE", ""),
		ReconnectDelay:       GetEnvDuration("RECONNECT_DELAY", DefaultReconnectDelay),
		ReconnectMaxInterval: GetEnvDuration("RECONNECT_MAX_INTERVAL", DefaultReconnectMax),
		ReconnectMaxAttempts: GetEnvInt("RECONNECT_MAX_ATTEMPTS", 0),
	}
}

// Level parses LogLevel, falling back to info for unknown names.
func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
