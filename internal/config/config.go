// Package config provides the configuration structure for the edith service.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/joho/godotenv"
)

const dirPermissions = 0o750

// Environment variables that carry secrets. They fill empty config fields.
const (
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvGoogleTTSAPIKey = "GOOGLE_TTS_API_KEY"
	EnvYandexAPIKey    = "YANDEX_API_KEY"
	EnvYandexFolderID  = "YANDEX_FOLDER_ID"
)

// Speech synthesis providers.
const (
	ProviderGoogle = "google"
	ProviderYandex = "yandex"
)

var (
	// ErrNATSURLEmpty indicates that no NATS server address is configured.
	ErrNATSURLEmpty = errors.New("nats url cannot be empty")
	// ErrBucketEmpty indicates that the video object store bucket is not configured.
	ErrBucketEmpty = errors.New("video object store bucket cannot be empty")
	// ErrGeminiKeyEmpty indicates that the Gemini API key is missing.
	ErrGeminiKeyEmpty = errors.New("gemini api key cannot be empty")
	// ErrUnsupportedProvider indicates an unknown speech synthesis provider.
	ErrUnsupportedProvider = errors.New("unsupported tts provider")
	// ErrDatabasePathEmpty indicates that the document store path is missing.
	ErrDatabasePathEmpty = errors.New("document store path cannot be empty")
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                   string `toml:"url"`
	VideoRequestedSubject string `toml:"video_requested_subject"`
	VideoObjectBucket     string `toml:"video_object_store_bucket"`
	PublicBaseURL         string `toml:"public_base_url"`
}

// GeminiConfig holds the settings of the text and image generation API.
type GeminiConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TextModel      string `toml:"text_model"`
	ImageModel     string `toml:"image_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTSServiceConfig holds the speech synthesis settings.
type TTSServiceConfig struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	LanguageCode   string `toml:"language_code"`
	Voice          string `toml:"voice"`
	FolderID       string `toml:"folder_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Workers        int    `toml:"workers"`
}

// VideoConfig holds the assembly settings.
type VideoConfig struct {
	FFmpegPath     string `toml:"ffmpeg_path"`
	Width          int    `toml:"width"`
	Height         int    `toml:"height"`
	FPS            int    `toml:"fps"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// APIConfig holds the HTTP listener settings.
type APIConfig struct {
	Bind string `toml:"bind"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir  string `toml:"base_logs_dir"`
	WorkDir      string `toml:"work_dir"`
	DatabasePath string `toml:"database_path"`
}

// Config is the root configuration structure.
type Config struct {
	NATS   NATSConfig       `toml:"nats"`
	Gemini GeminiConfig     `toml:"gemini"`
	TTS    TTSServiceConfig `toml:"tts_service"`
	Video  VideoConfig      `toml:"video"`
	API    APIConfig        `toml:"api"`
	Paths  PathsConfig      `toml:"paths"`
}

// Load loads the configuration for the edith service. A .env file in the
// working directory is read first when present so secrets can stay out of the
// TOML tree.
func Load(log *logger.Logger) (*Config, error) {
	envErr := godotenv.Load()
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn("Failed to read .env file: %v", envErr)
	}

	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyEnvironment()
	cfg.ApplyDefaults()

	return &cfg, nil
}

// ApplyEnvironment fills empty secret fields from the environment.
func (c *Config) ApplyEnvironment() {
	fillFromEnv(&c.Gemini.APIKey, EnvGeminiAPIKey)

	switch c.TTS.Provider {
	case ProviderYandex:
		fillFromEnv(&c.TTS.APIKey, EnvYandexAPIKey)
		fillFromEnv(&c.TTS.FolderID, EnvYandexFolderID)
	default:
		fillFromEnv(&c.TTS.APIKey, EnvGoogleTTSAPIKey)
	}
}

// ApplyDefaults sets the values the service cannot run without.
func (c *Config) ApplyDefaults() {
	if c.TTS.Provider == "" {
		c.TTS.Provider = ProviderGoogle
	}

	if c.TTS.LanguageCode == "" {
		c.TTS.LanguageCode = "en-US"
	}

	if c.Gemini.TextModel == "" {
		c.Gemini.TextModel = "gemini-2.0-flash"
	}

	if c.Gemini.ImageModel == "" {
		c.Gemini.ImageModel = "imagen-3.0-generate-002"
	}

	if c.Video.FFmpegPath == "" {
		c.Video.FFmpegPath = "ffmpeg"
	}

	if c.Video.Width == 0 || c.Video.Height == 0 {
		c.Video.Width, c.Video.Height = 1024, 500
	}

	if c.Video.FPS == 0 {
		c.Video.FPS = 24
	}

	if c.API.Bind == "" {
		c.API.Bind = ":8080"
	}

	if c.NATS.VideoRequestedSubject == "" {
		c.NATS.VideoRequestedSubject = "video.requested"
	}

	if c.Paths.WorkDir == "" {
		c.Paths.WorkDir = filepath.Join(os.TempDir(), "edith")
	}
}

// Validate checks that every required setting is present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.NATS.URL) == "" {
		return ErrNATSURLEmpty
	}

	if strings.TrimSpace(c.NATS.VideoObjectBucket) == "" {
		return ErrBucketEmpty
	}

	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return ErrGeminiKeyEmpty
	}

	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		return ErrDatabasePathEmpty
	}

	switch c.TTS.Provider {
	case ProviderGoogle, ProviderYandex:
	default:
		return fmt.Errorf("%w: '%s'", ErrUnsupportedProvider, c.TTS.Provider)
	}

	return nil
}

// EnsureDirectories creates the log and work directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.BaseLogsDir, c.Paths.WorkDir} {
		if dir == "" {
			continue
		}

		err := os.MkdirAll(dir, dirPermissions)
		if err != nil {
			return fmt.Errorf("failed to create directory '%s': %w", dir, err)
		}
	}

	return nil
}

func fillFromEnv(field *string, key string) {
	if strings.TrimSpace(*field) != "" {
		return
	}

	*field = strings.TrimSpace(os.Getenv(key))
}
