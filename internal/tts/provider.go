package tts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SriHarishb/edith/internal/config"
)

// ErrUnknownProvider indicates an unsupported provider name.
var ErrUnknownProvider = errors.New("unknown tts provider")

// Synthesizer is a closable core.SpeechSynthesizer.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Close() error
}

// New builds the synthesizer selected by cfg.Provider.
func New(cfg config.TTSServiceConfig) (Synthesizer, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch cfg.Provider {
	case config.ProviderGoogle, "":
		client := &closableHTTPClient{
			HTTPClient: NewHTTPClient(cfg.BaseURL, cfg.APIKey, cfg.LanguageCode, cfg.Voice, timeout),
		}

		return NewChunkedSynthesizer(client, GoogleMaxInputBytes, cfg.Workers), nil
	case config.ProviderYandex:
		return NewYandexSynthesizer(cfg.BaseURL, cfg.APIKey, cfg.FolderID, cfg.Voice)
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownProvider, cfg.Provider)
	}
}

type closableHTTPClient struct {
	*HTTPClient
}

func (c *closableHTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()

	return nil
}
