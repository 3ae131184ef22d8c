// Package tts provides speech synthesis for narration text.
//
// Two providers are supported: the Google Cloud Text-to-Speech REST API and
// Yandex SpeechKit over gRPC. Both return MP3 bytes.
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// API endpoints and paths.
const (
	defaultGoogleBaseURL = "https://texttospeech.googleapis.com"
	apiSynthesize        = "/v1/text:synthesize"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAPIKey      = "X-Goog-Api-Key"
	contentTypeJSON   = "application/json"
)

// Default values.
const (
	defaultLanguage    = "en-US"
	defaultSSMLGender  = "NEUTRAL"
	defaultEncoding    = "MP3"
	defaultHTTPTimeout = 60 * time.Second
)

// Error messages.
const (
	errFmtServiceErrorWithCode = "TTS service error (%s): %s (status: %s)"
	errFmtServiceNonOKStatus   = "TTS service returned non-OK status: %s, body: %s"
)

var (
	// ErrTextEmpty indicates that there is nothing to synthesize.
	ErrTextEmpty = errors.New("text cannot be empty")
	// ErrEmptyAudio indicates that the provider returned no audio.
	ErrEmptyAudio = errors.New("received empty audio data")
	// ErrAPIKeyEmpty indicates a missing provider credential.
	ErrAPIKeyEmpty = errors.New("tts api key cannot be empty")
)

// HTTPClient synthesizes speech with the Google Cloud Text-to-Speech REST API.
type HTTPClient struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	languageCode string
	voice        string
}

// SynthesisInput holds the text to speak.
type SynthesisInput struct {
	Text string `json:"text"`
}

// VoiceSelectionParams chooses the voice.
type VoiceSelectionParams struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name,omitempty"`
	SSMLGender   string `json:"ssmlGender"`
}

// AudioConfig chooses the output encoding.
type AudioConfig struct {
	AudioEncoding string `json:"audioEncoding"`
}

// SynthesizeRequest is the JSON payload of text:synthesize.
type SynthesizeRequest struct {
	Input       SynthesisInput       `json:"input"`
	Voice       VoiceSelectionParams `json:"voice"`
	AudioConfig AudioConfig          `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewHTTPClient creates a Google Text-to-Speech client. An empty baseURL
// selects the public endpoint and an empty languageCode selects en-US.
func NewHTTPClient(baseURL, apiKey, languageCode, voice string, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = defaultGoogleBaseURL
	}

	if languageCode == "" {
		languageCode = defaultLanguage
	}

	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &HTTPClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       apiKey,
		languageCode: languageCode,
		voice:        voice,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize converts text to MP3 audio.
func (c *HTTPClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrTextEmpty
	}

	if c.apiKey == "" {
		return nil, ErrAPIKeyEmpty
	}

	requestBody, err := json.Marshal(SynthesizeRequest{
		Input: SynthesisInput{Text: text},
		Voice: VoiceSelectionParams{
			LanguageCode: c.languageCode,
			Name:         c.voice,
			SSMLGender:   defaultSSMLGender,
		},
		AudioConfig: AudioConfig{AudioEncoding: defaultEncoding},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiSynthesize,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAPIKey, c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to TTS service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp.Status, body)
	}

	var decoded synthesizeResponse

	err = json.Unmarshal(body, &decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	audioData, err := base64.StdEncoding.DecodeString(decoded.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio content: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// parseErrorResponse decodes a structured Google API error, falling back to
// the raw body so the diagnostic is never lost.
func parseErrorResponse(status string, body []byte) error {
	var errorResp errorResponse

	err := json.Unmarshal(body, &errorResp)
	if err == nil && errorResp.Error.Message != "" {
		return fmt.Errorf(errFmtServiceErrorWithCode, status, errorResp.Error.Message, errorResp.Error.Status)
	}

	return fmt.Errorf(errFmtServiceNonOKStatus, status, string(body))
}
