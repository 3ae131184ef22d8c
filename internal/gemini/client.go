// Package gemini implements text and image generation against the Google
// Generative Language REST API.
package gemini

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

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultHTTPTimeout = 120 * time.Second

	headerContentType = "Content-Type"
	headerAPIKey      = "x-goog-api-key"
	contentTypeJSON   = "application/json"
)

var (
	// ErrAPIKeyEmpty indicates that the client has no API key.
	ErrAPIKeyEmpty = errors.New("gemini api key cannot be empty")
	// ErrPromptEmpty indicates that an empty prompt was supplied.
	ErrPromptEmpty = errors.New("prompt cannot be empty")
	// ErrEmptyResponse indicates a response without text or image content.
	ErrEmptyResponse = errors.New("response contained no content")
)

// Config captures the runtime settings required to talk to the API.
type Config struct {
	APIKey         string
	BaseURL        string
	TextModel      string
	ImageModel     string
	TimeoutSeconds int
}

// Client implements core.TextGenerator and core.ImageGenerator.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Message))
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
			TextModel:      strings.TrimSpace(cfg.TextModel),
			ImageModel:     strings.TrimSpace(cfg.ImageModel),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}

	return client
}

type part struct {
	Text string `json:"text,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

type predictRequest struct {
	Instances  []imageInstance  `json:"instances"`
	Parameters imageParameters `json:"parameters"`
}

type imageInstance struct {
	Prompt string `json:"prompt"`
}

type imageParameters struct {
	SampleCount int `json:"sampleCount"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateText sends a single-turn prompt and returns the concatenated text
// parts of the first candidate.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrPromptEmpty
	}

	payload := generateContentRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{ResponseModalities: []string{"TEXT"}},
	}

	var response generateContentResponse

	err := c.post(ctx, c.cfg.TextModel, "generateContent", payload, &response)
	if err != nil {
		return "", err
	}

	if len(response.Candidates) == 0 {
		return "", fmt.Errorf("generate text: %w", ErrEmptyResponse)
	}

	var builder strings.Builder
	for _, p := range response.Candidates[0].Content.Parts {
		builder.WriteString(p.Text)
	}

	if builder.Len() == 0 {
		return "", fmt.Errorf("generate text (finish_reason=%q): %w",
			response.Candidates[0].FinishReason, ErrEmptyResponse)
	}

	return builder.String(), nil
}

// GenerateImage renders one image for the prompt and returns its bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrPromptEmpty
	}

	payload := predictRequest{
		Instances:  []imageInstance{{Prompt: imageScenePrompt(prompt)}},
		Parameters: imageParameters{SampleCount: 1},
	}

	var response predictResponse

	err := c.post(ctx, c.cfg.ImageModel, "predict", payload, &response)
	if err != nil {
		return nil, err
	}

	if len(response.Predictions) == 0 || response.Predictions[0].BytesBase64Encoded == "" {
		return nil, fmt.Errorf("generate image: %w", ErrEmptyResponse)
	}

	image, err := base64.StdEncoding.DecodeString(response.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}

	return image, nil
}

func (c *Client) post(ctx context.Context, model, method string, payload, target any) error {
	if c.cfg.APIKey == "" {
		return ErrAPIKeyEmpty
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:%s", c.cfg.BaseURL, model, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerAPIKey, c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", model, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return parseErrorResponse(resp.StatusCode, raw)
	}

	err = json.Unmarshal(raw, target)
	if err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// parseErrorResponse prefers the structured API error and falls back to the
// raw body.
func parseErrorResponse(status int, body []byte) error {
	var parsed errorResponse

	err := json.Unmarshal(body, &parsed)
	if err == nil && parsed.Error.Message != "" {
		return &StatusError{StatusCode: status, Message: parsed.Error.Status + ": " + parsed.Error.Message}
	}

	return &StatusError{StatusCode: status, Message: string(body)}
}
