// Package core defines the domain types and the collaborator interfaces of the
// video generation service.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
	// URL returns the public address of a stored object.
	URL(key string) string
}

// TextGenerator produces the narration, title, and image prompts of a video.
type TextGenerator interface {
	Narrate(ctx context.Context, prompt string) (string, error)
	Title(ctx context.Context, prompt string) (string, error)
	ImagePrompts(ctx context.Context, sentences []string) ([]string, error)
	Chat(ctx context.Context, message string) (string, error)
}

// ImageGenerator renders a single image for a prompt and returns encoded PNG bytes.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// SpeechSynthesizer converts narration text into MP3 audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// DurationMeter reports the playback length of encoded audio in seconds.
type DurationMeter interface {
	Measure(audio []byte) (float64, error)
}

// VideoAssembler turns a frame sequence and a narration track into a video file.
type VideoAssembler interface {
	Assemble(ctx context.Context, job VideoJob) error
}

// DocumentStore persists user profiles, their generated videos, and the
// domain path tree.
type DocumentStore interface {
	CreateUser(ctx context.Context, userID string) error
	User(ctx context.Context, userID string) (User, error)
	// NextVideoNumber returns the user's current video count and increments it.
	NextVideoNumber(ctx context.Context, userID string) (int, error)
	AppendVideo(ctx context.Context, userID string, video Video) ([]Video, error)
	IncrementViews(ctx context.Context, userID, link string) error
	AllVideos(ctx context.Context) ([]Video, error)
	PutDomainNode(ctx context.Context, path string, data map[string]any) error
	DomainTree(ctx context.Context) (map[string]any, error)
	Close() error
}
