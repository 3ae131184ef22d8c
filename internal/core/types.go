package core

import "errors"

var (
	// ErrUserNotFound indicates that no profile exists for the user ID.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserIDEmpty indicates that a blank user ID was supplied.
	ErrUserIDEmpty = errors.New("user id cannot be empty")
)

// Video is one generated video as listed in a user's profile.
type Video struct {
	Link  string `json:"link"`
	Title string `json:"title"`
	Views int    `json:"views"`
}

// User is a profile document.
type User struct {
	ID         string  `json:"id"`
	VideoCount int     `json:"video_count"`
	Videos     []Video `json:"generated_videos"`
}

// FrameFile is an image on disk and how long it stays on screen.
type FrameFile struct {
	ImagePath string
	Duration  float64
}

// VideoJob describes one assembly run.
type VideoJob struct {
	Frames     []FrameFile
	AudioPath  string
	OutputPath string
	WorkDir    string
}
