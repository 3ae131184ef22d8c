// Package studio runs the prompt-to-video pipeline.
package studio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/SriHarishb/edith/internal/core"
	"github.com/SriHarishb/edith/internal/fileutil"
	"github.com/SriHarishb/edith/internal/timeline"
	"github.com/SriHarishb/edith/internal/tts/text"
	"github.com/book-expert/logger"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	lockFileName  = ".generate.lock"
	audioFileName = "narration.mp3"
	videoFileName = "video.mp4"
	imageFileFmt  = "image_%03d.png"
	videoKeyFmt   = "users/%s/videos/%d"
)

// Pipeline stage names used in wrapped errors and logs.
const (
	StageWorkspace = "workspace"
	StageLock      = "lock"
	StageNarrate   = "narrate"
	StageTitle     = "title"
	StageSegment   = "segment"
	StagePrompts   = "image prompts"
	StageImages    = "images"
	StageSpeech    = "speech"
	StageMeasure   = "measure"
	StageTimeline  = "timeline"
	StageAssemble  = "assemble"
	StageNumbering = "numbering"
	StageUpload    = "upload"
	StageIndex     = "index"
)

var (
	// ErrInvalidRequest indicates a blank prompt or a missing user ID.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrMissingDependency indicates that a collaborator was not supplied.
	ErrMissingDependency = errors.New("studio dependency missing")
	// ErrLockUnavailable indicates that another generation for the user holds the lock.
	ErrLockUnavailable = errors.New("user generation lock unavailable")
)

// Request asks for one video.
type Request struct {
	UserID string
	Prompt string
}

// Result is the stored video.
type Result struct {
	Link  string `json:"link"`
	Title string `json:"title"`
}

// StageError records which pipeline stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Dependencies are the collaborators of a Studio.
type Dependencies struct {
	Text      core.TextGenerator
	Images    core.ImageGenerator
	Speech    core.SpeechSynthesizer
	Meter     core.DurationMeter
	Assembler core.VideoAssembler
	Objects   core.ObjectStore
	Documents core.DocumentStore
}

// Studio generates narrated slideshow videos.
type Studio struct {
	deps         Dependencies
	workDir      string
	preprocessor *text.Preprocessor
	log          *logger.Logger
}

// New creates a Studio that keeps job files under workDir.
func New(deps Dependencies, workDir string, log *logger.Logger) (*Studio, error) {
	switch {
	case deps.Text == nil:
		return nil, fmt.Errorf("%w: text generator", ErrMissingDependency)
	case deps.Images == nil:
		return nil, fmt.Errorf("%w: image generator", ErrMissingDependency)
	case deps.Speech == nil:
		return nil, fmt.Errorf("%w: speech synthesizer", ErrMissingDependency)
	case deps.Meter == nil:
		return nil, fmt.Errorf("%w: duration meter", ErrMissingDependency)
	case deps.Assembler == nil:
		return nil, fmt.Errorf("%w: video assembler", ErrMissingDependency)
	case deps.Objects == nil:
		return nil, fmt.Errorf("%w: object store", ErrMissingDependency)
	case deps.Documents == nil:
		return nil, fmt.Errorf("%w: document store", ErrMissingDependency)
	}

	err := fileutil.EnsureDir(workDir)
	if err != nil {
		return nil, err
	}

	return &Studio{
		deps:         deps,
		workDir:      workDir,
		preprocessor: text.NewPreprocessor(),
		log:          log,
	}, nil
}

// Generate turns a prompt into a stored video and records it on the user's
// profile. A second generation for a user whose lock is held fails with
// ErrLockUnavailable instead of waiting.
func (s *Studio) Generate(ctx context.Context, req Request) (Result, error) {
	userID := strings.TrimSpace(req.UserID)
	prompt := strings.TrimSpace(req.Prompt)

	if userID == "" || prompt == "" {
		return Result{}, ErrInvalidRequest
	}

	userDir := filepath.Join(s.workDir, fileutil.SanitizeFilename(userID))

	err := fileutil.EnsureDir(userDir)
	if err != nil {
		return Result{}, &StageError{Stage: StageWorkspace, Err: err}
	}

	lock := flock.New(filepath.Join(userDir, lockFileName))

	locked, err := lock.TryLock()
	if err != nil {
		return Result{}, &StageError{Stage: StageLock, Err: err}
	}

	if !locked {
		return Result{}, &StageError{Stage: StageLock, Err: ErrLockUnavailable}
	}

	defer func() {
		unlockErr := lock.Unlock()
		if unlockErr != nil {
			s.log.Warn("Failed to release lock for user %s: %v", userID, unlockErr)
		}
	}()

	jobDir := filepath.Join(userDir, uuid.NewString())

	err = fileutil.EnsureDir(jobDir)
	if err != nil {
		return Result{}, &StageError{Stage: StageWorkspace, Err: err}
	}

	defer func() {
		removeErr := os.RemoveAll(jobDir)
		if removeErr != nil {
			s.log.Warn("Failed to remove job directory '%s': %v", jobDir, removeErr)
		}
	}()

	s.log.Info("Generating video for user %s in %s", userID, jobDir)

	result, err := s.generate(ctx, userID, prompt, jobDir)
	if err != nil {
		s.log.Error("Video generation failed for user %s: %v", userID, err)

		return Result{}, err
	}

	s.log.Info("Video for user %s stored at %s", userID, result.Link)

	return result, nil
}

func (s *Studio) generate(ctx context.Context, userID, prompt, jobDir string) (Result, error) {
	narration, err := s.deps.Text.Narrate(ctx, prompt)
	if err != nil {
		return Result{}, &StageError{Stage: StageNarrate, Err: err}
	}

	title, err := s.deps.Text.Title(ctx, prompt)
	if err != nil {
		return Result{}, &StageError{Stage: StageTitle, Err: err}
	}

	sentences := timeline.Segment(narration)
	if len(sentences) == 0 {
		return Result{}, &StageError{Stage: StageSegment, Err: timeline.ErrEmptyInput}
	}

	prompts, err := s.deps.Text.ImagePrompts(ctx, sentences)
	if err != nil {
		return Result{}, &StageError{Stage: StagePrompts, Err: err}
	}

	imagePaths, err := s.renderImages(ctx, AlignPrompts(prompts, sentences), jobDir)
	if err != nil {
		return Result{}, &StageError{Stage: StageImages, Err: err}
	}

	audioData, err := s.deps.Speech.Synthesize(ctx, s.preprocessor.ForSpeech(narration))
	if err != nil {
		return Result{}, &StageError{Stage: StageSpeech, Err: err}
	}

	audioPath, err := fileutil.WriteFile(jobDir, audioFileName, audioData)
	if err != nil {
		return Result{}, &StageError{Stage: StageSpeech, Err: err}
	}

	measured, err := s.deps.Meter.Measure(audioData)
	if err != nil {
		return Result{}, &StageError{Stage: StageMeasure, Err: err}
	}

	durations, err := timeline.Build(narration, measured)
	if err != nil {
		return Result{}, &StageError{Stage: StageTimeline, Err: err}
	}

	err = timeline.CheckFrames(durations)
	if err != nil {
		return Result{}, &StageError{Stage: StageTimeline, Err: err}
	}

	videoPath := filepath.Join(jobDir, videoFileName)

	err = s.deps.Assembler.Assemble(ctx, core.VideoJob{
		Frames:     frameFiles(imagePaths, durations),
		AudioPath:  audioPath,
		OutputPath: videoPath,
		WorkDir:    jobDir,
	})
	if err != nil {
		return Result{}, &StageError{Stage: StageAssemble, Err: err}
	}

	return s.publish(ctx, userID, title, videoPath)
}

func (s *Studio) renderImages(ctx context.Context, prompts []string, jobDir string) ([]string, error) {
	paths := make([]string, 0, len(prompts))

	for i, prompt := range prompts {
		image, err := s.deps.Images.GenerateImage(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}

		path, err := fileutil.WriteFile(jobDir, fmt.Sprintf(imageFileFmt, i), image)
		if err != nil {
			return nil, err
		}

		paths = append(paths, path)
	}

	return paths, nil
}

func (s *Studio) publish(ctx context.Context, userID, title, videoPath string) (Result, error) {
	video, err := os.ReadFile(videoPath)
	if err != nil {
		return Result{}, &StageError{Stage: StageUpload, Err: err}
	}

	number, err := s.deps.Documents.NextVideoNumber(ctx, userID)
	if err != nil {
		return Result{}, &StageError{Stage: StageNumbering, Err: err}
	}

	key := fmt.Sprintf(videoKeyFmt, userID, number)

	err = s.deps.Objects.Upload(ctx, key, video)
	if err != nil {
		return Result{}, &StageError{Stage: StageUpload, Err: err}
	}

	s.log.Info("Uploaded %s (%s)", key, fileutil.FormatFileSize(int64(len(video))))

	link := s.deps.Objects.URL(key)

	_, err = s.deps.Documents.AppendVideo(ctx, userID, core.Video{Link: link, Title: title, Views: 0})
	if err != nil {
		return Result{}, &StageError{Stage: StageIndex, Err: err}
	}

	return Result{Link: link, Title: title}, nil
}

// AlignPrompts returns exactly one image prompt per sentence. Extra prompts
// are dropped and missing ones fall back to the sentence itself.
func AlignPrompts(prompts, sentences []string) []string {
	aligned := make([]string, len(sentences))

	for i, sentence := range sentences {
		if i < len(prompts) && strings.TrimSpace(prompts[i]) != "" {
			aligned[i] = prompts[i]

			continue
		}

		aligned[i] = sentence
	}

	return aligned
}

func frameFiles(imagePaths []string, durations []float64) []core.FrameFile {
	frames := make([]core.FrameFile, len(imagePaths))
	for i, path := range imagePaths {
		frames[i] = core.FrameFile{ImagePath: path, Duration: durations[i]}
	}

	return frames
}
