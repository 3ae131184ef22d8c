// Package video assembles still frames and a narration track into an MP4.
package video

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/SriHarishb/edith/internal/core"
)

const (
	defaultBinary = "ffmpeg"
	defaultWidth  = 1024
	defaultHeight = 500
	defaultFPS    = 24

	concatListName = "frames.txt"
	filePerm       = 0o600
)

var (
	// ErrNoFrames indicates a job without frames.
	ErrNoFrames = errors.New("video job has no frames")
	// ErrAudioPathEmpty indicates a job without a narration track.
	ErrAudioPathEmpty = errors.New("audio path cannot be empty")
	// ErrOutputPathEmpty indicates a job without an output file.
	ErrOutputPathEmpty = errors.New("output path cannot be empty")
)

// Option configures the assembler.
type Option func(*FFmpegAssembler)

// WithBinary overrides the ffmpeg executable.
func WithBinary(binary string) Option {
	return func(a *FFmpegAssembler) {
		if binary != "" {
			a.binary = binary
		}
	}
}

// WithGeometry overrides the output frame size and rate. Zero values keep the
// defaults.
func WithGeometry(width, height, fps int) Option {
	return func(a *FFmpegAssembler) {
		if width > 0 && height > 0 {
			a.width, a.height = width, height
		}

		if fps > 0 {
			a.fps = fps
		}
	}
}

// FFmpegAssembler renders a slideshow with the ffmpeg concat demuxer.
type FFmpegAssembler struct {
	binary string
	width  int
	height int
	fps    int
}

// NewFFmpegAssembler creates an assembler with 1024x500 output at 24 fps.
func NewFFmpegAssembler(opts ...Option) *FFmpegAssembler {
	assembler := &FFmpegAssembler{
		binary: defaultBinary,
		width:  defaultWidth,
		height: defaultHeight,
		fps:    defaultFPS,
	}
	for _, opt := range opts {
		opt(assembler)
	}

	return assembler
}

// Assemble writes the concat list into job.WorkDir and runs ffmpeg.
func (a *FFmpegAssembler) Assemble(ctx context.Context, job core.VideoJob) error {
	err := validateJob(job)
	if err != nil {
		return err
	}

	workDir := job.WorkDir
	if workDir == "" {
		workDir = filepath.Dir(job.OutputPath)
	}

	listPath := filepath.Join(workDir, concatListName)

	err = writeConcatListFile(listPath, job.Frames)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, a.binary, a.Args(listPath, job.AudioPath, job.OutputPath)...) //nolint:gosec
	if output, runErr := cmd.CombinedOutput(); runErr != nil {
		return fmt.Errorf("ffmpeg assemble: %w: %s", runErr, strings.TrimSpace(string(output)))
	}

	return nil
}

// Args returns the ffmpeg argument list for a concat list, an audio track and
// an output path.
func (a *FFmpegAssembler) Args(listPath, audioPath, outputPath string) []string {
	filter := fmt.Sprintf(
		"scale=%[1]d:%[2]d:force_original_aspect_ratio=decrease,pad=%[1]d:%[2]d:(ow-iw)/2:(oh-ih)/2,format=yuv420p",
		a.width, a.height,
	)

	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-i", audioPath,
		"-vf", filter,
		"-r", strconv.Itoa(a.fps),
		"-c:v", "libx264",
		"-c:a", "aac",
		"-shortest",
		outputPath,
	}
}

// WriteConcatList writes a concat demuxer script. The last file is listed a
// second time because the demuxer ignores the final duration directive
// otherwise.
func WriteConcatList(w io.Writer, frames []core.FrameFile) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}

	buffered := bufio.NewWriter(w)

	for _, frame := range frames {
		fmt.Fprintf(buffered, "file %s\n", quotePath(frame.ImagePath))
		fmt.Fprintf(buffered, "duration %s\n", strconv.FormatFloat(frame.Duration, 'f', -1, 64))
	}

	fmt.Fprintf(buffered, "file %s\n", quotePath(frames[len(frames)-1].ImagePath))

	err := buffered.Flush()
	if err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	return nil
}

func writeConcatListFile(path string, frames []core.FrameFile) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}

	writeErr := WriteConcatList(file, frames)
	closeErr := file.Close()

	if writeErr != nil {
		return writeErr
	}

	if closeErr != nil {
		return fmt.Errorf("close concat list: %w", closeErr)
	}

	return nil
}

// quotePath wraps a path in single quotes using the demuxer's escape rule.
func quotePath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

func validateJob(job core.VideoJob) error {
	if len(job.Frames) == 0 {
		return ErrNoFrames
	}

	if job.AudioPath == "" {
		return ErrAudioPathEmpty
	}

	if job.OutputPath == "" {
		return ErrOutputPathEmpty
	}

	return nil
}
