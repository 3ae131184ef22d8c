package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/SriHarishb/edith/internal/audio"
	"github.com/SriHarishb/edith/internal/timeline"
	"github.com/spf13/cobra"
)

var errNoDuration = errors.New("either --audio or --duration must be provided")

type timelineFlags struct {
	narration     string
	narrationFile string
	audioPath     string
	duration      float64
}

func newRootCommand() *cobra.Command {
	var flags timelineFlags

	cmd := &cobra.Command{
		Use:           "edith-timeline",
		Short:         "Show the reconciled frame timeline of a narration",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			narration, err := flags.loadNarration()
			if err != nil {
				return err
			}

			measured, err := flags.measure()
			if err != nil {
				return err
			}

			frames, err := timeline.Frames(narration, measured)
			if err != nil {
				return fmt.Errorf("build timeline: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderFrames(frames, measured, isTerminal(out)))

			durations := make([]float64, len(frames))
			for i, frame := range frames {
				durations[i] = frame.Duration
			}

			if checkErr := timeline.CheckFrames(durations); checkErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", checkErr)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.narration, "narration", "n", "", "Narration text")
	cmd.Flags().StringVarP(&flags.narrationFile, "narration-file", "f", "", "File containing the narration text")
	cmd.Flags().StringVarP(&flags.audioPath, "audio", "a", "", "MP3 narration track to measure")
	cmd.Flags().Float64VarP(&flags.duration, "duration", "d", 0, "Narration length in seconds (instead of --audio)")
	cmd.MarkFlagsMutuallyExclusive("narration", "narration-file")
	cmd.MarkFlagsOneRequired("narration", "narration-file")
	cmd.MarkFlagsMutuallyExclusive("audio", "duration")

	return cmd
}

func (f timelineFlags) loadNarration() (string, error) {
	if f.narrationFile == "" {
		return f.narration, nil
	}

	data, err := os.ReadFile(f.narrationFile)
	if err != nil {
		return "", fmt.Errorf("read narration: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

func (f timelineFlags) measure() (float64, error) {
	if f.audioPath == "" {
		if f.duration == 0 {
			return 0, errNoDuration
		}

		return f.duration, nil
	}

	data, err := os.ReadFile(f.audioPath)
	if err != nil {
		return 0, fmt.Errorf("read audio: %w", err)
	}

	seconds, err := audio.NewMP3Meter().Measure(data)
	if err != nil {
		return 0, fmt.Errorf("measure audio: %w", err)
	}

	return seconds, nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isTerminalFd(file.Fd())
}
