// Package timeline turns narration text and the measured length of its
// synthesized audio into per-sentence frame durations.
//
// The pipeline runs in three steps: Segment splits the narration into
// sentences, EstimateAll assigns each sentence a provisional spoken duration,
// and Reconcile spreads the difference between the provisional total and the
// measured audio length across the frames so the durations sum to the
// measured value, exactly when float64 rounding allows and otherwise within
// one ULP.
package timeline

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptyInput indicates that the narration contains no sentences.
	ErrEmptyInput = errors.New("narration contains no sentences")
	// ErrInvalidDuration indicates that the measured audio duration is not a positive finite number.
	ErrInvalidDuration = errors.New("measured audio duration must be positive")
	// ErrEmptyTimeline indicates an attempt to reconcile zero frames.
	ErrEmptyTimeline = errors.New("cannot build a timeline with zero frames")
	// ErrNonPositiveFrame indicates a reconciled frame that would not be visible.
	ErrNonPositiveFrame = errors.New("frame duration must be positive")
)

// Frame pairs a sentence with the number of seconds its image stays on screen.
type Frame struct {
	Index    int
	Sentence string
	Duration float64
}

// Build segments the narration and reconciles the estimated sentence durations
// against the measured audio duration. The result has one entry per sentence
// and sums to measured, to within one ULP when no exact tail value exists.
func Build(narration string, measured float64) ([]float64, error) {
	err := validateMeasured(measured)
	if err != nil {
		return nil, err
	}

	sentences := Segment(narration)
	if len(sentences) == 0 {
		return nil, ErrEmptyInput
	}

	return Reconcile(sentences, measured)
}

// Frames is Build with each duration paired to the sentence it belongs to.
func Frames(narration string, measured float64) ([]Frame, error) {
	err := validateMeasured(measured)
	if err != nil {
		return nil, err
	}

	sentences := Segment(narration)
	if len(sentences) == 0 {
		return nil, ErrEmptyInput
	}

	durations, err := Reconcile(sentences, measured)
	if err != nil {
		return nil, err
	}

	frames := make([]Frame, len(sentences))
	for i, sentence := range sentences {
		frames[i] = Frame{Index: i, Sentence: sentence, Duration: durations[i]}
	}

	return frames, nil
}

// CheckFrames reports the first duration that is zero or negative.
// Reconcile never clamps, so callers that hand durations to a video
// assembler run this first.
func CheckFrames(durations []float64) error {
	for i, d := range durations {
		if d <= 0 || math.IsNaN(d) {
			return fmt.Errorf("%w: frame %d has %.4fs", ErrNonPositiveFrame, i, d)
		}
	}

	return nil
}

// Sum adds durations left to right. Every exactness guarantee in this
// package is stated in terms of this summation order.
func Sum(durations []float64) float64 {
	total := 0.0
	for _, d := range durations {
		total += d
	}

	return total
}

func validateMeasured(measured float64) error {
	if measured <= 0 || math.IsNaN(measured) || math.IsInf(measured, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidDuration, measured)
	}

	return nil
}
